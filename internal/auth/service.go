package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftdesk/shiftdesk/internal/shared"
)

// CredentialStore looks up stored password hashes at login.
// Implementations return shared.ErrNotFound for unknown emails.
type CredentialStore interface {
	FindCredentialByEmail(ctx context.Context, email string) (*StoredCredential, error)
}

// Repository is the read-only view of the user store the core needs.
type Repository interface {
	CredentialStore
	PrincipalStore
}

// Observer receives the outcome of each authentication attempt.
type Observer interface {
	AuthOutcome(stage Stage, reason Reason)
}

// LoginResult is handed to the transport layer after a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Principal *Principal `json:"user"`
}

// Service wraps authentication business rules.
type Service struct {
	logger      *slog.Logger
	credentials CredentialStore
	resolver    *Resolver
	hasher      *Hasher
	tokens      *TokenIssuer
	observer    Observer
}

// NewService constructs a new Service. observer may be nil.
func NewService(logger *slog.Logger, repo Repository, hasher *Hasher, tokens *TokenIssuer, observer Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:      logger,
		credentials: repo,
		resolver:    NewResolver(repo),
		hasher:      hasher,
		tokens:      tokens,
		observer:    observer,
	}
}

// Login validates email/password credentials and mints a bearer token.
// Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, cred Credential) (*LoginResult, error) {
	email := shared.NormalizeEmail(cred.Email)
	stored, err := s.credentials.FindCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Burn(cred.Password)
			s.logger.Info("login rejected", slog.String("cause", "unknown_email"))
			s.observe(StageUnverified, ReasonUnauthenticated)
			return nil, unauthenticated(MsgInvalidCredentials, shared.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("auth: find credential: %w", err)
	}

	ok, err := s.hasher.Verify(cred.Password, stored.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unusable", slog.String("user_id", stored.UserID), slog.Any("error", err))
		s.observe(StageUnverified, ReasonUnauthenticated)
		return nil, unauthenticated(MsgInvalidCredentials, shared.ErrInvalidCredentials)
	}
	if !ok {
		s.logger.Info("login rejected", slog.String("cause", "wrong_password"), slog.String("user_id", stored.UserID))
		s.observe(StageUnverified, ReasonUnauthenticated)
		return nil, unauthenticated(MsgInvalidCredentials, shared.ErrInvalidCredentials)
	}

	principal, err := s.resolver.Resolve(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			s.observe(StageUnverified, ReasonUnauthenticated)
			return nil, unauthenticated(MsgInvalidCredentials, err)
		}
		return nil, err
	}

	token, err := s.tokens.IssueDefault(principal.ID)
	if err != nil {
		return nil, err
	}
	s.observe(StagePrincipalResolved, ReasonNone)
	return &LoginResult{Token: token.Value, ExpiresAt: token.ExpiresAt, Principal: principal}, nil
}

// Authenticate runs a raw bearer token through verification and resolution and
// returns a fresh principal. Rejections are *Error with ReasonUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		s.observe(StageUnverified, ReasonUnauthenticated)
		return nil, unauthenticated(MsgTokenRequired, nil)
	}

	subject, err := s.tokens.Verify(rawToken)
	if err != nil {
		kind, _ := TokenFailureOf(err)
		s.logger.Info("token rejected", slog.String("stage", string(StageUnverified)), slog.String("kind", string(kind)))
		s.observe(StageUnverified, ReasonUnauthenticated)
		return nil, unauthenticated(MsgTokenInvalid, err)
	}

	principal, err := s.resolver.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			s.logger.Info("token subject no longer exists", slog.String("stage", string(StageTokenVerified)), slog.String("user_id", subject))
			s.observe(StageTokenVerified, ReasonUnauthenticated)
			return nil, unauthenticated("user not found", err)
		}
		return nil, err
	}
	s.observe(StagePrincipalResolved, ReasonNone)
	return principal, nil
}

// Logout has nothing to do server-side: tokens are stateless and there is no
// revocation list. Clients discard the token.
func (s *Service) Logout(ctx context.Context) error {
	return nil
}

func (s *Service) observe(stage Stage, reason Reason) {
	if s.observer != nil {
		s.observer.AuthOutcome(stage, reason)
	}
}
