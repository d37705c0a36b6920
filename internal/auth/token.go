package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when no explicit lifetime is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenFailure distinguishes why a bearer token was rejected. Both kinds are
// reported identically to clients; the distinction exists for logs.
type TokenFailure string

const (
	TokenMalformedOrForged TokenFailure = "MALFORMED_OR_FORGED"
	TokenExpired           TokenFailure = "EXPIRED"
)

// TokenError is returned by TokenIssuer.Verify.
type TokenError struct {
	Kind TokenFailure
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: token rejected (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth: token rejected (%s)", e.Kind)
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenFailureOf returns the failure kind carried by err, if any.
func TokenFailureOf(err error) (TokenFailure, bool) {
	var tokErr *TokenError
	if errors.As(err, &tokErr) {
		return tokErr.Kind, true
	}
	return "", false
}

// Token is a freshly minted bearer credential.
type Token struct {
	Value     string
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 bearer tokens carrying only the subject
// id, issue time and expiry. It keeps no record of issued tokens, so a token
// cannot be revoked before it expires; rotating the secret invalidates every
// outstanding token at once.
type TokenIssuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// TokenOption customises a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewTokenIssuer builds an issuer bound to secret. The secret is copied and
// never mutated, so the issuer is safe for concurrent use.
func NewTokenIssuer(secret []byte, defaultTTL time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if len(strings.TrimSpace(string(secret))) == 0 {
		return nil, ErrMissingSigningSecret
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	issuer := &TokenIssuer{secret: key, defaultTTL: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// DefaultTTL returns the lifetime applied by IssueDefault.
func (i *TokenIssuer) DefaultTTL() time.Duration {
	return i.defaultTTL
}

// IssueDefault mints a token for subjectID with the configured TTL.
func (i *TokenIssuer) IssueDefault(subjectID string) (Token, error) {
	return i.Issue(subjectID, i.defaultTTL)
}

// Issue mints a token for subjectID expiring ttl from now.
func (i *TokenIssuer) Issue(subjectID string, ttl time.Duration) (Token, error) {
	if strings.TrimSpace(subjectID) == "" {
		return Token{}, errors.New("auth: token subject required")
	}
	if ttl < 0 {
		return Token{}, fmt.Errorf("auth: negative token ttl %s", ttl)
	}
	now := i.now().UTC()
	claims := jwtv5.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(expiryFor(now, ttl)),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{
		Value:     signed,
		SubjectID: subjectID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// expiryFor rounds a positive lifetime up to the next whole second. The exp
// claim has second precision, and truncating would expire short tokens early.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl == 0 {
		return exp
	}
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

// Verify checks signature and expiry and returns the token subject.
// Failures are always *TokenError.
func (i *TokenIssuer) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &TokenError{Kind: TokenMalformedOrForged, Err: errors.New("empty token")}
	}

	claims := &jwtv5.RegisteredClaims{}
	_, err := jwtv5.ParseWithClaims(raw, claims, i.keyfunc,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) && i.signatureValid(raw) {
			return "", &TokenError{Kind: TokenExpired, Err: err}
		}
		return "", &TokenError{Kind: TokenMalformedOrForged, Err: err}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", &TokenError{Kind: TokenMalformedOrForged, Err: errors.New("subject claim missing")}
	}
	return claims.Subject, nil
}

// signatureValid re-checks only the signature so an expired token is never
// reported as EXPIRED unless this secret produced it.
func (i *TokenIssuer) signatureValid(raw string) bool {
	tok, err := jwtv5.ParseWithClaims(raw, &jwtv5.RegisteredClaims{}, i.keyfunc,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithoutClaimsValidation(),
	)
	return err == nil && tok.Valid
}

func (i *TokenIssuer) keyfunc(t *jwtv5.Token) (any, error) {
	if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return i.secret, nil
}
