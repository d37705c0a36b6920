package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/platform/httpx"
	"github.com/shiftdesk/shiftdesk/internal/shared"
)

// RepositoryPort defines data access methods for users. Methods that touch a
// single user take the tenant id and must filter by it.
type RepositoryPort interface {
	ListByTenant(ctx context.Context, tenantID string) ([]User, error)
	FindInTenant(ctx context.Context, tenantID, id string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, nu NewUser) (User, error)
	Update(ctx context.Context, tenantID, id string, patch Patch) (User, error)
	Delete(ctx context.Context, tenantID, id string) error
}

var (
	listPolicy   = auth.NewPolicy(auth.RequireAuthenticated, auth.RequireRole(auth.RoleAdmin), auth.RequireSameTenant)
	createPolicy = listPolicy
	viewPolicy   = auth.NewPolicy(auth.RequireAuthenticated, auth.RequireSameTenant, auth.RequireSelfOrAdmin)
	updatePolicy = viewPolicy
	// Self-deletion is checked before the lookup so an admin gets the same
	// answer whether or not the row still exists.
	deletePolicy = auth.NewPolicy(auth.RequireAuthenticated, auth.RequireRole(auth.RoleAdmin), auth.ForbidSelfDeletion)
)

var errUserNotFound = &auth.Error{Reason: auth.ReasonNotFound, Message: "user not found"}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	hasher   *auth.Hasher
	observer auth.Observer
	newID    func() string
}

// NewService builds Service instance. observer may be nil.
func NewService(repo RepositoryPort, hasher *auth.Hasher, observer auth.Observer) *Service {
	return &Service{repo: repo, hasher: hasher, observer: observer, newID: uuid.NewString}
}

// ListUsers returns the principal's restaurant staff. Admin only.
func (s *Service) ListUsers(ctx context.Context, p *auth.Principal) ([]User, error) {
	if err := s.authorize(listPolicy, p, ownTenant(p)); err != nil {
		return nil, err
	}
	return s.repo.ListByTenant(ctx, p.TenantID)
}

// GetUser returns one user of the principal's restaurant to an admin or to
// the user themself.
func (s *Service) GetUser(ctx context.Context, p *auth.Principal, id string) (User, error) {
	if err := s.require(auth.RequireAuthenticated, p, auth.Target{}); err != nil {
		return User{}, err
	}
	target, err := s.findInTenant(ctx, p.TenantID, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(viewPolicy, p, targetOf(target)); err != nil {
		return User{}, err
	}
	return target, nil
}

// CreateUser adds an account to the admin's restaurant.
func (s *Service) CreateUser(ctx context.Context, p *auth.Principal, in CreateInput) (User, error) {
	if err := s.authorize(createPolicy, p, ownTenant(p)); err != nil {
		return User{}, err
	}
	role := auth.RoleStaff
	if in.Role != "" {
		parsed, ok := auth.ParseRole(in.Role)
		if !ok {
			return User{}, httpx.NewError(httpx.ErrValidation, "role must be one of ADMIN STAFF")
		}
		role = parsed
	}
	email := shared.NormalizeEmail(in.Email)
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("users: check email: %w", err)
	}
	if exists {
		return User{}, errEmailTaken()
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, httpx.NewError(httpx.ErrValidation, "password is not acceptable")
	}
	user, err := s.repo.Create(ctx, NewUser{
		ID:           s.newID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		PasswordHash: hash,
		TenantID:     p.TenantID,
	})
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return User{}, errEmailTaken()
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return user, nil
}

// UpdateUser edits a user. Staff may only edit themselves and can never
// change a role; a role in a staff request is ignored.
func (s *Service) UpdateUser(ctx context.Context, p *auth.Principal, id string, in UpdateInput) (User, error) {
	if err := s.require(auth.RequireAuthenticated, p, auth.Target{}); err != nil {
		return User{}, err
	}
	target, err := s.findInTenant(ctx, p.TenantID, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(updatePolicy, p, targetOf(target)); err != nil {
		return User{}, err
	}

	var patch Patch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Email != nil {
		email := shared.NormalizeEmail(*in.Email)
		patch.Email = &email
	}
	if in.Role != nil && p.IsAdmin() {
		role, ok := auth.ParseRole(*in.Role)
		if !ok {
			return User{}, httpx.NewError(httpx.ErrValidation, "role must be one of ADMIN STAFF")
		}
		patch.Role = &role
	}

	updated, err := s.repo.Update(ctx, p.TenantID, target.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			return User{}, errUserNotFound
		case errors.Is(err, shared.ErrEmailTaken):
			return User{}, errEmailTaken()
		}
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	return updated, nil
}

// DeleteUser removes a user from the admin's restaurant. Admins cannot
// delete their own account.
func (s *Service) DeleteUser(ctx context.Context, p *auth.Principal, id string) error {
	if err := s.authorize(deletePolicy, p, auth.Target{UserID: id}); err != nil {
		return err
	}
	target, err := s.findInTenant(ctx, p.TenantID, id)
	if err != nil {
		return err
	}
	if err := s.require(auth.RequireSameTenant, p, targetOf(target)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.TenantID, target.ID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("users: delete: %w", err)
	}
	return nil
}

// authorize evaluates a route policy and reports the outcome.
func (s *Service) authorize(policy auth.Policy, p *auth.Principal, t auth.Target) error {
	d := policy.Evaluate(p, t)
	if s.observer != nil {
		if d.Allowed {
			s.observer.AuthOutcome(auth.StageAuthorized, auth.ReasonNone)
		} else {
			s.observer.AuthOutcome(auth.StageRejected, d.Reason)
		}
	}
	return d.Err()
}

// require runs a single check outside the route policy. Only rejections are
// reported so a request counts as authorized once.
func (s *Service) require(check auth.Check, p *auth.Principal, t auth.Target) error {
	d := check(p, t)
	if !d.Allowed && s.observer != nil {
		s.observer.AuthOutcome(auth.StageRejected, d.Reason)
	}
	return d.Err()
}

func (s *Service) findInTenant(ctx context.Context, tenantID, id string) (User, error) {
	user, err := s.repo.FindInTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, errUserNotFound
		}
		return User{}, fmt.Errorf("users: find: %w", err)
	}
	return user, nil
}

func ownTenant(p *auth.Principal) auth.Target {
	if p == nil {
		return auth.Target{}
	}
	return auth.Target{TenantID: p.TenantID}
}

func targetOf(u User) auth.Target {
	return auth.Target{TenantID: u.TenantID, UserID: u.ID}
}

func errEmailTaken() error {
	return httpx.NewError(httpx.ErrDuplicate, "user with this email already exists")
}
