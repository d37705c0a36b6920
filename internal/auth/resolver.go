package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiftdesk/shiftdesk/internal/shared"
)

// PrincipalStore is the authoritative read model for principals.
// Implementations return shared.ErrNotFound when the id does not exist.
type PrincipalStore interface {
	FindPrincipalByID(ctx context.Context, id string) (*Principal, error)
}

// Resolver loads the live principal behind a verified token subject. It never
// caches: role, tenant and deletion changes are visible on the next request.
type Resolver struct {
	store PrincipalStore
}

// NewResolver constructs a Resolver.
func NewResolver(store PrincipalStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches the principal for subjectID. A vanished account yields
// ErrPrincipalNotFound; a cancelled context aborts without touching the store.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	principal, err := r.store.FindPrincipalByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("auth: resolve principal: %w", err)
	}
	if principal == nil {
		return nil, ErrPrincipalNotFound
	}
	snapshot := *principal
	return &snapshot, nil
}
