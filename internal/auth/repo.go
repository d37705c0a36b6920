package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftdesk/shiftdesk/internal/shared"
)

const (
	findCredentialByEmailSQL = `SELECT id, password_hash FROM users WHERE email = $1`
	findPrincipalByIDSQL     = `SELECT id, email, name, role, restaurant_id FROM users WHERE id = $1`
)

// PGRepository implements Repository using PostgreSQL. It only reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindCredentialByEmail fetches the password hash for an email.
func (r *PGRepository) FindCredentialByEmail(ctx context.Context, email string) (*StoredCredential, error) {
	var cred StoredCredential
	err := r.pool.QueryRow(ctx, findCredentialByEmailSQL, email).Scan(&cred.UserID, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// FindPrincipalByID fetches the live identity behind a token subject.
func (r *PGRepository) FindPrincipalByID(ctx context.Context, id string) (*Principal, error) {
	var (
		p    Principal
		role string
	)
	err := r.pool.QueryRow(ctx, findPrincipalByIDSQL, id).Scan(&p.ID, &p.Email, &p.Name, &role, &p.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Role = Role(role)
	return &p, nil
}

var _ Repository = (*PGRepository)(nil)
