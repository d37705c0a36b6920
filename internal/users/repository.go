package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/shared"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, role, restaurant_id, created_at, updated_at`

const (
	listByTenantSQL = `SELECT ` + userColumns + ` FROM users WHERE restaurant_id = $1 ORDER BY name ASC`
	findInTenantSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND restaurant_id = $2`
	emailExistsSQL  = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	createUserSQL   = `INSERT INTO users (id, email, name, role, password_hash, restaurant_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns
	updateUserSQL = `UPDATE users SET
	name = COALESCE($3, name),
	email = COALESCE($4, email),
	role = COALESCE($5, role),
	updated_at = NOW()
WHERE id = $1 AND restaurant_id = $2
RETURNING ` + userColumns
	deleteUserSQL = `DELETE FROM users WHERE id = $1 AND restaurant_id = $2`
)

// querier is the slice of *pgxpool.Pool the repository uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides PostgreSQL backed persistence. Every query that reads
// or writes a specific user is filtered by restaurant so tenant isolation
// holds at the data-access boundary, not only at the gate.
type Repository struct {
	db querier
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// ListByTenant returns the users of one restaurant ordered by name.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := r.db.Query(ctx, listByTenantSQL, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindInTenant fetches a user only if it belongs to tenantID.
func (r *Repository) FindInTenant(ctx context.Context, tenantID, id string) (User, error) {
	row := r.db.QueryRow(ctx, findInTenantSQL, id, tenantID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// EmailExists reports whether any account already uses email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, emailExistsSQL, email).Scan(&exists)
	return exists, err
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, nu NewUser) (User, error) {
	row := r.db.QueryRow(ctx, createUserSQL, nu.ID, nu.Email, nu.Name, string(nu.Role), nu.PasswordHash, nu.TenantID)
	user, err := scanUser(row)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return user, nil
}

// Update applies patch to a user of tenantID.
func (r *Repository) Update(ctx context.Context, tenantID, id string, patch Patch) (User, error) {
	var role *string
	if patch.Role != nil {
		v := string(*patch.Role)
		role = &v
	}
	row := r.db.QueryRow(ctx, updateUserSQL, id, tenantID, patch.Name, patch.Email, role)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, mapWriteError(err)
	}
	return user, nil
}

// Delete removes a user of tenantID. Returns shared.ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.db.Exec(ctx, deleteUserSQL, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user User
		role string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.TenantID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.Role = auth.Role(role)
	return user, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrEmailTaken
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
