package users

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/shared"
)

type recordedQuery struct {
	sql  string
	args []any
}

type recordingDB struct {
	queries []recordedQuery
	rowErr  error
	tag     pgconn.CommandTag
}

func (d *recordingDB) record(sql string, args []any) {
	d.queries = append(d.queries, recordedQuery{sql: sql, args: args})
}

func (d *recordingDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.record(sql, args)
	return nil, errors.New("connection refused")
}

func (d *recordingDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.record(sql, args)
	return errRow{err: d.rowErr}
}

func (d *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.record(sql, args)
	return d.tag, nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (d *recordingDB) last(t *testing.T) recordedQuery {
	t.Helper()
	require.NotEmpty(t, d.queries)
	return d.queries[len(d.queries)-1]
}

func TestTenantScopedStatementsFilterByRestaurant(t *testing.T) {
	statements := map[string]string{
		"list":   listByTenantSQL,
		"find":   findInTenantSQL,
		"update": updateUserSQL,
		"delete": deleteUserSQL,
	}
	for name, sql := range statements {
		assert.Contains(t, sql, "restaurant_id = $", name)
	}
	assert.Contains(t, findInTenantSQL, "WHERE id = $1 AND restaurant_id = $2")
	assert.Contains(t, updateUserSQL, "WHERE id = $1 AND restaurant_id = $2")
	assert.Contains(t, deleteUserSQL, "WHERE id = $1 AND restaurant_id = $2")
}

func TestRepositoryFindInTenantBindsTenant(t *testing.T) {
	db := &recordingDB{rowErr: pgx.ErrNoRows}
	repo := &Repository{db: db}

	_, err := repo.FindInTenant(context.Background(), "r2", "staff-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	q := db.last(t)
	assert.Equal(t, findInTenantSQL, q.sql)
	assert.Equal(t, []any{"staff-1", "r2"}, q.args)
}

func TestRepositoryListByTenantBindsTenant(t *testing.T) {
	db := &recordingDB{}
	repo := &Repository{db: db}

	_, err := repo.ListByTenant(context.Background(), "r1")
	require.Error(t, err)

	q := db.last(t)
	assert.Equal(t, listByTenantSQL, q.sql)
	assert.Equal(t, []any{"r1"}, q.args)
}

func TestRepositoryUpdateBindsTenant(t *testing.T) {
	db := &recordingDB{rowErr: pgx.ErrNoRows}
	repo := &Repository{db: db}
	name := "Renamed"

	_, err := repo.Update(context.Background(), "r2", "staff-1", Patch{Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	q := db.last(t)
	assert.Equal(t, updateUserSQL, q.sql)
	require.Len(t, q.args, 5)
	assert.Equal(t, []any{"staff-1", "r2"}, q.args[:2])
}

func TestRepositoryDeleteBindsTenant(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("DELETE 0")}
	repo := &Repository{db: db}

	err := repo.Delete(context.Background(), "r2", "staff-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	q := db.last(t)
	assert.Equal(t, deleteUserSQL, q.sql)
	assert.Equal(t, []any{"staff-1", "r2"}, q.args)

	db.tag = pgconn.NewCommandTag("DELETE 1")
	assert.NoError(t, repo.Delete(context.Background(), "r1", "staff-1"))
}

func TestRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db := &recordingDB{rowErr: &pgconn.PgError{Code: uniqueViolation}}
	repo := &Repository{db: db}

	_, err := repo.Create(context.Background(), NewUser{
		ID: "new-1", Email: "john@demo.com", Name: "John", Role: auth.RoleStaff, PasswordHash: "x", TenantID: "r1",
	})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)

	q := db.last(t)
	assert.Equal(t, createUserSQL, q.sql)
	assert.Equal(t, "r1", q.args[len(q.args)-1])
}
