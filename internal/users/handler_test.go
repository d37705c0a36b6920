package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/shared"
)

// principalRepo serves auth lookups from the same memoryRepo the users
// service writes to, so deletions and role changes are seen by auth.
type principalRepo struct {
	users *memoryRepo
}

func (p principalRepo) FindPrincipalByID(_ context.Context, id string) (*auth.Principal, error) {
	p.users.mu.Lock()
	defer p.users.mu.Unlock()
	u, ok := p.users.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return principalOf(u), nil
}

func (p principalRepo) FindCredentialByEmail(context.Context, string) (*auth.StoredCredential, error) {
	return nil, shared.ErrNotFound
}

type httpEnv struct {
	router http.Handler
	repo   *memoryRepo
	tokens *auth.TokenIssuer
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()
	svc, repo := newTestService(t)
	tokens, err := auth.NewTokenIssuer([]byte("users-secret"), time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(nil, principalRepo{users: repo}, svc.hasher, tokens, nil)
	mw := auth.Middleware{Service: authService}

	r := chi.NewRouter()
	r.Route("/api/users", NewHandler(nil, svc, mw).MountRoutes)
	return &httpEnv{router: r, repo: repo, tokens: tokens}
}

func (e *httpEnv) do(t *testing.T, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if subject != "" {
		tok, err := e.tokens.IssueDefault(subject)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Value)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHandlerListUsers(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.do(t, http.MethodGet, "/api/users", adminUser.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody(t, rr)["data"].(map[string]any)["users"].([]any)
	assert.Len(t, list, 3)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = e.do(t, http.MethodGet, "/api/users", johnUser.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, auth.MsgAdminRequired, decodeBody(t, rr)["detail"])

	rr = e.do(t, http.MethodGet, "/api/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerGetUser(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.do(t, http.MethodGet, "/api/users/"+johnUser.ID, johnUser.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	user := decodeBody(t, rr)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, johnUser.Email, user["email"])

	rr = e.do(t, http.MethodGet, "/api/users/"+janeUser.ID, johnUser.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(t, http.MethodGet, "/api/users/"+johnUser.ID, otherAdmin.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerCreateUser(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.do(t, http.MethodPost, "/api/users", adminUser.ID, `{"email":"nina@demo.com","name":"Nina","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	user := decodeBody(t, rr)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "STAFF", user["role"])
	assert.Equal(t, "r1", user["tenantId"])

	rr = e.do(t, http.MethodPost, "/api/users", adminUser.ID, `{"email":"nina@demo.com","name":"Nina","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = e.do(t, http.MethodPost, "/api/users", adminUser.ID, `{"email":"bad","name":"","password":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/api/users", johnUser.ID, `{"email":"x@demo.com","name":"X","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandlerUpdateUser(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.do(t, http.MethodPut, "/api/users/"+johnUser.ID, johnUser.ID, `{"name":"Johnny","role":"ADMIN"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	user := decodeBody(t, rr)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "Johnny", user["name"])
	assert.Equal(t, "STAFF", user["role"])

	rr = e.do(t, http.MethodPut, "/api/users/"+janeUser.ID, johnUser.ID, `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(t, http.MethodPut, "/api/users/"+janeUser.ID, adminUser.ID, `{"role":"OWNER"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerDeleteUser(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.do(t, http.MethodDelete, "/api/users/"+adminUser.ID, adminUser.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, auth.MsgSelfDeletion, decodeBody(t, rr)["detail"])

	rr = e.do(t, http.MethodDelete, "/api/users/"+janeUser.ID, johnUser.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(t, http.MethodDelete, "/api/users/"+janeUser.ID, adminUser.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "User deleted successfully", decodeBody(t, rr)["message"])

	rr = e.do(t, http.MethodGet, "/api/users/"+janeUser.ID, janeUser.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerDemotedAdminLosesAccessImmediately(t *testing.T) {
	e := newHTTPEnv(t)
	tok, err := e.tokens.IssueDefault(adminUser.ID)
	require.NoError(t, err)

	demoted := e.repo.users[adminUser.ID]
	demoted.Role = auth.RoleStaff
	e.repo.users[adminUser.ID] = demoted

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
