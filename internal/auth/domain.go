package auth

import "strings"

// Role is the coarse permission level a user holds inside their restaurant.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// ParseRole normalises a role name. Unknown values are rejected.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStaff:
		return RoleStaff, true
	default:
		return "", false
	}
}

// Principal is the authenticated identity resolved for a single request.
// It is loaded fresh from the user store on every request and must not be
// reused once the request completes.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenantId"`
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Credential is the transient email/password pair presented at login.
type Credential struct {
	Email    string
	Password string
}

// StoredCredential is what the store keeps for password verification.
type StoredCredential struct {
	UserID       string
	PasswordHash string
}

// Target describes the resource a protected operation acts on.
type Target struct {
	TenantID string
	UserID   string
}

// Stage names the per-request authentication state, used in logs.
type Stage string

const (
	StageUnverified        Stage = "unverified"
	StageTokenVerified     Stage = "token_verified"
	StagePrincipalResolved Stage = "principal_resolved"
	StageAuthorized        Stage = "authorized"
	StageRejected          Stage = "rejected"
)
