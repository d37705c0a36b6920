package users

import (
	"time"

	"github.com/shiftdesk/shiftdesk/internal/auth"
)

// User represents a user account for management.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	TenantID  string    `json:"tenantId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser is the row inserted for a new account.
type NewUser struct {
	ID           string
	Email        string
	Name         string
	Role         auth.Role
	PasswordHash string
	TenantID     string
}

// CreateInput carries an admin's request to add a user to their restaurant.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
}

// Patch is the validated column set handed to the repository.
type Patch struct {
	Name  *string
	Email *string
	Role  *auth.Role
}
