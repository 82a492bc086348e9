package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the single role held by an identity.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
	RoleEventOwner Role = "EVENT_OWNER"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleEventOwner:
		return true
	}
	return false
}

// Assignable reports whether r may be chosen at sign-up or by an admin.
// ADMIN is only ever seeded from configuration.
func (r Role) Assignable() bool {
	return r == RoleStaff || r == RoleEventOwner
}

// User is a stored identity. PasswordHash is empty for federated-only accounts.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
}
