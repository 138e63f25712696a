// Package identity holds users, roles and authentication state.
package identity

import "time"

// Role is a user's permission tier.
type Role string

const (
	RoleSuperAdministrator Role = "super_administrator"
	RoleLabAdministrator   Role = "lab_administrator"
	RoleLabManager         Role = "lab_manager"
	RoleLabAnalyst         Role = "lab_analyst"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdministrator, RoleLabAdministrator, RoleLabManager, RoleLabAnalyst:
		return true
	}
	return false
}

// Elevated reports whether the role may amend committed results and
// finalize reports.
func (r Role) Elevated() bool {
	return r == RoleLabAdministrator || r == RoleLabManager
}

// User is an account in the lab.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Actor identifies who is performing an operation. ActingAs is set
// when an administrator operates on behalf of another user.
type Actor struct {
	UserID   int64
	Role     Role
	ActingAs *int64
}

// EffectiveUserID returns the user the action should be attributed to.
func (a Actor) EffectiveUserID() int64 {
	if a.ActingAs != nil {
		return *a.ActingAs
	}
	return a.UserID
}

// LoginRecord is one entry of a user's login history.
type LoginRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}
