package auth

import "time"

// Identity is an authenticated principal's account record. The auth core
// only ever reads identities; provisioning and mutation belong to the
// account-management workflows.
type Identity struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	Verified     bool      `json:"verified"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the resolved caller of a request: who they are and the role
// their permissions derive from.
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}
