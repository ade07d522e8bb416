package model

import "time"

// User is an application account.  The role string encodes what the user
// may do: "admin" can do everything, "compteur_<n>" may only submit counts
// for round n, "viewer" is read-only.  Role semantics are resolved once at
// the request boundary by the auth package.
type User struct {
	ID           uint64    `json:"id"`        // app_users.id
	Username     string    `json:"username"`  // app_users.username
	FullName     *string   `json:"full_name"` // app_users.full_name (nullable)
	Role         string    `json:"role"`      // app_users.role
	IsActive     bool      `json:"is_active"` // app_users.is_active
	PasswordHash string    `json:"-"`         // app_users.password_hash, never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
