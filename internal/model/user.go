package model

import (
	"time"
)

// User represents an authenticated account. Site access is carried by
// Membership rows, never by fields on the user itself.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// CreateUserParams contains parameters for creating a user
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}
