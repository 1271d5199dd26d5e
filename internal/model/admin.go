package model

import "time"

// Admin is an operator account that can sign in to the admin UI. Passwords
// are stored as PBKDF2 credentials and never leave the store.
type Admin struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// AdminCreate carries the fields accepted when creating an admin.
type AdminCreate struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// Length limits for AdminCreate fields.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 64
	PasswordMinLen = 8
	PasswordMaxLen = 128
)
