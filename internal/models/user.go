package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what an actor may do with submissions
type Role string

const (
	RoleAuthor Role = "author"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleAuthor: true,
	RoleEditor: true,
	RoleAdmin:  true,
}

// IsStaff reports whether the role belongs to the editorial staff.
func (r Role) IsStaff() bool {
	return r == RoleEditor || r == RoleAdmin
}

// User represents a platform account
type User struct {
	ID           int64           `json:"id" db:"id"`
	Username     string          `json:"username" db:"username"`
	Email        string          `json:"email" db:"email"`
	FirstName    string          `json:"first_name" db:"first_name"`
	LastName     string          `json:"last_name" db:"last_name"`
	Role         Role            `json:"role" db:"role"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	PasswordHash string          `json:"-" db:"password_hash"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// FullName returns "First Last", or the username when no name is set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// RegisterRequest is the body of POST /api/auth/register/
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// LoginRequest is the body of POST /api/auth/token/
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	Access    string    `json:"access"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
