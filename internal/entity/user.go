package entity

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfRoleChange     = errors.New("you cannot change your own role")
	// ErrUnauthorized is returned when an operation requires a caller and there is none.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks the role or ownership an operation requires.
	ErrForbidden = errors.New("forbidden")
)

// Role is the privilege level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Caller is the identity behind a request. The zero value is an anonymous caller.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) Authenticated() bool {
	return c.ID != ""
}

func (c Caller) IsAdmin() bool {
	return c.Authenticated() && c.Role == RoleAdmin
}

// UserQuery describes one page of the admin account listing.
type UserQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
	Search    string
}

// UserPage is one page of the admin account listing.
type UserPage struct {
	Users []User
	Total int
}

// SeedResult counts what a development seeding run actually inserted.
type SeedResult struct {
	Users int
	URLs  int
}
