package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserExists is returned when registering a phone number twice.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials hides whether the phone or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid phone or password")
)

// User represents a registered storefront customer.
type User struct {
	ID             string
	Phone          string
	Name           string
	Email          string
	PasswordHash   []byte
	UnionPlusUntil *time.Time
	TokenVersion   int
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// HasUnionPlus reports whether the Union Plus membership is active at now.
func (u User) HasUnionPlus(now time.Time) bool {
	return u.UnionPlusUntil != nil && now.Before(*u.UnionPlusUntil)
}

// Registration is the input to Service.Register.
type Registration struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// Credentials request structure.
type Credentials struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}
