package models

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account. Password holds the bcrypt hash and is never
// serialized in responses.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email" validate:"required,email"`
	Password      string    `json:"-"`
	Name          string    `json:"name" validate:"required,min=2,max=100"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"isEmailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
