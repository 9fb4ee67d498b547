package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrSelfDisable  = errors.New("cannot deactivate own account")
	ErrMissingField = errors.New("name and email are required")
)

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // never expose hash in JSON
	Role           string    `json:"role"`
	EmploymentType string    `json:"employmentType"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Name           string
	Email          string
	Role           string
	EmploymentType string
	PasswordHash   string
}

// NormalizeEmail applies the canonical form used for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleAdmin
}
