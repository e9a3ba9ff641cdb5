package users

import (
	"fmt"
	"strings"
	"time"

	"smartattendance/internal/apperr"
)

// Role is the access level of a person.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleStudent Role = "STUDENT"
)

// ParseStaffRole normalizes a role for the users table; students live elsewhere.
func ParseStaffRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleStaff:
		return r, nil
	}
	return "", apperr.Validation(fmt.Sprintf("Invalid role: %s. Must be one of ADMIN, STAFF", s))
}

// Person is a staff member, an admin or a student.
type Person struct {
	ID         int64
	UUID       string
	Firstname  string
	Lastname   string
	Email      string
	Phone      *string
	Role       Role
	Department string
	CreatedAt  time.Time
}

// FullName joins first and last name.
func (p Person) FullName() string {
	return strings.TrimSpace(p.Firstname + " " + p.Lastname)
}

// IsAdmin reports whether p may use privileged endpoints.
func (p Person) IsAdmin() bool { return p.Role == RoleAdmin }
