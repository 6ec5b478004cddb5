package users

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the closed set of roles a session may carry.
type RoleType string

const (
	RoleAdmin      RoleType = "admin"      // Manages users, departments and licenses
	RoleSupervisor RoleType = "supervisor" // Approves leave and license requests for a department
	RoleEmployee   RoleType = "employee"   // Submits own leave and license requests
	RoleAnalyst    RoleType = "analyst"    // Read-only reporting access
)

var allRoles = []RoleType{RoleAdmin, RoleSupervisor, RoleEmployee, RoleAnalyst}

// Roles returns every recognised role.
func Roles() []RoleType {
	roles := make([]RoleType, len(allRoles))
	copy(roles, allRoles)
	return roles
}

// IsValid reports whether r is one of the recognised roles.
func (r RoleType) IsValid() bool {
	for _, role := range allRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r RoleType) String() string {
	return string(r)
}

// ParseRole converts a claim value into a RoleType. Matching is case-insensitive.
func ParseRole(s string) (RoleType, error) {
	role := RoleType(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("unrecognised role %q", s)
	}
	return role, nil
}

// User is an authenticated identity. PasswordHash is only used by the mock API.
type User struct {
	ID           string   `json:"id"`       // Unique identifier for the user
	Username     string   `json:"username"` // Login name
	Email        string   `json:"email"`    // User's email address
	Role         RoleType `json:"role"`     // Single role claim
	PasswordHash string   `json:"-"`        // Only held by the user directory, never serialised
}

// Identity returns a copy of the user without credential material.
func (u User) Identity() User {
	u.PasswordHash = ""
	return u
}

// HashPassword bcrypt-hashes password with the default cost.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether password matches hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
