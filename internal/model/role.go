package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoleName is the title of a role as it travels in token claims. The
// zero value RoleNone means the user holds no elevated privileges.
type RoleName string

const (
	RoleNone       RoleName = ""
	RoleSuperuser  RoleName = "superuser"
	RoleAdmin      RoleName = "admin"
	RoleSubscriber RoleName = "subscriber"
)

// ParseRoleName converts a stored or claimed title into a RoleName.
// Titles are case-sensitive; only surrounding whitespace is dropped.
func ParseRoleName(s string) RoleName {
	return RoleName(strings.TrimSpace(s))
}

// Valid reports whether the name refers to an actual role.
func (r RoleName) Valid() bool { return r != RoleNone }

func (r RoleName) String() string { return string(r) }

// Ptr returns nil for RoleNone so the claim is serialized as JSON null.
func (r RoleName) Ptr() *string {
	if !r.Valid() {
		return nil
	}
	s := string(r)
	return &s
}

// Role represents a row in the `roles` table.
//
// Fields:
//
//	ID         – primary key.
//	Title      – unique, case-sensitive title.
//	SystemRole – when true the row can never be deleted (enforced by a trigger).
//	CreatedAt  – timestamp of creation.
type Role struct {
	ID         uuid.UUID // roles.id
	Title      string    // roles.title
	SystemRole bool      // roles.system_role
	CreatedAt  time.Time // roles.created_at
}

// Name returns the role title as a RoleName.
func (r Role) Name() RoleName { return ParseRoleName(r.Title) }
