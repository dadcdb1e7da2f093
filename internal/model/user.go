package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents an account record as stored in the `users` table.
// The json tags are omitted because these structs are used by the
// repository and service layers; handlers define their own response
// shapes.
//
// Fields:
//
//	ID           – primary key (UUID stored as CHAR(36)).
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash; never the plaintext password.
//	FirstName    – optional given name (empty when unset).
//	LastName     – optional family name (empty when unset).
//	RoleID       – nullable reference into `roles`; invalid means no role.
//	Role         – title of the referenced role, resolved by a join.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – refreshed on every mutation.
type User struct {
	ID           uuid.UUID     // users.id
	Email        string        // users.email
	PasswordHash string        // users.password_hash
	FirstName    string        // users.first_name
	LastName     string        // users.last_name
	RoleID       uuid.NullUUID // users.role_id (nullable)
	Role         RoleName      // roles.title via users.role_id
	CreatedAt    time.Time     // users.created_at
	UpdatedAt    time.Time     // users.updated_at
}

// NormalizeEmail lower-cases and trims an email so lookups and the
// unique key agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
