package model

import (
	"time"

	"github.com/google/uuid"
)

// LoginHistory is an append-only audit row in `login_history`.
// Rows are never updated; ownership belongs to exactly one user.
type LoginHistory struct {
	ID        uuid.UUID // login_history.id
	UserID    uuid.UUID // login_history.user_id
	LoggedAt  time.Time // login_history.logged_at (UTC)
	IPAddress string    // login_history.ip_address
	UserAgent *string   // login_history.user_agent (nullable)
}
