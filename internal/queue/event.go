// Package queue defines message payloads exchanged over the message broker
// and the consumer loop that processes inbound user commands.
package queue

// Routing keys. Each one doubles as the name of a durable queue on the
// default exchange.
const (
	UserRegistered = "auth.user.registered"
	UserLoggedIn   = "auth.user.logged_in"
	EmailUpdated   = "auth.profile.email_updated"

	UserCreate = "auth.user.create"
	UserDelete = "auth.user.delete"
)

// UserRegisteredEvent is published after a new account is stored, whether
// it came from self-registration, the admin API, OAuth or the worker.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}

// UserLoggedInEvent is published for every issued session. SupervisorID is
// set when a superuser opened the session on the user's behalf.
type UserLoggedInEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent,omitempty"`
	SupervisorID string `json:"supervisor_id,omitempty"`
	Provider     string `json:"provider,omitempty"`
	LoggedInAt   string `json:"logged_in_at"`
}

// EmailUpdatedEvent lets downstream services follow an email change.
type EmailUpdatedEvent struct {
	UserID    string `json:"user_id"`
	OldEmail  string `json:"old_email"`
	NewEmail  string `json:"new_email"`
	UpdatedAt string `json:"updated_at"`
}

// UserCreateMessage asks the worker to create an account.
type UserCreateMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserDeleteMessage asks the worker to delete the account with Email.
type UserDeleteMessage struct {
	Email string `json:"email"`
}
