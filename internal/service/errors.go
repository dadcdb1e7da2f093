// Package service implements the authentication, session and role logic.
// Every exported operation reports failures as *Error so callers can map
// them to a transport status without knowing about stores or drivers.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the error type returned by services. Message is safe to show
// to clients; Err carries the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Token failure causes. They are only visible through errors.Is; every
// one of them reaches clients as the same "invalid token" message.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrTokenType      = errors.New("wrong token type")
)

// Messages shared between services and their tests.
const (
	MsgInvalidToken       = "invalid token"
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "User with this email already exists"
	MsgSuperuserRequired  = "Access forbidden: superuser required"
	MsgUserNotFound       = "No user found for ID"
	MsgRoleNotFound       = "No role found for ID"
	MsgSystemRole         = "Delete operation is not allowed on system-level roles"
	MsgUnavailable        = "service temporarily unavailable"
	MsgInternal           = "internal server error"
)

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// rejected is a validation failure caused by a store constraint, such as
// repository.ErrDuplicate; callers can match the cause with errors.Is.
func rejected(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: cause}
}

func notFound(msg string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: cause}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func unauthorized(msg string, cause error) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg, Err: cause}
}

func invalidToken(cause error) *Error {
	return unauthorized(MsgInvalidToken, cause)
}

func internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: fmt.Errorf("%s: %w", op, cause)}
}

func unavailable(op string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: MsgUnavailable, Err: fmt.Errorf("%s: %w", op, cause)}
}

// KindOf returns the Kind of err. Errors that are not *Error count as
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgInternal
}

// Result is the outcome of a business operation: it succeeded, it was
// rejected by a business rule, or the infrastructure failed.
type Result int

const (
	ResultSuccess Result = iota
	ResultFail
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFail:
		return "fail"
	default:
		return "error"
	}
}

// ResultOf folds an error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	switch KindOf(err) {
	case KindInternal, KindUnavailable:
		return ResultError
	default:
		return ResultFail
	}
}
