package lifecycle

import (
	"errors"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// Kind classifies a lifecycle error. The HTTP layer maps each kind to one status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is returned by every manager operation that fails for a reason the caller can
// act on. Message is safe to show to the user. Fields carries extra response members,
// such as the incomplete task count of a completion that needs confirmation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func forbidden(msg string) *Error  { return &Error{Kind: KindForbidden, Message: msg} }
func notFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }

func unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// internal wraps an unexpected failure, usually from the store.
func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// updateFailed maps a failed store update. A record deleted since it was loaded is
// reported as notFound(gone).
func updateFailed(msg, gone string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(gone)
	}
	return internal(msg, err)
}

// KindOf returns the kind of err, or KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// Common messages shared by several managers.
const (
	msgProjectNotFound      = "Project not found"
	msgTaskNotFound         = "Task not found"
	msgAccessDenied         = "Access denied"
	msgOnlyOwnerCanDelete   = "Only project owner can delete"
	msgActivityNotFound     = "Activity not found"
	msgNotificationNotFound = "Notification not found"
	msgUserNotFound         = "User not found"
)
