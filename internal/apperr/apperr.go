package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindWindowClosed  Kind = "window_closed"
	KindIncomplete    Kind = "incomplete_data"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// AuthorizationError: the actor's role does not permit the operation.
type AuthorizationError struct {
	Role   string
	Action string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}

// WindowClosedError: the encoding window denies writes right now.
type WindowClosedError struct {
	Reason   string
	OpensAt  *time.Time
	ClosedAt *time.Time
}

func (e WindowClosedError) Error() string {
	return "encoding window closed: " + e.Reason
}

// IncompleteDataError names the first student whose grade cannot be submitted.
type IncompleteDataError struct {
	StudentID   int64
	StudentName string
	Message     string
}

func (e IncompleteDataError) Error() string {
	if e.StudentName == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.StudentName)
}

type ValidationError struct {
	Field     string
	Value     any
	Message   string
	StudentID int64
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e NotFoundError) Error() string {
	if e.ID == nil {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

type ConflictError struct {
	Message string
	Err     error
}

func (e ConflictError) Error() string { return e.Message }

func (e ConflictError) Unwrap() error { return e.Err }

func Forbidden(role fmt.Stringer, action string) error {
	return AuthorizationError{Role: role.String(), Action: action}
}

func NotFound(resource string, id any) error { return NotFoundError{Resource: resource, ID: id} }

func Conflict(format string, args ...any) error {
	return ConflictError{Message: fmt.Sprintf(format, args...)}
}

func Invalid(field string, value any, msg string) error {
	return ValidationError{Field: field, Value: value, Message: msg}
}

// KindOf classifies err by walking its wrap chain.
func KindOf(err error) Kind {
	var (
		authz    AuthorizationError
		closed   WindowClosedError
		incomp   IncompleteDataError
		invalid  ValidationError
		notFound NotFoundError
		conflict ConflictError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authz):
		return KindAuthorization
	case errors.As(err, &closed):
		return KindWindowClosed
	case errors.As(err, &incomp):
		return KindIncomplete
	case errors.As(err, &invalid):
		return KindValidation
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &conflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// Is reports whether err is of the given kind.
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }
