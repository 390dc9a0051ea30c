package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a domain failure. Every error that crosses the
// acknowledgment boundary carries exactly one kind.
type ErrorKind string

const (
	ErrAuthExpired              ErrorKind = "auth_expired"
	ErrAuthInvalid              ErrorKind = "auth_invalid"
	ErrUnauthorized             ErrorKind = "unauthorized"
	ErrNotRoomAuthor            ErrorKind = "not_room_author"
	ErrValidationMissingData    ErrorKind = "validation_missing_data"
	ErrValidationProfaneContent ErrorKind = "validation_profane_content"
	ErrRoomNameTaken            ErrorKind = "room_name_taken"
	ErrRoomNotFound             ErrorKind = "room_not_found"
	ErrRoomQueryInvalid         ErrorKind = "room_query_invalid"
	ErrUserNotInRoom            ErrorKind = "user_not_in_room"
	ErrUserAlreadyInRoom        ErrorKind = "user_already_in_room"
	ErrUserBannedFromRoom       ErrorKind = "user_banned_from_room"
	ErrPersistenceRetrieval     ErrorKind = "persistence_retrieval_failed"
	ErrPersistenceUpdate        ErrorKind = "persistence_update_failed"
)

// Error is the single tagged error type used across the domain. It replaces a
// class-per-error hierarchy with one variant carrying a kind, a human-readable
// message and an optional offending field name.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	cause   error
}

// NewError creates a domain error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithField attaches the name of the field that caused the failure.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithCause attaches the underlying error for logging. The cause is never
// serialized to clients.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a domain error of the same kind, so callers can
// compare with errors.Is against a bare kinded error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the kind of err, or "" if err is not a domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if !asDomainError(err, &e) {
		return ""
	}
	return e.Kind
}

func asDomainError(err error, out **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*out = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// WireError is the uniform shape a domain failure serializes to on the
// acknowledgment path.
type WireError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Serialize converts any error into the wire shape. Errors that are not
// classified domain errors are reported as a generic persistence failure so
// raw store errors never leak to clients.
func Serialize(err error) *WireError {
	var e *Error
	if asDomainError(err, &e) {
		return &WireError{Kind: e.Kind, Message: e.Message, Field: e.Field}
	}
	return &WireError{Kind: ErrPersistenceUpdate, Message: "operation failed"}
}

// MarshalJSON keeps the wire shape stable even if fields are added later.
func (w *WireError) MarshalJSON() ([]byte, error) {
	type alias WireError
	return json.Marshal((*alias)(w))
}
