package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so transports can map it without string matching.
type ErrorKind int

const (
	KindSystem ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "system"
	}
}

// Error is the domain error type. Msg is safe to show to callers; Err holds the
// underlying cause and is never exposed outside the process.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so a sentinel still
// matches after it has been re-created with a cause attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Err: err}
}

func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func NewSystemError(msg string, err error) *Error {
	return &Error{Kind: KindSystem, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Errors that are not domain errors are system errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// PublicMessage is the message a caller may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindSystem {
		return e.Msg
	}
	return "internal error, please retry later"
}

// IsRetryable reports whether the same request may succeed if repeated unchanged.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindSystem
}

var (
	// Room errors
	ErrRoomNotFound      = &Error{Kind: KindNotFound, Msg: "room not found"}
	ErrRoomNotAvailable  = &Error{Kind: KindConflict, Msg: "room not available"}
	ErrRoomAlreadyBooked = &Error{Kind: KindConflict, Msg: "room already booked for the requested dates"}
	ErrRoomNumberTaken   = &Error{Kind: KindConflict, Msg: "room number already exists"}
	ErrInvalidRoomStatus = &Error{Kind: KindValidation, Msg: "invalid room status"}
	ErrInvalidRoomType   = &Error{Kind: KindValidation, Msg: "invalid room type"}
	ErrInvalidPrice      = &Error{Kind: KindValidation, Msg: "base price must be positive"}

	// Booking errors
	ErrBookingNotFound      = &Error{Kind: KindNotFound, Msg: "booking not found"}
	ErrDatesRequired        = &Error{Kind: KindValidation, Msg: "check-in and check-out dates are required"}
	ErrInvalidDateRange     = &Error{Kind: KindValidation, Msg: "check-out date must be after check-in date"}
	ErrCheckInInPast        = &Error{Kind: KindValidation, Msg: "check-in date cannot be in the past"}
	ErrInvalidBookingStatus = &Error{Kind: KindValidation, Msg: "invalid booking status"}
	ErrEmptyPatch           = &Error{Kind: KindValidation, Msg: "no fields to update"}
	ErrTerminalState        = &Error{Kind: KindForbidden, Msg: "booking is no longer active and cannot be modified"}
	ErrInvalidTransition    = &Error{Kind: KindForbidden, Msg: "booking status transition is not allowed"}
	ErrBookingCodeCollision = &Error{Kind: KindSystem, Msg: "booking code collision"}

	// User errors
	ErrUserNotFound       = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrIdentityRequired   = &Error{Kind: KindValidation, Msg: "user_id or email required"}
	ErrEmailRegistered    = &Error{Kind: KindValidation, Msg: "This email is already registered. Please log in to make a booking."}
	ErrAlreadyRegistered  = &Error{Kind: KindValidation, Msg: "email is already registered"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Msg: "email already in use"}
	ErrInvalidEmail       = &Error{Kind: KindValidation, Msg: "invalid email format"}
	ErrInvalidRole        = &Error{Kind: KindValidation, Msg: "invalid user role"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Msg: "invalid email or password"}

	// General errors
	ErrLockTimeout  = &Error{Kind: KindSystem, Msg: "timed out waiting for a lock"}
	ErrDatabase     = &Error{Kind: KindSystem, Msg: "database error"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "unauthorized access"}
	ErrForbidden    = &Error{Kind: KindForbidden, Msg: "forbidden operation"}
)
