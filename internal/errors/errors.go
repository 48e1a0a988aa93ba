package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

// Not found
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// Business-rule conflicts. Raised inside a transaction, they roll it back.
var (
	ErrCapacityExhausted    = errors.New("no spots left for this event")
	ErrAlreadyReserved      = errors.New("user already holds a confirmed reservation for this event")
	ErrAlreadyCanceled      = errors.New("reservation is already canceled")
	ErrEventAlreadyOccurred = errors.New("event has already taken place")
)

// ErrContention means the store kept aborting the unit on concurrent writers.
// The request did not change anything and can be retried.
var ErrContention = errors.New("too many concurrent updates, try again")

// Authorization
var (
	ErrNotAuthorized = fmt.Errorf("%w: not allowed to perform this operation", ErrForbidden)
	ErrUnknownUser   = fmt.Errorf("%w: principal has no user record", ErrForbidden)
)

var ErrValidationFailed = errors.New("validation failed")

// ValidationError carries per-field messages. errors.Is(err, ErrValidationFailed) holds for it.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. The first message wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e as an error when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Invalid is a shortcut for a single-field validation error.
func Invalid(field, msg string) error {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrReservationNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrCapacityExhausted) ||
		errors.Is(err, ErrAlreadyReserved) ||
		errors.Is(err, ErrAlreadyCanceled) ||
		errors.Is(err, ErrEventAlreadyOccurred) ||
		errors.Is(err, ErrContention)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsBusiness reports whether err is an expected outcome rather than a system fault.
func IsBusiness(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsValidation(err) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized)
}

// Code returns a stable machine-readable code for known errors.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return "EVENT_NOT_FOUND"
	case errors.Is(err, ErrReservationNotFound):
		return "RESERVATION_NOT_FOUND"
	case errors.Is(err, ErrCapacityExhausted):
		return "CAPACITY_EXHAUSTED"
	case errors.Is(err, ErrAlreadyReserved):
		return "ALREADY_RESERVED"
	case errors.Is(err, ErrAlreadyCanceled):
		return "ALREADY_CANCELED"
	case errors.Is(err, ErrEventAlreadyOccurred):
		return "EVENT_ALREADY_OCCURRED"
	case errors.Is(err, ErrContention):
		return "CONTENTION"
	case errors.Is(err, ErrValidationFailed):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrUnknownUser):
		return "UNKNOWN_USER"
	case errors.Is(err, ErrForbidden):
		return "NOT_AUTHORIZED"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}
