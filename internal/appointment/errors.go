package appointment

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("slot already booked")
	ErrInvalidState        = errors.New("invalid state transition")
)

// ValidationError carries per-field messages. errors.Is(err, ErrValidation)
// holds for it.
type ValidationError struct {
	Fields map[string]string
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
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
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateError reports an operation that the appointment's current status
// does not allow.
type StateError struct {
	Op      string
	Current Status
	Reason  string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s: %s (status %s)", e.Op, e.Reason, e.Current)
	}
	return fmt.Sprintf("cannot %s appointment in status %s", e.Op, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
