package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Allocation engine failure kinds. Callers match them with errors.Is; every
// operation that returns one of these leaves the registry unchanged.
var (
	ErrDuplicateRoom     = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrDuplicateStudent  = errors.New("student already exists")
	ErrRoomFull          = errors.New("room is already at full capacity")
	ErrNoVacancy         = errors.New("no vacant rooms available")
	ErrNoRooms           = errors.New("no rooms found, create rooms first")
	ErrCohortMismatch    = errors.New("room is allocated for different year students")
	ErrNoRoomAssigned    = errors.New("student doesn't have a room assigned")
	ErrInvalidRoomNumber = errors.New("invalid room number")
	ErrUnsupportedYear   = errors.New("year must be between 1 and 4")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	FieldErrors map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{FieldErrors: make(map[string]string)}
}

// Add records a problem for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	if _, exists := e.FieldErrors[field]; exists {
		return
	}
	e.FieldErrors[field] = message
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// OrNil returns e when it holds errors, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	if !e.HasErrors() {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.FieldErrors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsNotFound reports whether err denotes a missing room or student.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrStudentNotFound)
}
