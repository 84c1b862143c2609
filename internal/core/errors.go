package core

import (
	"context"
	"errors"

	"hostelcore/pkg/domain"
)

var errorKinds = []struct {
	target error
	kind   string
}{
	{domain.ErrDuplicateRoom, "duplicate_room"},
	{domain.ErrRoomNotFound, "room_not_found"},
	{domain.ErrStudentNotFound, "student_not_found"},
	{domain.ErrDuplicateStudent, "duplicate_student"},
	{domain.ErrRoomFull, "room_full"},
	{domain.ErrNoVacancy, "no_vacancy"},
	{domain.ErrNoRooms, "no_rooms"},
	{domain.ErrCohortMismatch, "cohort_mismatch"},
	{domain.ErrNoRoomAssigned, "no_room_assigned"},
	{domain.ErrInvalidRoomNumber, "invalid_room_number"},
	{domain.ErrUnsupportedYear, "unsupported_year"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline_exceeded"},
}

// ErrorKind maps err to a stable label for logs, metrics and audit trails.
// It returns "" for nil and "internal" for unclassified errors.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return "validation"
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		return "rule_violation"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "internal"
}

// IsClientError reports whether err stems from caller input or registry state
// rather than an infrastructure failure.
func IsClientError(err error) bool {
	switch ErrorKind(err) {
	case "", "internal", "canceled", "deadline_exceeded":
		return false
	default:
		return true
	}
}
