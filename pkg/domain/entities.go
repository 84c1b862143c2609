// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by hostelcore.
package domain

import (
	"fmt"
	"slices"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRoom identifies a dormitory room record.
	EntityRoom EntityType = "room"
	// EntityStudent identifies a resident student record.
	EntityStudent EntityType = "student"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Room is a fixed-capacity dormitory room. Occupants hold student ids in
// assignment order.
type Room struct {
	RoomNumber string    `json:"roomNumber"`
	Capacity   int       `json:"capacity"`
	Occupants  []string  `json:"occupants"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Free reports how many beds remain in the room.
func (r Room) Free() int {
	if free := r.Capacity - len(r.Occupants); free > 0 {
		return free
	}
	return 0
}

// Vacant reports whether at least one bed is free.
func (r Room) Vacant() bool { return len(r.Occupants) < r.Capacity }

// Full reports whether the room is at capacity.
func (r Room) Full() bool { return len(r.Occupants) >= r.Capacity }

// Empty reports whether nobody occupies the room.
func (r Room) Empty() bool { return len(r.Occupants) == 0 }

// Partial reports whether the room is occupied but still has space.
func (r Room) Partial() bool { return len(r.Occupants) >= 1 && r.Vacant() }

// HasOccupant reports whether the student id is listed in the room.
func (r Room) HasOccupant(studentID string) bool {
	return slices.Contains(r.Occupants, studentID)
}

// AddOccupant appends studentID to the occupant list.
func (r *Room) AddOccupant(studentID string) error {
	if r.HasOccupant(studentID) {
		return fmt.Errorf("student %s already in room %s", studentID, r.RoomNumber)
	}
	if r.Full() {
		return fmt.Errorf("room %s: %w", r.RoomNumber, ErrRoomFull)
	}
	r.Occupants = append(r.Occupants, studentID)
	return nil
}

// RemoveOccupant drops studentID from the occupant list. Removing an absent
// id is a no-op.
func (r *Room) RemoveOccupant(studentID string) {
	r.Occupants = slices.DeleteFunc(r.Occupants, func(id string) bool { return id == studentID })
}

// Student is a resident eligible for room allocation.
type Student struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	RollNumber         string    `json:"rollNumber"`
	Branch             string    `json:"branch"`
	Year               int       `json:"year"`
	Email              string    `json:"email"`
	PhoneNumber        string    `json:"phoneNumber"`
	ParentMobileNumber string    `json:"parentMobileNumber"`
	ProfilePhoto       string    `json:"profilePhoto,omitempty"`
	PasswordHash       string    `json:"passwordHash,omitempty"`
	RoomNumber         string    `json:"roomNumber"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Assigned reports whether the student currently holds a room.
func (s Student) Assigned() bool { return s.RoomNumber != "" }

// NeedsRoom reports whether bulk allocation should consider the student.
func (s Student) NeedsRoom() bool { return s.IsActive && !s.Assigned() }

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s", v.Message)
		}
	}
	return "transaction blocked by rules"
}
