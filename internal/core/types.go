package core

import "hostelcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Room               = domain.Room
	Student            = domain.Student
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityRoom    = domain.EntityRoom
	EntityStudent = domain.EntityStudent
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// RoomFilter selects rooms by occupancy for ListRooms.
type RoomFilter string

// Supported room filters.
const (
	RoomFilterAll      RoomFilter = "all"
	RoomFilterVacant   RoomFilter = "vacant"
	RoomFilterOccupied RoomFilter = "occupied"
)

// ParseRoomFilter accepts "", all, vacant and occupied.
func ParseRoomFilter(raw string) (RoomFilter, error) {
	switch RoomFilter(raw) {
	case "", RoomFilterAll:
		return RoomFilterAll, nil
	case RoomFilterVacant, RoomFilterOccupied:
		return RoomFilter(raw), nil
	default:
		verr := domain.NewValidationError()
		verr.Add("status", "must be one of vacant, occupied, all")
		return "", verr
	}
}

func (f RoomFilter) match(r Room) bool {
	switch f {
	case RoomFilterVacant:
		return r.Vacant()
	case RoomFilterOccupied:
		return r.Full()
	default:
		return true
	}
}

// RoomChange describes a completed move.
type RoomChange struct {
	Student Student `json:"student"`
	From    string  `json:"from"`
}

// Exchange holds both students after a swap.
type Exchange struct {
	First  Student `json:"first"`
	Second Student `json:"second"`
}

// AllocationReport summarises a bulk allocation run.
type AllocationReport struct {
	AllocatedCount int  `json:"allocatedCount"`
	Pending        int  `json:"pending"`
	Exhausted      bool `json:"exhausted"`
}

// GenerationReport summarises GenerateStudents.
type GenerationReport struct {
	Count          int `json:"count"`
	AllocatedCount int `json:"allocatedCount"`
}

// OccupancyStats aggregates registry occupancy.
type OccupancyStats struct {
	Rooms              int `json:"rooms"`
	VacantRooms        int `json:"vacantRooms"`
	FullRooms          int `json:"fullRooms"`
	Beds               int `json:"beds"`
	OccupiedBeds       int `json:"occupiedBeds"`
	ActiveStudents     int `json:"activeStudents"`
	UnassignedStudents int `json:"unassignedStudents"`
}

// Registration is the input to RegisterStudent. Password is plain text and
// stored hashed; RoomNumber is optional.
type Registration struct {
	Name               string
	RollNumber         string
	Branch             string
	Year               int
	Email              string
	PhoneNumber        string
	ParentMobileNumber string
	ProfilePhoto       string
	Password           string
	RoomNumber         string
}

// StudentPatch carries optional profile updates. Nil fields are left alone;
// a non-nil RoomNumber moves the student, or unassigns when empty.
type StudentPatch struct {
	Name               *string
	RollNumber         *string
	Branch             *string
	Year               *int
	Email              *string
	PhoneNumber        *string
	ParentMobileNumber *string
	RoomNumber         *string
}
