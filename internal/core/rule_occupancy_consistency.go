package core

import (
	"context"
	"fmt"

	"hostelcore/pkg/domain"
)

// NewOccupancyConsistencyRule returns a rule that blocks commits where a
// student's room number and the rooms' occupant lists disagree.
func NewOccupancyConsistencyRule() domain.Rule {
	return occupancyConsistencyRule{}
}

type occupancyConsistencyRule struct{}

func (occupancyConsistencyRule) Name() string { return "occupancy_consistency" }

func (occupancyConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "occupancy_consistency",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	holder := make(map[string]string)
	for _, room := range view.ListRooms() {
		for _, id := range room.Occupants {
			if other, ok := holder[id]; ok && other != room.RoomNumber {
				block(domain.EntityStudent, id, "student %s listed in rooms %s and %s", id, other, room.RoomNumber)
				continue
			}
			holder[id] = room.RoomNumber
			student, ok := view.FindStudent(id)
			if !ok {
				block(domain.EntityRoom, room.RoomNumber, "room %s lists unknown student %s", room.RoomNumber, id)
				continue
			}
			if student.RoomNumber != room.RoomNumber {
				block(domain.EntityStudent, id, "student %s listed in room %s but records room %q", id, room.RoomNumber, student.RoomNumber)
			}
		}
	}
	for _, student := range view.ListStudents() {
		if !student.Assigned() {
			continue
		}
		if holder[student.ID] != student.RoomNumber {
			block(domain.EntityStudent, student.ID, "student %s records room %s but is not among its occupants", student.ID, student.RoomNumber)
		}
	}
	return res, nil
}
