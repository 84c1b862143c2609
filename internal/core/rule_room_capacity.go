package core

import (
	"context"
	"fmt"

	"hostelcore/pkg/domain"
)

// NewRoomCapacityRule returns the default in-transaction rule enforcing room capacity constraints.
func NewRoomCapacityRule() domain.Rule {
	return roomCapacityRule{}
}

type roomCapacityRule struct{}

func (roomCapacityRule) Name() string { return "room_capacity" }

func (roomCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, room := range view.ListRooms() {
		if len(room.Occupants) > room.Capacity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "room_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("room %s over capacity: %d/%d occupants", room.RoomNumber, len(room.Occupants), room.Capacity),
				Entity:   domain.EntityRoom,
				EntityID: room.RoomNumber,
			})
		}
		seen := make(map[string]struct{}, len(room.Occupants))
		for _, id := range room.Occupants {
			if _, dup := seen[id]; dup {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "room_capacity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("room %s lists student %s twice", room.RoomNumber, id),
					Entity:   domain.EntityRoom,
					EntityID: room.RoomNumber,
				})
				break
			}
			seen[id] = struct{}{}
		}
	}
	return res, nil
}
