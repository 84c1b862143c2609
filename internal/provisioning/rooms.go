// Package provisioning builds the fixed building layout and synthetic student
// populations used to seed the room registry.
package provisioning

import (
	"strconv"

	"hostelcore/pkg/domain"
)

// Slot is one position of the per-floor room pattern.
type Slot struct {
	Suffix   string
	Capacity int
}

// Pattern lists the 39 rooms present on every floor.
var Pattern = []Slot{
	{"01", 3}, {"02", 3}, {"03", 2}, {"04", 3}, {"05", 2}, {"06", 3}, {"07", 2}, {"08", 3}, {"09", 3}, {"10", 2},
	{"11", 3}, {"12", 2}, {"13", 3}, {"14", 2}, {"15", 3}, {"16", 2}, {"17", 3}, {"18", 2}, {"19", 3}, {"20", 2},
	{"21", 3}, {"22", 2}, {"23", 3}, {"24", 2}, {"25", 3}, {"26", 2}, {"27", 3}, {"28", 2}, {"29", 3}, {"30", 2},
	{"31", 3}, {"32", 2}, {"33", 3}, {"34", 2}, {"35", 3}, {"36", 2}, {"37", 3}, {"38", 3}, {"39", 2},
}

// Rooms returns the full building: floors 1..12, each numbered
// <floor><suffix>, so floor 10 holds 1001..1039.
func Rooms() []domain.Room {
	rooms := make([]domain.Room, 0, domain.FloorCount*len(Pattern))
	for floor := 1; floor <= domain.FloorCount; floor++ {
		prefix := strconv.Itoa(floor)
		for _, slot := range Pattern {
			rooms = append(rooms, domain.Room{
				RoomNumber: prefix + slot.Suffix,
				Capacity:   slot.Capacity,
				Occupants:  []string{},
			})
		}
	}
	return rooms
}

// Beds returns the total capacity of the generated building.
func Beds() int {
	perFloor := 0
	for _, slot := range Pattern {
		perFloor += slot.Capacity
	}
	return perFloor * domain.FloorCount
}
