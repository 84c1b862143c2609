package domain

import (
	"fmt"
	"strconv"
)

// FloorCount is the number of residential floors in the hostel block.
const FloorCount = 12

// Years enumerates the academic years that receive rooms, in allocation order.
var Years = []int{1, 2, 3, 4}

// FloorOf derives the floor from a room number. Four-or-more character numbers
// starting with "1" belong to floors 10-12 and use a two-digit prefix; every
// other number uses its first digit. The prefix must be all digits, so
// "1a23" is rejected rather than read as floor 1.
func FloorOf(roomNumber string) (int, error) {
	prefix := roomNumber
	switch {
	case len(roomNumber) >= 4 && roomNumber[0] == '1':
		prefix = roomNumber[:2]
	case len(roomNumber) >= 1:
		prefix = roomNumber[:1]
	default:
		return 0, fmt.Errorf("%w: empty", ErrInvalidRoomNumber)
	}
	floor, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomNumber, roomNumber)
	}
	return floor, nil
}

// YearForFloor maps a floor to the academic year housed there:
// floors 1-2 year 1, 3-5 year 3, 6-9 year 4, 10-12 year 2.
func YearForFloor(floor int) (int, bool) {
	switch {
	case floor >= 1 && floor <= 2:
		return 1, true
	case floor >= 3 && floor <= 5:
		return 3, true
	case floor >= 6 && floor <= 9:
		return 4, true
	case floor >= 10 && floor <= FloorCount:
		return 2, true
	default:
		return 0, false
	}
}

// FloorsForYear returns the floors reserved for year in ascending order.
func FloorsForYear(year int) ([]int, error) {
	if year < 1 || year > 4 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedYear, year)
	}
	var floors []int
	for floor := 1; floor <= FloorCount; floor++ {
		if y, _ := YearForFloor(floor); y == year {
			floors = append(floors, floor)
		}
	}
	return floors, nil
}

// YearForRoom combines FloorOf and YearForFloor.
func YearForRoom(roomNumber string) (int, bool) {
	floor, err := FloorOf(roomNumber)
	if err != nil {
		return 0, false
	}
	return YearForFloor(floor)
}
