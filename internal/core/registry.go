package core

import (
	"fmt"

	"hostelcore/internal/allocation"
	"hostelcore/pkg/domain"
)

// txRegistry lets allocation policies place students inside a transaction.
type txRegistry struct {
	tx domain.Transaction
}

var _ allocation.Registry = txRegistry{}

func (r txRegistry) ListRooms() []Room { return r.tx.ListRooms() }

func (r txRegistry) Assign(studentID, roomNumber string) error {
	return assignRoom(r.tx, studentID, roomNumber)
}

// assignRoom adds studentID to the room and records the room on the student.
// The student must not currently hold a room.
func assignRoom(tx domain.Transaction, studentID, roomNumber string) error {
	if _, err := tx.UpdateRoom(roomNumber, func(room *Room) error {
		return room.AddOccupant(studentID)
	}); err != nil {
		return err
	}
	_, err := tx.UpdateStudent(studentID, func(s *Student) error {
		s.RoomNumber = roomNumber
		return nil
	})
	return err
}

// releaseRoom removes the student from its current room and clears the
// student's room number. A room that no longer exists is ignored.
func releaseRoom(tx domain.Transaction, student Student) (Student, error) {
	if student.Assigned() {
		if _, ok := tx.FindRoom(student.RoomNumber); ok {
			if _, err := tx.UpdateRoom(student.RoomNumber, func(room *Room) error {
				room.RemoveOccupant(student.ID)
				return nil
			}); err != nil {
				return Student{}, err
			}
		}
	}
	return tx.UpdateStudent(student.ID, func(s *Student) error {
		s.RoomNumber = ""
		return nil
	})
}

func findStudent(tx domain.TransactionView, id string) (Student, error) {
	student, ok := tx.FindStudent(id)
	if !ok {
		return Student{}, fmt.Errorf("student %s: %w", id, domain.ErrStudentNotFound)
	}
	return student, nil
}

func findRoom(tx domain.TransactionView, roomNumber string) (Room, error) {
	room, ok := tx.FindRoom(roomNumber)
	if !ok {
		return Room{}, fmt.Errorf("room %s: %w", roomNumber, domain.ErrRoomNotFound)
	}
	return room, nil
}

// roomYear returns the year of the room's first occupant, if any.
func roomYear(tx domain.TransactionView, room Room) (int, bool) {
	if len(room.Occupants) == 0 {
		return 0, false
	}
	first, ok := tx.FindStudent(room.Occupants[0])
	if !ok {
		return 0, false
	}
	return first.Year, true
}
