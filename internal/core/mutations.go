package core

import (
	"context"
	"fmt"

	"hostelcore/pkg/domain"
)

// ChangeRoom moves a student into newRoomNumber. The target room must have a
// free bed and, when occupied, house the student's year.
func (s *Service) ChangeRoom(ctx context.Context, studentID, newRoomNumber string) (RoomChange, Result, error) {
	var change RoomChange
	res, err := s.transact(ctx, opChangeRoom, func(tx domain.Transaction) (string, error) {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return "", err
		}
		room, err := findRoom(tx, newRoomNumber)
		if err != nil {
			return "", err
		}
		if student.RoomNumber == room.RoomNumber {
			verr := domain.NewValidationError()
			verr.Add("newRoomNumber", "student already assigned to this room")
			return "", verr
		}
		if room.Full() {
			return "", fmt.Errorf("room %s: %w", room.RoomNumber, domain.ErrRoomFull)
		}
		if year, ok := roomYear(tx, room); ok && year != student.Year {
			return "", fmt.Errorf("room %s houses year %d: %w", room.RoomNumber, year, domain.ErrCohortMismatch)
		}
		change.From = student.RoomNumber
		if _, err := releaseRoom(tx, student); err != nil {
			return "", err
		}
		if err := assignRoom(tx, student.ID, room.RoomNumber); err != nil {
			return "", err
		}
		change.Student, _ = tx.FindStudent(student.ID)
		return student.ID, nil
	})
	return change, res, err
}

// ExchangeRooms swaps the rooms of two students of the same year.
func (s *Service) ExchangeRooms(ctx context.Context, firstID, secondID string) (Exchange, Result, error) {
	var swapped Exchange
	res, err := s.transact(ctx, opExchangeRooms, func(tx domain.Transaction) (string, error) {
		if firstID == secondID {
			verr := domain.NewValidationError()
			verr.Add("studentId2", "cannot exchange a student with itself")
			return "", verr
		}
		first, err := findStudent(tx, firstID)
		if err != nil {
			return "", err
		}
		second, err := findStudent(tx, secondID)
		if err != nil {
			return "", err
		}
		for _, st := range []Student{first, second} {
			if !st.Assigned() {
				return "", fmt.Errorf("student %s: %w", st.ID, domain.ErrNoRoomAssigned)
			}
		}
		if first.RoomNumber == second.RoomNumber {
			verr := domain.NewValidationError()
			verr.Add("studentId2", "students already share a room")
			return "", verr
		}
		if first.Year != second.Year {
			return "", fmt.Errorf("years %d and %d: %w", first.Year, second.Year, domain.ErrCohortMismatch)
		}
		for _, pair := range [][2]Student{{first, second}, {second, first}} {
			if _, err := tx.UpdateRoom(pair[0].RoomNumber, func(room *Room) error {
				for i, id := range room.Occupants {
					if id == pair[0].ID {
						room.Occupants[i] = pair[1].ID
					}
				}
				return nil
			}); err != nil {
				return "", err
			}
		}
		if swapped.First, err = tx.UpdateStudent(first.ID, func(st *Student) error {
			st.RoomNumber = second.RoomNumber
			return nil
		}); err != nil {
			return "", err
		}
		if swapped.Second, err = tx.UpdateStudent(second.ID, func(st *Student) error {
			st.RoomNumber = first.RoomNumber
			return nil
		}); err != nil {
			return "", err
		}
		return first.ID, nil
	})
	return swapped, res, err
}

// UnassignStudent releases a student's bed.
func (s *Service) UnassignStudent(ctx context.Context, studentID string) (Student, Result, error) {
	var updated Student
	res, err := s.transact(ctx, opUnassignStudent, func(tx domain.Transaction) (string, error) {
		student, err := findStudent(tx, studentID)
		if err != nil {
			return "", err
		}
		if !student.Assigned() {
			return "", fmt.Errorf("student %s: %w", studentID, domain.ErrNoRoomAssigned)
		}
		updated, err = releaseRoom(tx, student)
		return student.ID, err
	})
	return updated, res, err
}
