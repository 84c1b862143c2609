package core

import (
	"context"
	"fmt"
	"strings"

	"hostelcore/internal/allocation"
	"hostelcore/pkg/domain"
)

func (r Registration) validate() error {
	verr := domain.NewValidationError()
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(r.RollNumber) == "" {
		verr.Add("rollNumber", "is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		verr.Add("email", "is required")
	}
	if r.Year < 1 || r.Year > 4 {
		verr.Add("year", "must be between 1 and 4")
	}
	return verr.OrNil()
}

// RegisterStudent creates an active student and places it. An explicit room
// must exist and have a free bed; otherwise the single-student policy picks
// one. The student is not created when no room can be assigned.
func (s *Service) RegisterStudent(ctx context.Context, reg Registration) (Student, Result, error) {
	if err := reg.validate(); err != nil {
		return Student{}, Result{}, err
	}
	hash, err := s.hashPassword(reg.Password)
	if err != nil {
		return Student{}, Result{}, fmt.Errorf("hash password: %w", err)
	}
	var created Student
	res, err := s.transact(ctx, opRegisterStudent, func(tx domain.Transaction) (string, error) {
		roomNumber := strings.TrimSpace(reg.RoomNumber)
		if roomNumber != "" {
			room, err := findRoom(tx, roomNumber)
			if err != nil {
				return "", err
			}
			if room.Full() {
				return "", fmt.Errorf("room %s: %w", roomNumber, domain.ErrRoomFull)
			}
		} else {
			room, err := allocation.PickRoom(tx.ListRooms())
			if err != nil {
				return "", err
			}
			roomNumber = room.RoomNumber
		}
		student, err := tx.CreateStudent(Student{
			Name:               strings.TrimSpace(reg.Name),
			RollNumber:         strings.TrimSpace(reg.RollNumber),
			Branch:             reg.Branch,
			Year:               reg.Year,
			Email:              strings.TrimSpace(reg.Email),
			PhoneNumber:        reg.PhoneNumber,
			ParentMobileNumber: reg.ParentMobileNumber,
			ProfilePhoto:       reg.ProfilePhoto,
			PasswordHash:       hash,
			IsActive:           true,
		})
		if err != nil {
			return "", err
		}
		if err := assignRoom(tx, student.ID, roomNumber); err != nil {
			return "", err
		}
		created, _ = tx.FindStudent(student.ID)
		return created.ID, nil
	})
	return created, res, err
}

// UpdateStudent applies patch to a student's profile. When patch.RoomNumber
// is set the student is moved there (existence and capacity checked) or, for
// an empty value, unassigned. Cohort rules are not applied here.
func (s *Service) UpdateStudent(ctx context.Context, id string, patch StudentPatch) (Student, Result, error) {
	var updated Student
	res, err := s.transact(ctx, opUpdateStudent, func(tx domain.Transaction) (string, error) {
		current, err := findStudent(tx, id)
		if err != nil {
			return "", err
		}
		if patch.RoomNumber != nil && *patch.RoomNumber != current.RoomNumber {
			target := strings.TrimSpace(*patch.RoomNumber)
			if target != "" {
				room, err := findRoom(tx, target)
				if err != nil {
					return "", err
				}
				if room.Full() {
					return "", fmt.Errorf("room %s: %w", target, domain.ErrRoomFull)
				}
			}
			if _, err := releaseRoom(tx, current); err != nil {
				return "", err
			}
			if target != "" {
				if err := assignRoom(tx, id, target); err != nil {
					return "", err
				}
			}
		}
		updated, err = tx.UpdateStudent(id, func(st *Student) error {
			applyPatch(st, patch)
			return nil
		})
		return id, err
	})
	return updated, res, err
}

func applyPatch(st *Student, patch StudentPatch) {
	set := func(dst *string, src *string) {
		if src != nil && strings.TrimSpace(*src) != "" {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&st.Name, patch.Name)
	set(&st.RollNumber, patch.RollNumber)
	set(&st.Branch, patch.Branch)
	set(&st.Email, patch.Email)
	set(&st.PhoneNumber, patch.PhoneNumber)
	set(&st.ParentMobileNumber, patch.ParentMobileNumber)
	if patch.Year != nil && *patch.Year != 0 {
		st.Year = *patch.Year
	}
}

// DeactivateStudent offboards a student: its room is released and the
// record is marked inactive.
func (s *Service) DeactivateStudent(ctx context.Context, rollNumber string) (Student, Result, error) {
	var updated Student
	res, err := s.transact(ctx, opDeactivateStudent, func(tx domain.Transaction) (string, error) {
		student, ok := tx.FindStudentByRollNumber(rollNumber)
		if !ok {
			return "", fmt.Errorf("roll number %s: %w", rollNumber, domain.ErrStudentNotFound)
		}
		released, err := releaseRoom(tx, student)
		if err != nil {
			return "", err
		}
		updated, err = tx.UpdateStudent(released.ID, func(st *Student) error {
			st.IsActive = false
			return nil
		})
		return student.ID, err
	})
	return updated, res, err
}

// GetStudent returns a student by id.
func (s *Service) GetStudent(id string) (Student, error) {
	student, ok := s.store.GetStudent(id)
	if !ok {
		return Student{}, fmt.Errorf("student %s: %w", id, domain.ErrStudentNotFound)
	}
	return student, nil
}

// GetStudentByRollNumber returns a student by roll number.
func (s *Service) GetStudentByRollNumber(ctx context.Context, rollNumber string) (Student, error) {
	var student Student
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var ok bool
		student, ok = view.FindStudentByRollNumber(rollNumber)
		if !ok {
			return fmt.Errorf("roll number %s: %w", rollNumber, domain.ErrStudentNotFound)
		}
		return nil
	})
	return student, err
}

// ListStudents returns active or inactive students in registry order.
func (s *Service) ListStudents(active bool) []Student {
	out := []Student{}
	for _, student := range s.store.ListStudents() {
		if student.IsActive == active {
			out = append(out, student)
		}
	}
	return out
}
