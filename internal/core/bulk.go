package core

import (
	"context"
	"fmt"

	"hostelcore/internal/allocation"
	"hostelcore/internal/provisioning"
	"hostelcore/pkg/domain"
)

// AllocateRooms places every active, unassigned student using the sequential
// partial-first policy. Running out of beds midway is not an error: the
// report carries the number still pending.
func (s *Service) AllocateRooms(ctx context.Context) (AllocationReport, Result, error) {
	var report AllocationReport
	res, err := s.transact(ctx, opAllocateRooms, func(tx domain.Transaction) (string, error) {
		var ids []string
		for _, student := range tx.ListStudents() {
			if student.NeedsRoom() {
				ids = append(ids, student.ID)
			}
		}
		if len(ids) == 0 {
			return "", nil
		}
		outcome, err := allocation.Sequential(ctx, txRegistry{tx: tx}, ids)
		if err != nil {
			return "", err
		}
		report = AllocationReport{
			AllocatedCount: outcome.Allocated(),
			Pending:        len(ids) - outcome.Allocated(),
			Exhausted:      outcome.Exhausted,
		}
		return "", nil
	})
	if err != nil {
		return AllocationReport{}, res, err
	}
	return report, res, nil
}

// GenerateStudents replaces every student with count synthetic residents and
// allocates them by cohort. All rooms are emptied first. A non-positive count
// uses the configured population (provisioning.DefaultStudentCount unless
// WithStudentCount is given). Counts above provisioning.MaxStudentCount are
// rejected, and so is a registry without rooms, before any student is built.
func (s *Service) GenerateStudents(ctx context.Context, count int) (GenerationReport, Result, error) {
	if count <= 0 {
		count = s.studentCount
	}
	if count > provisioning.MaxStudentCount {
		verr := domain.NewValidationError()
		verr.Add("count", fmt.Sprintf("must be at most %d", provisioning.MaxStudentCount))
		return GenerationReport{}, Result{}, verr
	}
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		if len(view.ListRooms()) == 0 {
			return domain.ErrNoRooms
		}
		return nil
	}); err != nil {
		return GenerationReport{}, Result{}, err
	}
	hash, err := s.hashPassword(s.defaultPassword)
	if err != nil {
		return GenerationReport{}, Result{}, fmt.Errorf("hash password: %w", err)
	}
	s.genMu.Lock()
	batch, err := s.generator.Generate(count, hash)
	s.genMu.Unlock()
	if err != nil {
		return GenerationReport{}, Result{}, fmt.Errorf("generate students: %w", err)
	}

	var report GenerationReport
	res, err := s.transact(ctx, opGenerateStudents, func(tx domain.Transaction) (string, error) {
		rooms := tx.ListRooms()
		if len(rooms) == 0 {
			return "", domain.ErrNoRooms
		}
		if _, err := tx.DeleteAllStudents(); err != nil {
			return "", err
		}
		for _, room := range rooms {
			if room.Empty() {
				continue
			}
			if _, err := tx.UpdateRoom(room.RoomNumber, func(r *Room) error {
				r.Occupants = nil
				return nil
			}); err != nil {
				return "", err
			}
		}
		created := make([]Student, 0, len(batch))
		for _, student := range batch {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			stored, err := tx.CreateStudent(student)
			if err != nil {
				return "", fmt.Errorf("create %s: %w", student.RollNumber, err)
			}
			created = append(created, stored)
		}
		outcome, err := allocation.Cohort(ctx, txRegistry{tx: tx}, created, s.shuffle)
		if err != nil {
			return "", err
		}
		report = GenerationReport{Count: len(created), AllocatedCount: outcome.Allocated()}
		return "", nil
	})
	if err != nil {
		return GenerationReport{}, res, err
	}
	return report, res, nil
}
