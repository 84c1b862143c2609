package core

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"hostelcore/internal/provisioning"
	"hostelcore/pkg/domain"
)

// Operation names used for logging, metrics, tracing and audit.
const (
	opCreateRoom        = "create_room"
	opGenerateRooms     = "generate_rooms"
	opRegisterStudent   = "register_student"
	opGenerateStudents  = "generate_students"
	opUpdateStudent     = "update_student"
	opDeactivateStudent = "deactivate_student"
	opAllocateRooms     = "allocate_rooms"
	opChangeRoom        = "change_room"
	opExchangeRooms     = "exchange_rooms"
	opUnassignStudent   = "unassign_student"
)

// CreateRoom appends an empty room to the registry.
func (s *Service) CreateRoom(ctx context.Context, roomNumber string, capacity int) (Room, Result, error) {
	roomNumber = strings.TrimSpace(roomNumber)
	var created Room
	res, err := s.transact(ctx, opCreateRoom, func(tx domain.Transaction) (string, error) {
		var err error
		created, err = tx.CreateRoom(Room{RoomNumber: roomNumber, Capacity: capacity})
		return created.RoomNumber, err
	})
	return created, res, err
}

// Rooms returns a lazy sequence over committed rooms matching filter in
// registry order. Each iteration reads the registry afresh.
func (s *Service) Rooms(filter RoomFilter) iter.Seq[Room] {
	return func(yield func(Room) bool) {
		for _, room := range s.store.ListRooms() {
			if !filter.match(room) {
				continue
			}
			if !yield(room) {
				return
			}
		}
	}
}

// ListRooms materialises Rooms(filter).
func (s *Service) ListRooms(filter RoomFilter) []Room {
	out := []Room{}
	for room := range s.Rooms(filter) {
		out = append(out, room)
	}
	return out
}

// GetRoom returns a room by number.
func (s *Service) GetRoom(roomNumber string) (Room, error) {
	room, ok := s.store.GetRoom(roomNumber)
	if !ok {
		return Room{}, fmt.Errorf("room %s: %w", roomNumber, domain.ErrRoomNotFound)
	}
	return room, nil
}

// OccupantSummary is the per-occupant view shown in room listings.
type OccupantSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Branch     string `json:"branch"`
	Year       int    `json:"year"`
}

// RoomDetail pairs a room with summaries of its occupants.
type RoomDetail struct {
	Room
	Residents []OccupantSummary `json:"residents"`
}

// RoomDetails lists rooms matching filter with occupant summaries, from a
// single consistent snapshot.
func (s *Service) RoomDetails(ctx context.Context, filter RoomFilter) ([]RoomDetail, error) {
	out := []RoomDetail{}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, room := range view.ListRooms() {
			if !filter.match(room) {
				continue
			}
			detail := RoomDetail{Room: room, Residents: make([]OccupantSummary, 0, len(room.Occupants))}
			for _, id := range room.Occupants {
				student, ok := view.FindStudent(id)
				if !ok {
					continue
				}
				detail.Residents = append(detail.Residents, OccupantSummary{
					ID:         student.ID,
					Name:       student.Name,
					RollNumber: student.RollNumber,
					Branch:     student.Branch,
					Year:       student.Year,
				})
			}
			out = append(out, detail)
		}
		return nil
	})
	return out, err
}

// RoomOccupants returns the student records listed in a room, in occupant order.
func (s *Service) RoomOccupants(ctx context.Context, roomNumber string) ([]Student, error) {
	var out []Student
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		room, err := findRoom(view, roomNumber)
		if err != nil {
			return err
		}
		out = make([]Student, 0, len(room.Occupants))
		for _, id := range room.Occupants {
			if student, ok := view.FindStudent(id); ok {
				out = append(out, student)
			}
		}
		return nil
	})
	return out, err
}

// OccupancyStats aggregates room and student counts from one snapshot.
func (s *Service) OccupancyStats(ctx context.Context) (OccupancyStats, error) {
	var stats OccupancyStats
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, room := range view.ListRooms() {
			stats.Rooms++
			stats.Beds += room.Capacity
			stats.OccupiedBeds += len(room.Occupants)
			if room.Vacant() {
				stats.VacantRooms++
			} else {
				stats.FullRooms++
			}
		}
		for _, student := range view.ListStudents() {
			if !student.IsActive {
				continue
			}
			stats.ActiveStudents++
			if !student.Assigned() {
				stats.UnassignedStudents++
			}
		}
		return nil
	})
	return stats, err
}

// GenerateRooms wipes the registry and recreates the standard building
// layout. Every student loses its room assignment. It returns the number of
// rooms created.
func (s *Service) GenerateRooms(ctx context.Context) (int, Result, error) {
	var count int
	res, err := s.transact(ctx, opGenerateRooms, func(tx domain.Transaction) (string, error) {
		if _, err := tx.DeleteAllRooms(); err != nil {
			return "", err
		}
		for _, student := range tx.ListStudents() {
			if !student.Assigned() {
				continue
			}
			if _, err := tx.UpdateStudent(student.ID, func(st *Student) error {
				st.RoomNumber = ""
				return nil
			}); err != nil {
				return "", err
			}
		}
		for _, room := range provisioning.Rooms() {
			if _, err := tx.CreateRoom(room); err != nil {
				return "", err
			}
			count++
		}
		return "", nil
	})
	if err != nil {
		return 0, res, err
	}
	return count, res, nil
}
