package domain

import "context"

// Transaction exposes the registry operations that a persistence implementation
// must support within an atomic scope. Lists are returned in registry
// (insertion) order.
type Transaction interface {
	Snapshot() TransactionView
	CreateRoom(Room) (Room, error)
	UpdateRoom(roomNumber string, mutator func(*Room) error) (Room, error)
	DeleteAllRooms() (int, error)
	CreateStudent(Student) (Student, error)
	UpdateStudent(id string, mutator func(*Student) error) (Student, error)
	DeleteAllStudents() (int, error)
	FindRoom(roomNumber string) (Room, bool)
	FindStudent(id string) (Student, bool)
	FindStudentByRollNumber(rollNumber string) (Student, bool)
	ListRooms() []Room
	ListStudents() []Student
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	ListRooms() []Room
	ListStudents() []Student
	FindRoom(roomNumber string) (Room, bool)
	FindStudent(id string) (Student, bool)
	FindStudentByRollNumber(rollNumber string) (Student, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetRoom(roomNumber string) (Room, bool)
	ListRooms() []Room
	GetStudent(id string) (Student, bool)
	ListStudents() []Student
}
