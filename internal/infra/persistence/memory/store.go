// Package memory provides an in-memory implementation of the room registry
// used for tests, ephemeral environments, and as the working set of the
// snapshotting sqlite and postgres stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"hostelcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

// ErrNilMutator is returned by update helpers called without a mutator.
var ErrNilMutator = errors.New("mutator required")

type (
	// Room aliases domain.Room for in-memory persistence operations.
	Room = domain.Room
	// Student aliases domain.Student.
	Student = domain.Student
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// memoryState keeps records keyed for lookup plus explicit order slices, since
// allocation walks rooms and students in registry (insertion) order.
type memoryState struct {
	rooms        map[string]Room
	roomOrder    []string
	students     map[string]Student
	studentOrder []string
	rollNumbers  map[string]string
	emails       map[string]string
}

// Snapshot captures a point-in-time clone of the store state. Slices preserve
// registry order.
type Snapshot struct {
	Rooms    []Room    `json:"rooms"`
	Students []Student `json:"students"`
}

func newMemoryState() memoryState {
	return memoryState{
		rooms:       make(map[string]Room),
		students:    make(map[string]Student),
		rollNumbers: make(map[string]string),
		emails:      make(map[string]string),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		rooms:        make(map[string]Room, len(s.rooms)),
		roomOrder:    slices.Clone(s.roomOrder),
		students:     make(map[string]Student, len(s.students)),
		studentOrder: slices.Clone(s.studentOrder),
		rollNumbers:  make(map[string]string, len(s.rollNumbers)),
		emails:       make(map[string]string, len(s.emails)),
	}
	for k, v := range s.rooms {
		cloned.rooms[k] = cloneRoom(v)
	}
	for k, v := range s.students {
		cloned.students[k] = v
	}
	for k, v := range s.rollNumbers {
		cloned.rollNumbers[k] = v
	}
	for k, v := range s.emails {
		cloned.emails[k] = v
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Rooms:    make([]Room, 0, len(state.roomOrder)),
		Students: make([]Student, 0, len(state.studentOrder)),
	}
	for _, number := range state.roomOrder {
		s.Rooms = append(s.Rooms, cloneRoom(state.rooms[number]))
	}
	for _, id := range state.studentOrder {
		s.Students = append(s.Students, state.students[id])
	}
	return s
}

// memoryStateFromSnapshot rebuilds indexes. Duplicate keys keep the first
// record so a hand-edited snapshot cannot break uniqueness.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, room := range s.Rooms {
		if room.RoomNumber == "" {
			continue
		}
		if _, dup := state.rooms[room.RoomNumber]; dup {
			continue
		}
		room = cloneRoom(room)
		if room.Occupants == nil {
			room.Occupants = []string{}
		}
		state.rooms[room.RoomNumber] = room
		state.roomOrder = append(state.roomOrder, room.RoomNumber)
	}
	for _, student := range s.Students {
		if student.ID == "" {
			continue
		}
		if _, dup := state.students[student.ID]; dup {
			continue
		}
		state.students[student.ID] = student
		state.studentOrder = append(state.studentOrder, student.ID)
		state.index(student)
	}
	return state
}

func (s *memoryState) index(student Student) {
	if student.RollNumber != "" {
		s.rollNumbers[student.RollNumber] = student.ID
	}
	if email := normalizeEmail(student.Email); email != "" {
		s.emails[email] = student.ID
	}
}

func (s *memoryState) unindex(student Student) {
	if s.rollNumbers[student.RollNumber] == student.ID {
		delete(s.rollNumbers, student.RollNumber)
	}
	if email := normalizeEmail(student.Email); email != "" && s.emails[email] == student.ID {
		delete(s.emails, email)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneRoom(r Room) Room {
	cp := r
	cp.Occupants = slices.Clone(r.Occupants)
	return cp
}

// Store provides an in-memory transactional store for the room registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListRooms returns all rooms in registry order.
func (v transactionView) ListRooms() []Room {
	out := make([]Room, 0, len(v.state.roomOrder))
	for _, number := range v.state.roomOrder {
		out = append(out, cloneRoom(v.state.rooms[number]))
	}
	return out
}

// ListStudents returns all students in registry order.
func (v transactionView) ListStudents() []Student {
	out := make([]Student, 0, len(v.state.studentOrder))
	for _, id := range v.state.studentOrder {
		out = append(out, v.state.students[id])
	}
	return out
}

// FindRoom retrieves a room by number.
func (v transactionView) FindRoom(roomNumber string) (Room, bool) {
	room, ok := v.state.rooms[roomNumber]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(room), true
}

// FindStudent retrieves a student by id.
func (v transactionView) FindStudent(id string) (Student, bool) {
	student, ok := v.state.students[id]
	return student, ok
}

// FindStudentByRollNumber retrieves a student by roll number.
func (v transactionView) FindStudentByRollNumber(rollNumber string) (Student, bool) {
	id, ok := v.state.rollNumbers[rollNumber]
	if !ok {
		return Student{}, false
	}
	return v.FindStudent(id)
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy is committed only when fn succeeds, the context is still live, and
// no blocking rule violation was reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) view() transactionView {
	return transactionView{state: &tx.state}
}

// FindRoom retrieves a room within the transaction.
func (tx *transaction) FindRoom(roomNumber string) (Room, bool) {
	return tx.view().FindRoom(roomNumber)
}

// FindStudent retrieves a student within the transaction.
func (tx *transaction) FindStudent(id string) (Student, bool) {
	return tx.view().FindStudent(id)
}

// FindStudentByRollNumber retrieves a student by roll number within the transaction.
func (tx *transaction) FindStudentByRollNumber(rollNumber string) (Student, bool) {
	return tx.view().FindStudentByRollNumber(rollNumber)
}

// ListRooms returns rooms in registry order within the transaction.
func (tx *transaction) ListRooms() []Room {
	return tx.view().ListRooms()
}

// ListStudents returns students in registry order within the transaction.
func (tx *transaction) ListStudents() []Student {
	return tx.view().ListStudents()
}

func validateRoom(r Room) error {
	verr := domain.NewValidationError()
	if strings.TrimSpace(r.RoomNumber) == "" {
		verr.Add("roomNumber", "is required")
	}
	if r.Capacity <= 0 {
		verr.Add("capacity", "must be a positive integer")
	}
	return verr.OrNil()
}

// CreateRoom appends a room to the registry.
func (tx *transaction) CreateRoom(r Room) (Room, error) {
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	if err := validateRoom(r); err != nil {
		return Room{}, err
	}
	if _, exists := tx.state.rooms[r.RoomNumber]; exists {
		return Room{}, fmt.Errorf("room %s: %w", r.RoomNumber, domain.ErrDuplicateRoom)
	}
	r = cloneRoom(r)
	if r.Occupants == nil {
		r.Occupants = []string{}
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.rooms[r.RoomNumber] = r
	tx.state.roomOrder = append(tx.state.roomOrder, r.RoomNumber)
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionCreate, After: cloneRoom(r)})
	return cloneRoom(r), nil
}

// UpdateRoom mutates an existing room. The room number is immutable.
func (tx *transaction) UpdateRoom(roomNumber string, mutator func(*Room) error) (Room, error) {
	if mutator == nil {
		return Room{}, ErrNilMutator
	}
	current, ok := tx.state.rooms[roomNumber]
	if !ok {
		return Room{}, fmt.Errorf("room %s: %w", roomNumber, domain.ErrRoomNotFound)
	}
	before := cloneRoom(current)
	current = cloneRoom(current)
	if err := mutator(&current); err != nil {
		return Room{}, err
	}
	current.RoomNumber = roomNumber
	if err := validateRoom(current); err != nil {
		return Room{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.rooms[roomNumber] = current
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionUpdate, Before: before, After: cloneRoom(current)})
	return cloneRoom(current), nil
}

// DeleteAllRooms clears the room registry and returns how many rooms were removed.
func (tx *transaction) DeleteAllRooms() (int, error) {
	removed := len(tx.state.roomOrder)
	for _, number := range tx.state.roomOrder {
		tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionDelete, Before: cloneRoom(tx.state.rooms[number])})
	}
	tx.state.rooms = make(map[string]Room)
	tx.state.roomOrder = nil
	return removed, nil
}

func validateStudent(s Student) error {
	verr := domain.NewValidationError()
	if s.Year < 1 || s.Year > 4 {
		verr.Add("year", "must be between 1 and 4")
	}
	return verr.OrNil()
}

func (tx *transaction) checkUnique(s Student) error {
	if s.RollNumber != "" {
		if owner, taken := tx.state.rollNumbers[s.RollNumber]; taken && owner != s.ID {
			return fmt.Errorf("roll number %s: %w", s.RollNumber, domain.ErrDuplicateStudent)
		}
	}
	if email := normalizeEmail(s.Email); email != "" {
		if owner, taken := tx.state.emails[email]; taken && owner != s.ID {
			return fmt.Errorf("email %s: %w", s.Email, domain.ErrDuplicateStudent)
		}
	}
	return nil
}

// CreateStudent appends a student to the registry.
func (tx *transaction) CreateStudent(s Student) (Student, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.students[s.ID]; exists {
		return Student{}, fmt.Errorf("student id %s: %w", s.ID, domain.ErrDuplicateStudent)
	}
	if err := validateStudent(s); err != nil {
		return Student{}, err
	}
	if err := tx.checkUnique(s); err != nil {
		return Student{}, err
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.students[s.ID] = s
	tx.state.studentOrder = append(tx.state.studentOrder, s.ID)
	tx.state.index(s)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateStudent mutates an existing student. The id is immutable.
func (tx *transaction) UpdateStudent(id string, mutator func(*Student) error) (Student, error) {
	if mutator == nil {
		return Student{}, ErrNilMutator
	}
	current, ok := tx.state.students[id]
	if !ok {
		return Student{}, fmt.Errorf("student %s: %w", id, domain.ErrStudentNotFound)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Student{}, err
	}
	current.ID = id
	if err := validateStudent(current); err != nil {
		return Student{}, err
	}
	if err := tx.checkUnique(current); err != nil {
		return Student{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.unindex(before)
	tx.state.students[id] = current
	tx.state.index(current)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteAllStudents clears the student registry and returns how many students were removed.
func (tx *transaction) DeleteAllStudents() (int, error) {
	removed := len(tx.state.studentOrder)
	for _, id := range tx.state.studentOrder {
		tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionDelete, Before: tx.state.students[id]})
	}
	tx.state.students = make(map[string]Student)
	tx.state.studentOrder = nil
	tx.state.rollNumbers = make(map[string]string)
	tx.state.emails = make(map[string]string)
	return removed, nil
}

// Read helpers ---------------------------------------------------------------

// GetRoom retrieves a room from committed state.
func (s *Store) GetRoom(roomNumber string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindRoom(roomNumber)
}

// ListRooms returns all committed rooms in registry order.
func (s *Store) ListRooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListRooms()
}

// GetStudent retrieves a student from committed state.
func (s *Store) GetStudent(id string) (Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindStudent(id)
}

// ListStudents returns all committed students in registry order.
func (s *Store) ListStudents() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListStudents()
}
