// Package allocation implements the greedy room allocation policies: single
// student placement, bulk placement over partial-then-empty rooms, and the
// cohort-aware pass used when seeding a full population.
//
// Policies never touch storage directly. They read rooms from a Registry and
// record each placement through Registry.Assign, so callers decide how the
// placement is persisted (usually inside a store transaction).
package allocation

import (
	"context"
	"math/rand/v2"

	"hostelcore/pkg/domain"
)

// Registry is the room registry view the policies consume.
type Registry interface {
	ListRooms() []domain.Room
	// Assign places an unassigned student into the room, updating both the
	// room's occupants and the student's room number.
	Assign(studentID, roomNumber string) error
}

// Shuffler permutes n elements through swap, matching rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// RandomShuffle permutes with the package-level math/rand/v2 source.
func RandomShuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NoShuffle keeps the input order. Useful for reproducible tests.
func NoShuffle(int, func(i, j int)) {}

// SeededShuffle returns a deterministic Shuffler backed by a PCG source.
func SeededShuffle(seed1, seed2 uint64) Shuffler {
	rng := rand.New(rand.NewPCG(seed1, seed2))
	return rng.Shuffle
}

// Assignment records one placement made by a policy.
type Assignment struct {
	StudentID  string
	RoomNumber string
}

// Outcome summarises a bulk run.
type Outcome struct {
	Assignments []Assignment
	// Exhausted is set when students were left over because every candidate
	// room filled up.
	Exhausted bool
}

// Allocated returns the number of students placed.
func (o Outcome) Allocated() int { return len(o.Assignments) }

func (o *Outcome) record(studentID, roomNumber string) {
	o.Assignments = append(o.Assignments, Assignment{StudentID: studentID, RoomNumber: roomNumber})
}

// PickRoom selects the room for a single student: the first partially filled
// room in registry order, otherwise the first empty one.
func PickRoom(rooms []domain.Room) (domain.Room, error) {
	for _, room := range rooms {
		if room.Partial() {
			return room, nil
		}
	}
	for _, room := range rooms {
		if room.Empty() && room.Vacant() {
			return room, nil
		}
	}
	return domain.Room{}, domain.ErrNoVacancy
}

// OrderCandidates returns the partially filled rooms followed by the empty
// rooms, each tier in registry order. Full rooms are dropped.
func OrderCandidates(rooms []domain.Room) []domain.Room {
	partial := make([]domain.Room, 0, len(rooms))
	empty := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		switch {
		case room.Partial():
			partial = append(partial, room)
		case room.Empty() && room.Vacant():
			empty = append(empty, room)
		}
	}
	return append(partial, empty...)
}

// Sequential places studentIDs in order over the partial-then-empty candidate
// list. A shared cursor stays on a room until it is full. When the cursor runs
// off the end of the list the candidates are re-read from the registry; if none
// remain the run stops with a partial Outcome rather than an error.
//
// ErrNoVacancy is returned only when there are no candidates at the start.
func Sequential(ctx context.Context, reg Registry, studentIDs []string) (Outcome, error) {
	var out Outcome
	rooms := OrderCandidates(reg.ListRooms())
	if len(rooms) == 0 {
		return out, domain.ErrNoVacancy
	}
	cursor := 0
	for _, id := range studentIDs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for !rooms[cursor].Vacant() {
			cursor++
			if cursor < len(rooms) {
				continue
			}
			rooms = OrderCandidates(reg.ListRooms())
			cursor = 0
			if len(rooms) == 0 {
				out.Exhausted = true
				return out, nil
			}
		}
		room := &rooms[cursor]
		if err := reg.Assign(id, room.RoomNumber); err != nil {
			return out, err
		}
		room.Occupants = append(room.Occupants, id)
		out.record(id, room.RoomNumber)
	}
	return out, nil
}

// Cohort places students year by year into rooms on the floors mapped to that
// year. Rooms are permuted with shuffle first. When a cohort has at least two
// students per room, every room first receives two students and the rest are
// spread round-robin; otherwise each room is filled before moving on. A cohort
// whose rooms are all full leaves its remaining students unassigned.
func Cohort(ctx context.Context, reg Registry, students []domain.Student, shuffle Shuffler) (Outcome, error) {
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	byYear := make(map[int][]string, len(domain.Years))
	for _, s := range students {
		byYear[s.Year] = append(byYear[s.Year], s.ID)
	}
	roomsByYear := make(map[int][]domain.Room, len(domain.Years))
	for _, room := range reg.ListRooms() {
		year, ok := domain.YearForRoom(room.RoomNumber)
		if !ok {
			continue
		}
		roomsByYear[year] = append(roomsByYear[year], room)
	}

	var out Outcome
	for _, year := range domain.Years {
		ids := byYear[year]
		rooms := roomsByYear[year]
		if len(ids) == 0 {
			continue
		}
		if len(rooms) == 0 {
			out.Exhausted = true
			continue
		}
		shuffle(len(rooms), func(i, j int) { rooms[i], rooms[j] = rooms[j], rooms[i] })
		c := cohortRun{ctx: ctx, reg: reg, rooms: rooms, out: &out}
		var err error
		if len(ids) >= 2*len(rooms) {
			err = c.pairsThenRoundRobin(ids)
		} else {
			err = c.fillInOrder(ids)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

type cohortRun struct {
	ctx   context.Context
	reg   Registry
	rooms []domain.Room
	out   *Outcome
}

func (c *cohortRun) assign(studentID string, idx int) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	room := &c.rooms[idx]
	if err := c.reg.Assign(studentID, room.RoomNumber); err != nil {
		return err
	}
	room.Occupants = append(room.Occupants, studentID)
	c.out.record(studentID, room.RoomNumber)
	return nil
}

// nextVacant probes at most len(rooms) positions starting at from.
func (c *cohortRun) nextVacant(from int) (int, bool) {
	n := len(c.rooms)
	for probe := range n {
		idx := (from + probe) % n
		if c.rooms[idx].Vacant() {
			return idx, true
		}
	}
	return 0, false
}

func (c *cohortRun) pairsThenRoundRobin(ids []string) error {
	next := 0
	for idx := range c.rooms {
		for k := 0; k < 2 && next < len(ids) && c.rooms[idx].Vacant(); k++ {
			if err := c.assign(ids[next], idx); err != nil {
				return err
			}
			next++
		}
	}
	cursor := 0
	for ; next < len(ids); next++ {
		idx, ok := c.nextVacant(cursor)
		if !ok {
			c.out.Exhausted = true
			return nil
		}
		if err := c.assign(ids[next], idx); err != nil {
			return err
		}
		cursor = (idx + 1) % len(c.rooms)
	}
	return nil
}

func (c *cohortRun) fillInOrder(ids []string) error {
	cursor := 0
	for _, id := range ids {
		idx, ok := c.nextVacant(cursor)
		if !ok {
			c.out.Exhausted = true
			return nil
		}
		if err := c.assign(id, idx); err != nil {
			return err
		}
		cursor = idx
	}
	return nil
}
