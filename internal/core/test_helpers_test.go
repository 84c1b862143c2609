package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"hostelcore/internal/allocation"
	"hostelcore/pkg/domain"

	"golang.org/x/crypto/bcrypt"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

// newTestService builds an in-memory service with cheap hashing and a
// deterministic room order.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithBcryptCost(bcrypt.MinCost), WithShuffler(allocation.NoShuffle)}
	return NewInMemoryService(nil, append(base, opts...)...)
}

func mustCreateRoom(t *testing.T, svc *Service, number string, capacity int) Room {
	t.Helper()
	room, _, err := svc.CreateRoom(context.Background(), number, capacity)
	if err != nil {
		t.Fatalf("create room %s: %v", number, err)
	}
	return room
}

func mustRegister(t *testing.T, svc *Service, roll string, year int, roomNumber string) Student {
	t.Helper()
	student, _, err := svc.RegisterStudent(context.Background(), Registration{
		Name:       "Student " + roll,
		RollNumber: roll,
		Branch:     "CSE",
		Year:       year,
		Email:      roll + "@example.com",
		RoomNumber: roomNumber,
	})
	if err != nil {
		t.Fatalf("register %s: %v", roll, err)
	}
	return student
}

// assertConsistent checks capacity and bidirectional room/student agreement
// on committed state.
func assertConsistent(t *testing.T, svc *Service) {
	t.Helper()
	holder := make(map[string]string)
	for _, room := range svc.ListRooms(RoomFilterAll) {
		if len(room.Occupants) > room.Capacity {
			t.Fatalf("room %s over capacity: %d/%d", room.RoomNumber, len(room.Occupants), room.Capacity)
		}
		for _, id := range room.Occupants {
			if prev, dup := holder[id]; dup {
				t.Fatalf("student %s listed in %s and %s", id, prev, room.RoomNumber)
			}
			holder[id] = room.RoomNumber
		}
	}
	for _, active := range []bool{true, false} {
		for _, student := range svc.ListStudents(active) {
			if holder[student.ID] != student.RoomNumber {
				t.Fatalf("student %s records room %q, rooms list %q", student.ID, student.RoomNumber, holder[student.ID])
			}
		}
	}
}

func occupants(t *testing.T, svc *Service, number string) []string {
	t.Helper()
	room, err := svc.GetRoom(number)
	if err != nil {
		t.Fatalf("get room %s: %v", number, err)
	}
	return room.Occupants
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (l *captureLogger) record(prefix, msg string) {
	l.mu.Lock()
	l.calls = append(l.calls, prefix+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("d:", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("i:", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("w:", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("e:", msg) }

func (l *captureLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type auditRecorderStub struct {
	entries []AuditEntry
}

func (r *auditRecorderStub) Record(_ context.Context, entry AuditEntry) {
	r.entries = append(r.entries, entry)
}

type metricsCall struct {
	operation string
	success   bool
}

type captureMetrics struct {
	calls []metricsCall
}

func (m *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.calls = append(m.calls, metricsCall{operation: op, success: success})
}

type captureTracer struct {
	started []string
	ended   []error
}

type captureSpan struct {
	tracer *captureTracer
}

func (t *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	t.started = append(t.started, op)
	return ctx, captureSpan{tracer: t}
}

func (s captureSpan) End(err error) { s.tracer.ended = append(s.tracer.ended, err) }

type blockingRule struct{}

func (blockingRule) Name() string { return "blocking" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "blocking", Severity: domain.SeverityBlock, Message: "no"}}}, nil
}

type warnRule struct{}

func (warnRule) Name() string { return "warn" }

func (warnRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "warn", Severity: domain.SeverityWarn, Message: "careful"}}}, nil
}
