package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"hostelcore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordAuditSuccessUsesMetadata(t *testing.T) {
	fixed := time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC)
	recorder := &auditRecorderStub{}
	svc := newTestService(t, WithAuditRecorder(recorder), WithClock(ClockFunc(func() time.Time { return fixed })))

	svc.recordAuditSuccess(context.Background(), opChangeRoom, "student-1", 42*time.Millisecond)

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Entity != domain.EntityStudent || entry.Action != domain.ActionUpdate {
		t.Fatalf("unexpected metadata %+v", entry)
	}
	if entry.EntityID != "student-1" || entry.Status != AuditStatusSuccess || entry.Duration != 42*time.Millisecond {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, entry.Timestamp)
	}
}

func TestRecordAuditSuccessIgnoresUnknownOperation(t *testing.T) {
	recorder := &auditRecorderStub{}
	svc := newTestService(t, WithAuditRecorder(recorder))
	svc.recordAuditSuccess(context.Background(), "list_rooms", "x", time.Second)
	if len(recorder.entries) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(recorder.entries))
	}
}

func TestServiceRunRecordsOutcomes(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	audit := &auditRecorderStub{}
	svc := newTestService(t,
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)

	mustCreateRoom(t, svc, "101", 1)
	if _, _, err := svc.CreateRoom(context.Background(), "101", 1); !errors.Is(err, domain.ErrDuplicateRoom) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	if !slices.Equal(tracer.started, []string{opCreateRoom, opCreateRoom}) {
		t.Fatalf("unexpected spans %v", tracer.started)
	}
	if tracer.ended[0] != nil || tracer.ended[1] == nil {
		t.Fatalf("unexpected span errors %v", tracer.ended)
	}
	want := []metricsCall{{opCreateRoom, true}, {opCreateRoom, false}}
	if !slices.Equal(metrics.calls, want) {
		t.Fatalf("expected metrics %v, got %v", want, metrics.calls)
	}
	if len(audit.entries) != 2 || audit.entries[0].EntityID != "101" || audit.entries[1].Status != AuditStatusError {
		t.Fatalf("unexpected audit entries %+v", audit.entries)
	}
	if calls := logger.snapshot(); !slices.Equal(calls, []string{"d:operation completed", "w:operation rejected"}) {
		t.Fatalf("unexpected log calls %v", calls)
	}
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) RunInTransaction(context.Context, func(domain.Transaction) error) (Result, error) {
	return Result{}, s.err
}

func TestServiceRunLogsInfrastructureErrors(t *testing.T) {
	logger := &captureLogger{}
	svc := NewService(failingStore{MemoryStore: NewMemoryStore(nil), err: errors.New("disk gone")}, WithLogger(logger))
	if _, _, err := svc.CreateRoom(context.Background(), "101", 1); err == nil {
		t.Fatalf("expected store error")
	}
	if calls := logger.snapshot(); !slices.Equal(calls, []string{"e:operation failed"}) {
		t.Fatalf("unexpected log calls %v", calls)
	}
}

func TestTransactLogsRuleWarnings(t *testing.T) {
	logger := &captureLogger{}
	engine := NewRulesEngine()
	engine.Register(warnRule{})
	svc := NewInMemoryService(engine, WithLogger(logger))

	_, res, err := svc.CreateRoom(context.Background(), "101", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected warning in result, got %+v", res)
	}
	if calls := logger.snapshot(); !slices.Contains(calls, "w:rule warning") {
		t.Fatalf("expected rule warning logged, got %v", calls)
	}
}

type failingLocker struct{ fail string }

func (l failingLocker) Lock(_ context.Context, key string) (func(), error) {
	if key == l.fail {
		return nil, fmt.Errorf("lock %s busy", key)
	}
	return func() {}, nil
}

func TestServiceLockFailureAbortsOperation(t *testing.T) {
	svc := newTestService(t, WithLocker(failingLocker{fail: registryLockKey}))
	if _, _, err := svc.CreateRoom(context.Background(), "101", 1); err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("expected lock error, got %v", err)
	}
	if _, err := svc.GetRoom("101"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("room must not be created without the lock, got %v", err)
	}
}

type orderLocker struct {
	acquired []string
	released []string
}

func (l *orderLocker) Lock(_ context.Context, key string) (func(), error) {
	l.acquired = append(l.acquired, key)
	return func() { l.released = append(l.released, key) }, nil
}

func TestEveryMutationTakesRegistryLock(t *testing.T) {
	locker := &orderLocker{}
	svc := newTestService(t, WithLocker(locker))
	ctx := context.Background()

	mustCreateRoom(t, svc, "101", 2)
	mustCreateRoom(t, svc, "102", 2)
	a := mustRegister(t, svc, "A1", 1, "101")
	b := mustRegister(t, svc, "B1", 1, "102")
	if _, _, err := svc.ExchangeRooms(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if _, _, err := svc.ChangeRoom(ctx, a.ID, "101"); err != nil {
		t.Fatalf("change room: %v", err)
	}
	if _, _, err := svc.UnassignStudent(ctx, b.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, _, err := svc.AllocateRooms(ctx); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if len(locker.acquired) != 8 {
		t.Fatalf("expected 8 lock acquisitions, got %v", locker.acquired)
	}
	for _, key := range locker.acquired {
		if key != registryLockKey {
			t.Fatalf("mutation locked %q, want %q", key, registryLockKey)
		}
	}
	if len(locker.released) != len(locker.acquired) {
		t.Fatalf("released %d of %d locks", len(locker.released), len(locker.acquired))
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")

	var audit noopAuditRecorder
	audit.Record(context.Background(), AuditEntry{})

	var metrics noopMetricsRecorder
	metrics.Observe(context.Background(), "noop", true, 0)

	ctx, span := noopTracer{}.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(nil)

	unlock, err := noopLocker{}.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("noop lock: %v", err)
	}
	unlock()
}

func TestExpvarRecorderCountsOperations(t *testing.T) {
	rec := NewExpvarRecorder()
	svc := newTestService(t, WithMetricsRecorder(rec))
	mustCreateRoom(t, svc, "101", 1)
	_, _, _ = svc.CreateRoom(context.Background(), "101", 1)
	rec.Observe(context.Background(), "", true, time.Second)

	if rec.Calls(opCreateRoom) != 2 || rec.Failures(opCreateRoom) != 1 {
		t.Fatalf("expected 2 calls and 1 failure, got %d and %d", rec.Calls(opCreateRoom), rec.Failures(opCreateRoom))
	}
	if rec.Calls("") != 0 {
		t.Fatalf("empty operation must be ignored")
	}

	w := httptest.NewRecorder()
	rec.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var body map[string]map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if body["operations_total"][opCreateRoom] != 2 || body["operation_failures_total"][opCreateRoom] != 1 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["operation_duration_ms_total"][opCreateRoom]; !ok {
		t.Fatalf("expected duration for %s in %v", opCreateRoom, body)
	}
}

func TestExpvarRecorderPublishRejectsTakenName(t *testing.T) {
	name := "hostelcore_" + strings.ReplaceAll(t.Name(), "/", "_")
	if err := NewExpvarRecorder().Publish(name); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := NewExpvarRecorder().Publish(name); err == nil {
		t.Fatalf("expected duplicate publish to fail")
	}
}

func TestJSONLinesTracerWritesOneSpanPerOperation(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONLinesTracer(&buf)
	svc := newTestService(t, WithTracer(tracer))
	mustCreateRoom(t, svc, "101", 1)
	if _, _, err := svc.UnassignStudent(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 span lines, got %q", buf.String())
	}
	type span struct {
		Name      string  `json:"span"`
		Outcome   string  `json:"outcome"`
		ErrorKind string  `json:"error_kind"`
		Duration  float64 `json:"duration_ms"`
		EndedAt   string  `json:"ended_at"`
	}
	var first, second span
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode %q: %v", lines[0], err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode %q: %v", lines[1], err)
	}
	if first.Name != opCreateRoom || first.Outcome != "success" || first.ErrorKind != "" || first.EndedAt == "" {
		t.Fatalf("unexpected first span %+v", first)
	}
	if second.Name != opUnassignStudent || second.Outcome != "error" || second.ErrorKind != "student_not_found" {
		t.Fatalf("unexpected second span %+v", second)
	}
}

func TestOpenJSONLinesTracerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.jsonl")
	for range 2 {
		tracer, closer, err := OpenJSONLinesTracer(path)
		if err != nil {
			t.Fatalf("open tracer: %v", err)
		}
		_, span := tracer.Start(context.Background(), opAllocateRooms)
		span.End(nil)
		if err := closer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read traces: %v", err)
	}
	if n := strings.Count(string(data), opAllocateRooms); n != 2 {
		t.Fatalf("expected 2 appended spans, got %d in %q", n, data)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	svc := newTestService(t, WithMetricsRecorder(rec))
	mustCreateRoom(t, svc, "101", 1)
	_, _, _ = svc.CreateRoom(context.Background(), "101", 1)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(opCreateRoom, "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(opCreateRoom, "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}

	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again.operations != rec.operations {
		t.Fatalf("expected existing collector reused")
	}
}

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := newTestService(t, WithLogger(NewZapLogger(zap.New(core))))
	if _, _, err := svc.UnassignStudent(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}
	entries := logs.FilterMessage("operation rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected one rejection log, got %d", logs.Len())
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != opUnassignStudent || fields["kind"] != "student_not_found" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %v", entries[0].Level)
	}
	NewZapLogger(nil).Info("discarded")
}

func TestNewZapProductionLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewZapProductionLogger("debug", format)
		if err != nil {
			t.Fatalf("build %s logger: %v", format, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("expected debug enabled for %s", format)
		}
	}
	logger, err := NewZapProductionLogger("bogus", "json")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("unknown level must fall back to info")
	}
}
