package core

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ExpvarRecorder counts service operations in expvar maps keyed by operation
// name. The maps are private to the recorder; ServeHTTP renders them, and
// Publish optionally exposes them on the process-wide /debug/vars page.
type ExpvarRecorder struct {
	calls      *expvar.Map
	failures   *expvar.Map
	durationMS *expvar.Map
	root       *expvar.Map
}

// NewExpvarRecorder returns an empty recorder.
func NewExpvarRecorder() *ExpvarRecorder {
	r := &ExpvarRecorder{
		calls:      new(expvar.Map).Init(),
		failures:   new(expvar.Map).Init(),
		durationMS: new(expvar.Map).Init(),
		root:       new(expvar.Map).Init(),
	}
	r.root.Set("operations_total", r.calls)
	r.root.Set("operation_failures_total", r.failures)
	r.root.Set("operation_duration_ms_total", r.durationMS)
	return r
}

// Observe implements MetricsRecorder.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.calls.Add(operation, 1)
	if !success {
		r.failures.Add(operation, 1)
	}
	r.durationMS.AddFloat(operation, float64(duration)/float64(time.Millisecond))
}

// Calls returns how many times operation was observed.
func (r *ExpvarRecorder) Calls(operation string) int64 {
	return intVar(r.calls, operation)
}

// Failures returns how many observations of operation failed.
func (r *ExpvarRecorder) Failures(operation string) int64 {
	return intVar(r.failures, operation)
}

func intVar(m *expvar.Map, key string) int64 {
	if v, ok := m.Get(key).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// Publish registers the recorder under name in the expvar registry.
// expvar names are process-wide, so a name already in use is an error.
func (r *ExpvarRecorder) Publish(name string) error {
	if expvar.Get(name) != nil {
		return fmt.Errorf("expvar %q already published", name)
	}
	expvar.Publish(name, r.root)
	return nil
}

// ServeHTTP writes the counters as one JSON object.
func (r *ExpvarRecorder) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.WriteString(w, r.root.String())
}

// JSONLinesTracer writes one JSON object per finished operation span.
type JSONLinesTracer struct {
	spans *zap.Logger
	now   func() time.Time
}

// NewJSONLinesTracer encodes spans to w.
func NewJSONLinesTracer(w io.Writer) *JSONLinesTracer {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ended_at"
	enc.MessageKey = "span"
	enc.LevelKey = zapcore.OmitKey
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	sink := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)
	return &JSONLinesTracer{spans: zap.New(sink), now: time.Now}
}

// OpenJSONLinesTracer appends spans to the file at path, creating it and its
// parent directory when missing. The returned closer closes the file.
func OpenJSONLinesTracer(path string) (*JSONLinesTracer, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewJSONLinesTracer(f), f, nil
}

// Start implements Tracer.
func (t *JSONLinesTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonLinesSpan{tracer: t, operation: operation, started: t.now()}
}

type jsonLinesSpan struct {
	tracer    *JSONLinesTracer
	operation string
	started   time.Time
}

func (s *jsonLinesSpan) End(err error) {
	elapsed := s.tracer.now().Sub(s.started)
	fields := []zap.Field{
		zap.Time("started_at", s.started),
		zap.Float64("duration_ms", float64(elapsed)/float64(time.Millisecond)),
		zap.String("outcome", "success"),
	}
	if err != nil {
		fields[2] = zap.String("outcome", "error")
		fields = append(fields, zap.String("error_kind", ErrorKind(err)), zap.String("error", err.Error()))
	}
	s.tracer.spans.Info(s.operation, fields...)
}
