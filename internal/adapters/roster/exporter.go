// Package roster renders room rosters (CSV and XLSX) in the background and
// stores the artifacts in blob storage.
package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hostelcore/internal/blob"
	"hostelcore/internal/core"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored roster artifact.
type ExportArtifact struct {
	Format      Format    `json:"format"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Filter      core.RoomFilter  `json:"filter"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (r ExportRecord) copy() ExportRecord {
	out := r
	out.Formats = slices.Clone(r.Formats)
	out.Artifacts = slices.Clone(r.Artifacts)
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Formats     []Format
	Filter      core.RoomFilter
	RequestedBy string
}

// Source supplies the rooms to render.
type Source interface {
	RoomDetails(ctx context.Context, filter core.RoomFilter) ([]core.RoomDetail, error)
}

// ErrQueueFull is returned when the worker cannot accept more exports.
var ErrQueueFull = errors.New("roster export queue full")

// DefaultLinkExpiry is how long presigned artifact URLs stay valid.
const DefaultLinkExpiry = 15 * time.Minute

// Worker executes roster exports asynchronously.
type Worker struct {
	source Source
	store  blob.Store
	logger core.Logger
	expiry time.Duration

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type exportTask struct {
	id    string
	input ExportInput
}

// Option customises a Worker.
type Option func(*Worker)

// WithLogger routes worker failures to logger.
func WithLogger(logger core.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLinkExpiry sets the lifetime of presigned artifact URLs.
func WithLinkExpiry(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.expiry = d
		}
	}
}

// WithQueueSize overrides the pending export buffer (default 32).
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan exportTask, n)
		}
	}
}

// NewWorker constructs an export worker.
func NewWorker(source Source, store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source: source,
		store:  store,
		logger: core.NopLogger(),
		expiry: DefaultLinkExpiry,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion. Queued exports
// that have not started are left in the queued state.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(w.cancel)
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
// Formats default to csv and xlsx; duplicates are dropped.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	if w.source == nil || w.store == nil {
		return ExportRecord{}, fmt.Errorf("roster export not configured")
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatCSV, FormatXLSX}
	}
	uniq := make([]Format, 0, len(formats))
	for _, format := range formats {
		if _, err := ParseFormat(string(format)); err != nil {
			return ExportRecord{}, err
		}
		if !slices.Contains(uniq, format) {
			uniq = append(uniq, format)
		}
	}
	filter := input.Filter
	if filter == "" {
		filter = core.RoomFilterAll
	}

	now := time.Now().UTC()
	record := ExportRecord{
		ID:          uuid.NewString(),
		Filter:      filter,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	input.Formats = uniq
	input.Filter = filter

	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- exportTask{id: record.ID, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning)

	details, err := w.source.RoomDetails(w.ctx, task.input.Filter)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("load rooms: %v", err))
		return
	}
	rows := Rows(details)

	artifacts := make([]ExportArtifact, len(task.input.Formats))
	g, ctx := errgroup.WithContext(w.ctx)
	for i, format := range task.input.Formats {
		g.Go(func() error {
			artifact, err := w.materialize(ctx, task.id, format, rows)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.fail(task.id, err.Error())
		return
	}
	w.complete(task.id, artifacts)
}

func (w *Worker) materialize(ctx context.Context, id string, format Format, rows []Row) (ExportArtifact, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case FormatCSV:
		payload, err = RenderCSV(rows)
	case FormatXLSX:
		payload, err = RenderXLSX(rows)
	default:
		err = fmt.Errorf("unsupported format")
	}
	if err != nil {
		return ExportArtifact{}, fmt.Errorf("render: %w", err)
	}
	key := ArtifactKey(id, format)
	info, err := blob.PutBytes(ctx, w.store, key, payload, format.ContentType())
	if err != nil {
		return ExportArtifact{}, fmt.Errorf("store artifact: %w", err)
	}
	url, err := w.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: w.expiry})
	if err != nil && !errors.Is(err, blob.ErrUnsupported) {
		return ExportArtifact{}, fmt.Errorf("presign: %w", err)
	}
	created := info.LastModified
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return ExportArtifact{
		Format:      format,
		Key:         key,
		ContentType: format.ContentType(),
		SizeBytes:   int64(len(payload)),
		URL:         url,
		CreatedAt:   created,
	}, nil
}

// ArtifactKey is the blob key of an export artifact.
func ArtifactKey(id string, format Format) string {
	return fmt.Sprintf("rosters/%s/roster.%s", id, format)
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("roster export completed", "export_id", id, "artifacts", len(artifacts))
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Error("roster export failed", "export_id", id, "error", reason)
}
