// Package httpapi exposes the allocation engine over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"

	"hostelcore/internal/adapters/roster"
	"hostelcore/internal/blob"
	"hostelcore/internal/core"
	"hostelcore/internal/jobs"
)

// Service is the subset of core.Service served over HTTP.
type Service interface {
	CreateRoom(ctx context.Context, roomNumber string, capacity int) (core.Room, core.Result, error)
	RoomDetails(ctx context.Context, filter core.RoomFilter) ([]core.RoomDetail, error)
	RoomOccupants(ctx context.Context, roomNumber string) ([]core.Student, error)
	OccupancyStats(ctx context.Context) (core.OccupancyStats, error)
	GenerateRooms(ctx context.Context) (int, core.Result, error)
	AllocateRooms(ctx context.Context) (core.AllocationReport, core.Result, error)
	GenerateStudents(ctx context.Context, count int) (core.GenerationReport, core.Result, error)
	RegisterStudent(ctx context.Context, reg core.Registration) (core.Student, core.Result, error)
	UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, core.Result, error)
	DeactivateStudent(ctx context.Context, rollNumber string) (core.Student, core.Result, error)
	ListStudents(active bool) []core.Student
	GetStudentByRollNumber(ctx context.Context, rollNumber string) (core.Student, error)
	ChangeRoom(ctx context.Context, studentID, newRoomNumber string) (core.RoomChange, core.Result, error)
	ExchangeRooms(ctx context.Context, firstID, secondID string) (core.Exchange, core.Result, error)
	UnassignStudent(ctx context.Context, studentID string) (core.Student, core.Result, error)
}

var _ Service = (*core.Service)(nil)

// ExportScheduler queues roster exports and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input roster.ExportInput) (roster.ExportRecord, error)
	GetExport(id string) (roster.ExportRecord, bool)
}

// JobRunner runs operations in the background.
type JobRunner interface {
	Submit(kind string, fn jobs.Func) (jobs.Job, error)
	Get(id string) (jobs.Job, bool)
}

// Config wires the router. Exports, Jobs, Blobs and Metrics are optional;
// their routes answer 404 when unset.
type Config struct {
	Service    Service
	Exports    ExportScheduler
	Jobs       JobRunner
	Blobs      blob.Store
	Metrics    http.Handler
	AdminToken string
	Logger     core.Logger
}

// Handler serves the admin API.
type Handler struct {
	svc     Service
	exports ExportScheduler
	jobs    JobRunner
	blobs   blob.Store
	resp    responder
	logger  core.Logger
}

// NewRouter builds the HTTP handler. Every route except /healthz and
// /metrics requires the admin token.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = core.NopLogger()
	}
	h := &Handler{
		svc:     cfg.Service,
		exports: cfg.Exports,
		jobs:    cfg.Jobs,
		blobs:   cfg.Blobs,
		resp:    responder{logger: logger},
		logger:  logger,
	}

	admin := http.NewServeMux()
	admin.HandleFunc("POST /room", h.createRoom)
	admin.HandleFunc("GET /rooms", h.listRooms)
	admin.HandleFunc("GET /rooms/vacancy", h.roomsByVacancy)
	admin.HandleFunc("GET /room/{roomNumber}/students", h.roomStudents)
	admin.HandleFunc("GET /occupancy-stats", h.occupancyStats)
	admin.HandleFunc("POST /allocate-rooms", h.allocateRooms)
	admin.HandleFunc("POST /generate-rooms", h.generateRooms)
	admin.HandleFunc("POST /generate-students", h.generateStudents)
	admin.HandleFunc("GET /jobs/{id}", h.getJob)
	admin.HandleFunc("PUT /change-student-room", h.changeRoom)
	admin.HandleFunc("PUT /exchange-student-rooms", h.exchangeRooms)
	admin.HandleFunc("PUT /unassign-student-room", h.unassignRoom)
	admin.HandleFunc("POST /student-register", h.registerStudent)
	admin.HandleFunc("PUT /student-delete", h.deactivateStudent)
	admin.HandleFunc("GET /get-active-students", h.activeStudents)
	admin.HandleFunc("GET /get-inactive-students", h.inactiveStudents)
	admin.HandleFunc("GET /student-details/{rollNumber}", h.studentDetails)
	admin.HandleFunc("PUT /update-student/{id}", h.updateStudent)
	admin.HandleFunc("POST /exports/roster", h.createExport)
	admin.HandleFunc("GET /exports/{id}", h.getExport)
	admin.HandleFunc("GET /exports/files/{key...}", h.downloadArtifact)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		h.resp.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	mux.Handle("/", RequireAdmin(cfg.AdminToken, logger)(admin))

	return RequestLogger(logger)(mux)
}
