package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"hostelcore/internal/adapters/roster"
	"hostelcore/internal/blob"
	"hostelcore/internal/core"
	"hostelcore/internal/provisioning"
	"hostelcore/pkg/domain"
)

const jobGenerateStudents = "generate_students"

func (h *Handler) generateStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	count := 0
	if raw := query.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > provisioning.MaxStudentCount {
			verr := domain.NewValidationError()
			verr.Add("count", fmt.Sprintf("must be an integer between 0 and %d", provisioning.MaxStudentCount))
			h.resp.handleServiceError(w, verr)
			return
		}
		count = n
	}

	if async, _ := strconv.ParseBool(query.Get("async")); async {
		if h.jobs == nil {
			h.resp.writeError(w, http.StatusNotImplemented, errors.New("background jobs are not enabled"))
			return
		}
		job, err := h.jobs.Submit(jobGenerateStudents, func(ctx context.Context) (any, error) {
			report, _, err := h.svc.GenerateStudents(ctx, count)
			return report, err
		})
		if err != nil {
			h.resp.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		h.resp.writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "Student generation started",
			"jobId":   job.ID,
			"job":     job,
		})
		return
	}

	report, _, err := h.svc.GenerateStudents(r.Context(), count)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusCreated, map[string]any{
		"message":        fmt.Sprintf("Successfully created %d random students and allocated %d to rooms by year", report.Count, report.AllocatedCount),
		"count":          report.Count,
		"allocatedCount": report.AllocatedCount,
	})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.NotFound(w, r)
		return
	}
	job, ok := h.jobs.Get(r.PathValue("id"))
	if !ok {
		h.resp.writeJSON(w, http.StatusNotFound, errorResponse{Message: "Job not found"})
		return
	}
	h.resp.writeJSON(w, http.StatusOK, job)
}

type exportRequest struct {
	Formats []string `json:"formats"`
	Status  string   `json:"status"`
}

func (h *Handler) createExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		http.NotFound(w, r)
		return
	}
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	filter, err := core.ParseRoomFilter(req.Status)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	formats := make([]roster.Format, 0, len(req.Formats))
	for _, raw := range req.Formats {
		format, err := roster.ParseFormat(raw)
		if err != nil {
			verr := domain.NewValidationError()
			verr.Add("formats", err.Error())
			h.resp.handleServiceError(w, verr)
			return
		}
		formats = append(formats, format)
	}
	record, err := h.exports.EnqueueExport(r.Context(), roster.ExportInput{
		Formats:     formats,
		Filter:      filter,
		RequestedBy: "admin",
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, roster.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		h.resp.writeError(w, status, err)
		return
	}
	h.resp.writeJSON(w, http.StatusAccepted, record)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		http.NotFound(w, r)
		return
	}
	record, ok := h.exports.GetExport(r.PathValue("id"))
	if !ok {
		h.resp.writeJSON(w, http.StatusNotFound, errorResponse{Message: "Export not found"})
		return
	}
	h.resp.writeJSON(w, http.StatusOK, record)
}

// downloadArtifact serves blobs for drivers without native URLs.
func (h *Handler) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		http.NotFound(w, r)
		return
	}
	info, body, err := h.blobs.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			h.resp.writeJSON(w, http.StatusNotFound, errorResponse{Message: "Artifact not found"})
			return
		}
		h.logger.Error("artifact download failed", "key", r.PathValue("key"), "error", err)
		h.resp.writeError(w, http.StatusInternalServerError, nil)
		return
	}
	defer func() { _ = body.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("artifact copy interrupted", "key", r.PathValue("key"), "error", err)
	}
}
