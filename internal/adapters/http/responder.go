package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"hostelcore/internal/core"
	"hostelcore/pkg/domain"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errUnauthorized   = errors.New("unauthorized")
)

// kindMessages holds the client-facing message for each error kind.
var kindMessages = map[string]string{
	"duplicate_room":      "Room already exists",
	"room_not_found":      "Room not found",
	"student_not_found":   "Student not found",
	"duplicate_student":   "Student already exists",
	"room_full":           "Room is already at full capacity",
	"no_vacancy":          "No vacant rooms available. Please create rooms first.",
	"no_rooms":            "No rooms found. Please create rooms first.",
	"cohort_mismatch":     "Room is allocated for different year students",
	"no_room_assigned":    "Student doesn't have a room assigned",
	"invalid_room_number": "Invalid room number",
	"unsupported_year":    "Year must be between 1 and 4",
	"validation":          "Invalid request",
	"rule_violation":      "Operation violates registry rules",
}

type errorResponse struct {
	Message   string            `json:"message"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger core.Logger
}

func (r responder) writeJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.logger.Error("failed to encode response", "error", err)
	}
}

func (r responder) writeError(w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(w, status, errorResponse{Message: message})
}

// handleServiceError maps not-found kinds to 404, other domain kinds to 400
// and anything else to 500.
func (r responder) handleServiceError(w http.ResponseWriter, err error) {
	kind := core.ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case core.IsClientError(err):
		status = http.StatusBadRequest
	}

	resp := errorResponse{ErrorKind: kind}
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "error", err, "error_kind", kind)
		resp.Message = "Internal server error"
		r.writeJSON(w, status, resp)
		return
	}
	resp.Message = kindMessages[kind]
	resp.Detail = err.Error()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.FieldErrors
	}
	r.writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// publicStudent drops fields that must never leave the server.
func publicStudent(s core.Student) core.Student {
	s.PasswordHash = ""
	return s
}

func publicStudents(in []core.Student) []core.Student {
	out := make([]core.Student, len(in))
	for i, s := range in {
		out[i] = publicStudent(s)
	}
	return out
}
