package httpapi

import (
	"fmt"
	"net/http"

	"hostelcore/internal/core"
	"hostelcore/pkg/domain"
)

type createRoomRequest struct {
	RoomNumber string `json:"roomNumber"`
	Capacity   *int   `json:"capacity"`
}

func (req createRoomRequest) validate() error {
	verr := domain.NewValidationError()
	if req.RoomNumber == "" {
		verr.Add("roomNumber", "is required")
	}
	if req.Capacity == nil {
		verr.Add("capacity", "is required")
	}
	return verr.OrNil()
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := req.validate(); err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	room, _, err := h.svc.CreateRoom(r.Context(), req.RoomNumber, *req.Capacity)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Room created successfully",
		"room":    room,
	})
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	h.writeRooms(w, r, core.RoomFilterAll)
}

func (h *Handler) roomsByVacancy(w http.ResponseWriter, r *http.Request) {
	filter, err := core.ParseRoomFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.writeRooms(w, r, filter)
}

func (h *Handler) writeRooms(w http.ResponseWriter, r *http.Request, filter core.RoomFilter) {
	rooms, err := h.svc.RoomDetails(r.Context(), filter)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) roomStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.RoomOccupants(r.Context(), r.PathValue("roomNumber"))
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, publicStudents(students))
}

func (h *Handler) occupancyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.OccupancyStats(r.Context())
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) generateRooms(w http.ResponseWriter, r *http.Request) {
	count, _, err := h.svc.GenerateRooms(r.Context())
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Successfully created %d rooms across %d floors", count, domain.FloorCount),
		"count":   count,
	})
}

func (h *Handler) allocateRooms(w http.ResponseWriter, r *http.Request) {
	report, _, err := h.svc.AllocateRooms(r.Context())
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	var message string
	switch {
	case report.AllocatedCount == 0 && report.Pending == 0:
		message = "No students need room allocation"
	case report.Exhausted:
		message = fmt.Sprintf("Allocated %d students to rooms. No more vacant rooms available.", report.AllocatedCount)
	default:
		message = fmt.Sprintf("Successfully allocated %d students to rooms", report.AllocatedCount)
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message":        message,
		"allocatedCount": report.AllocatedCount,
		"pending":        report.Pending,
	})
}
