package httpapi

import (
	"fmt"
	"net/http"

	"hostelcore/internal/core"
	"hostelcore/pkg/domain"
)

type registerRequest struct {
	Name               string `json:"name"`
	RollNumber         string `json:"rollNumber"`
	Branch             string `json:"branch"`
	Year               int    `json:"year"`
	Email              string `json:"email"`
	PhoneNumber        string `json:"phoneNumber"`
	ParentMobileNumber string `json:"parentMobileNumber"`
	ProfilePhoto       string `json:"profilePhoto"`
	Password           string `json:"password"`
	RoomNumber         string `json:"roomNumber"`
}

func (req registerRequest) toRegistration() core.Registration {
	return core.Registration{
		Name:               req.Name,
		RollNumber:         req.RollNumber,
		Branch:             req.Branch,
		Year:               req.Year,
		Email:              req.Email,
		PhoneNumber:        req.PhoneNumber,
		ParentMobileNumber: req.ParentMobileNumber,
		ProfilePhoto:       req.ProfilePhoto,
		Password:           req.Password,
		RoomNumber:         req.RoomNumber,
	}
}

type updateStudentRequest struct {
	Name               *string `json:"name"`
	RollNumber         *string `json:"rollNumber"`
	Branch             *string `json:"branch"`
	Year               *int    `json:"year"`
	Email              *string `json:"email"`
	PhoneNumber        *string `json:"phoneNumber"`
	ParentMobileNumber *string `json:"parentMobileNumber"`
	RoomNumber         *string `json:"roomNumber"`
}

func (req updateStudentRequest) toPatch() core.StudentPatch {
	return core.StudentPatch(req)
}

type changeRoomRequest struct {
	StudentID     string `json:"studentId"`
	NewRoomNumber string `json:"newRoomNumber"`
}

type exchangeRequest struct {
	StudentID1 string `json:"studentId1"`
	StudentID2 string `json:"studentId2"`
}

type studentIDRequest struct {
	StudentID string `json:"studentId"`
}

type rollNumberRequest struct {
	RollNumber string `json:"rollNumber"`
}

// required reports every empty field as a ValidationError.
func required(fields ...[2]string) error {
	verr := domain.NewValidationError()
	for _, f := range fields {
		if f[1] == "" {
			verr.Add(f[0], "is required")
		}
	}
	return verr.OrNil()
}

func (h *Handler) registerStudent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	student, _, err := h.svc.RegisterStudent(r.Context(), req.toRegistration())
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Student registered successfully and allocated to room " + student.RoomNumber,
		"student": publicStudent(student),
	})
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	student, _, err := h.svc.UpdateStudent(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Student updated successfully",
		"student": publicStudent(student),
	})
}

func (h *Handler) deactivateStudent(w http.ResponseWriter, r *http.Request) {
	var req rollNumberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := required([2]string{"rollNumber", req.RollNumber}); err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	student, _, err := h.svc.DeactivateStudent(r.Context(), req.RollNumber)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Student deactivated successfully and unassigned from room",
		"student": publicStudent(student),
	})
}

func (h *Handler) activeStudents(w http.ResponseWriter, _ *http.Request) {
	h.resp.writeJSON(w, http.StatusOK, publicStudents(h.svc.ListStudents(true)))
}

func (h *Handler) inactiveStudents(w http.ResponseWriter, _ *http.Request) {
	h.resp.writeJSON(w, http.StatusOK, publicStudents(h.svc.ListStudents(false)))
}

func (h *Handler) studentDetails(w http.ResponseWriter, r *http.Request) {
	student, err := h.svc.GetStudentByRollNumber(r.Context(), r.PathValue("rollNumber"))
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, publicStudent(student))
}

func (h *Handler) changeRoom(w http.ResponseWriter, r *http.Request) {
	var req changeRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := required([2]string{"studentId", req.StudentID}, [2]string{"newRoomNumber", req.NewRoomNumber}); err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	change, _, err := h.svc.ChangeRoom(r.Context(), req.StudentID, req.NewRoomNumber)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	from := change.From
	if from == "" {
		from = "no room"
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Student %s moved from %s to %s", change.Student.Name, from, change.Student.RoomNumber),
		"student": publicStudent(change.Student),
	})
}

func (h *Handler) exchangeRooms(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := required([2]string{"studentId1", req.StudentID1}, [2]string{"studentId2", req.StudentID2}); err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	swapped, _, err := h.svc.ExchangeRooms(r.Context(), req.StudentID1, req.StudentID2)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Successfully exchanged rooms: %s moved to %s and %s moved to %s",
			swapped.First.Name, swapped.First.RoomNumber, swapped.Second.Name, swapped.Second.RoomNumber),
		"students": []core.Student{publicStudent(swapped.First), publicStudent(swapped.Second)},
	})
}

func (h *Handler) unassignRoom(w http.ResponseWriter, r *http.Request) {
	var req studentIDRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := required([2]string{"studentId", req.StudentID}); err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	student, _, err := h.svc.UnassignStudent(r.Context(), req.StudentID)
	if err != nil {
		h.resp.handleServiceError(w, err)
		return
	}
	h.resp.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Student %s unassigned from room", student.Name),
		"student": publicStudent(student),
	})
}
