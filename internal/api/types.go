package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	DoctorID     string `json:"doctor_id"`
	DepartmentID string `json:"department_id,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Remarks      string `json:"remarks,omitempty"`
}

type CompleteAppointmentRequest struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes,omitempty"`
}

type UpdateAccountRequest struct {
	Approved *bool `json:"approved,omitempty"`
	Blocked  *bool `json:"blocked,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Status       string     `json:"status"`
	Remarks      string     `json:"remarks,omitempty"`
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		DepartmentID: a.DepartmentID,
		Date:         a.DateString(),
		Time:         a.TimeOfDay,
		Status:       string(a.Status),
		Remarks:      a.Remarks,
	}
}

func toAppointmentResponses(list []scheduling.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type TreatmentResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type TreatmentRecordResponse struct {
	TreatmentResponse
	AppointmentDate string    `json:"appointment_date"`
	DoctorID        uuid.UUID `json:"doctor_id"`
}

func toTreatmentResponse(t scheduling.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:            t.ID,
		AppointmentID: t.AppointmentID,
		Diagnosis:     t.Diagnosis,
		Prescription:  t.Prescription,
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
	}
}

type ExportResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

type JobResponse struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	RunAt      time.Time `json:"run_at"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toJobResponse(j jobs.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		Kind:       string(j.Kind),
		Status:     string(j.Status),
		Attempts:   j.Attempts,
		RunAt:      j.RunAt,
		LastError:  j.LastError,
		EnqueuedAt: j.EnqueuedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Approved  bool      `json:"approved"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u identity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		Approved:  u.Approved,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
