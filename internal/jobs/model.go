package jobs

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindNotifyPatientCompletion Kind = "notify_patient_completion"
	KindDailyReminder           Kind = "daily_reminder"
	KindMonthlyDigest           Kind = "monthly_digest"
	KindExportTreatmentsCSV     Kind = "export_treatments_csv"
	KindExportDoctorCSV         Kind = "export_doctor_appointments_csv"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one unit of asynchronous work. Failed is terminal but the record
// stays around for inspection; a Running job whose lease expires goes back
// to Pending, which is where at-least-once delivery comes from.
type Job struct {
	ID           uuid.UUID
	Kind         Kind
	Payload      []byte
	Status       Status
	Attempts     int
	RunAt        time.Time
	LeaseWorker  string
	LeaseExpires *time.Time
	LastError    string
	EnqueuedAt   time.Time
	UpdatedAt    time.Time
}

// Payloads, one per kind. Dates ride along as strings so a reminder job
// stays pinned to the day it was scheduled for, not the day it runs.

type NotifyCompletionPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
}

type DailyReminderPayload struct {
	Date string `json:"date"` // YYYY-MM-DD
}

type MonthlyDigestPayload struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Year     int       `json:"year"`
	Month    int       `json:"month"`
}

type ExportTreatmentsPayload struct {
	PatientID uuid.UUID `json:"patient_id"`
}

type ExportDoctorPayload struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}
