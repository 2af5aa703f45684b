package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "Booked"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// Appointment is one patient/doctor slot reservation. Date is the calendar
// day (midnight UTC) and TimeOfDay the zero-padded "HH:MM" slot time, so
// (Date, TimeOfDay) orders chronologically.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	DepartmentID *uuid.UUID
	Date         time.Time
	TimeOfDay    string
	Status       AppointmentStatus
	Remarks      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Appointment) DateString() string {
	return a.Date.Format(time.DateOnly)
}

// Treatment is written exactly once, when its appointment completes.
type Treatment struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Diagnosis     string
	Prescription  string
	Notes         string
	CreatedAt     time.Time
}

// TreatmentRecord is the joined patient-history view of a treatment.
type TreatmentRecord struct {
	Treatment
	AppointmentDate time.Time
	DoctorID        uuid.UUID
}

// NewAppointment carries the validated input of a booking.
type NewAppointment struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	DepartmentID *uuid.UUID
	Date         time.Time
	TimeOfDay    string
	Remarks      string
}

// TreatmentInput carries the clinical fields of a completion.
type TreatmentInput struct {
	Diagnosis    string
	Prescription string
	Notes        string
}

// ParseSlotDate validates a booking date (ISO calendar day).
func ParseSlotDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// ParseSlotTime validates a booking time of day and normalizes it to
// "HH:MM". Seconds are accepted and dropped.
func ParseSlotTime(s string) (string, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("time must be HH:MM or HH:MM:SS, got %q", s)
}
