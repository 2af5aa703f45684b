package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTreatmentNotFound   = errors.New("treatment not found")

	// ErrSlotTaken means another Booked appointment already holds the
	// (doctor, date, time) slot. Exactly one of any set of racing
	// bookings for a slot can succeed.
	ErrSlotTaken = errors.New("slot already has a booked appointment")

	// ErrStatusConflict means a compare-and-swap status update found the
	// appointment in a different state than expected.
	ErrStatusConflict = errors.New("appointment not in expected status")
)

// Store contains all DB interactions needed by the scheduling service.
// CreateBooked and CompleteWithTreatment must be atomic: the first with
// respect to slot exclusivity, the second across the status flip and the
// treatment insert.
type Store interface {
	CreateBooked(ctx context.Context, in NewAppointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	CompleteWithTreatment(ctx context.Context, id uuid.UUID, in TreatmentInput) (*Treatment, error)

	// Projections. Doctor self-view ascends; patient history and the
	// admin audit view descend.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListAll(ctx context.Context) ([]Appointment, error)

	// Worker queries
	ListBookedOn(ctx context.Context, date time.Time) ([]Appointment, error)
	ListForDoctorInMonth(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) ([]Appointment, error)
	TreatmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]TreatmentRecord, error)
	GetTreatmentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error)

	// Dashboard counters
	CountAppointments(ctx context.Context, today time.Time) (total, upcoming int, err error)
}
