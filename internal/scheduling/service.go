package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/metrics"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

var (
	ErrMalformedInput    = errors.New("malformed booking input")
	ErrInvalidDoctor     = errors.New("doctor does not exist or is not available")
	ErrForbidden         = errors.New("caller does not own this appointment")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
)

// Service applies the appointment lifecycle: Book creates the only
// Booked entry a slot can hold, Complete and Cancel are the only exits,
// and both terminal states are closed.
type Service struct {
	store      Store
	directory  identity.Directory
	locker     redisclient.Locker
	dispatcher jobs.Dispatcher
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

func NewService(store Store, directory identity.Directory, locker redisclient.Locker, dispatcher jobs.Dispatcher, logger *logging.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		directory:  directory,
		locker:     locker,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

// Book reserves the (doctor, date, time) slot for a patient.
// A per-slot Redis lock serializes most racing requests for the same
// slot; the store's uniqueness guarantee decides the winner either way,
// so a lost or unavailable lock can never cause a double booking.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, departmentID *uuid.UUID, dateStr, timeStr, remarks string) (*Appointment, error) {
	date, err := ParseSlotDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	timeOfDay, err := ParseSlotTime(timeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	doctor, err := s.directory.GetUser(ctx, doctorID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrInvalidDoctor
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Role != identity.RoleDoctor || !doctor.Approved || doctor.Blocked {
		return nil, ErrInvalidDoctor
	}

	in := NewAppointment{
		PatientID:    patientID,
		DoctorID:     doctorID,
		DepartmentID: departmentID,
		Date:         date,
		TimeOfDay:    timeOfDay,
		Remarks:      remarks,
	}

	var created *Appointment
	attempt := func(ctx context.Context) error {
		appt, err := s.store.CreateBooked(ctx, in)
		if err != nil {
			return err
		}
		created = appt
		return nil
	}

	if s.locker != nil {
		err = s.locker.WithSlotLock(ctx, doctorID, date.Format(time.DateOnly), timeOfDay, attempt)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			// Lock contention: fall through to the atomic insert, which
			// yields ErrSlotTaken for everyone but the winner.
			err = attempt(ctx)
		}
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("slot_taken")
			return nil, ErrSlotTaken
		}
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("booked")
	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"doctor_id", doctorID,
		"date", created.DateString(),
		"time", created.TimeOfDay,
	)
	return created, nil
}

// Complete moves a Booked appointment to Completed and writes the
// treatment in the same transaction. The completion notification is
// enqueued afterwards, best effort: a broken queue never unwinds a
// finished visit.
func (s *Service) Complete(ctx context.Context, doctorID, appointmentID uuid.UUID, in TreatmentInput) (*Treatment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	if appt.Status != StatusBooked {
		return nil, ErrInvalidTransition
	}

	treatment, err := s.store.CompleteWithTreatment(ctx, appointmentID, in)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Lost a race with another transition since the check above.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if s.dispatcher != nil {
		payload := jobs.NotifyCompletionPayload{AppointmentID: appointmentID}
		if _, err := s.dispatcher.Enqueue(ctx, jobs.KindNotifyPatientCompletion, payload); err != nil {
			s.logger.Error("completion notification enqueue failed",
				"appointment_id", appointmentID,
				"error", err,
			)
		}
	}

	return treatment, nil
}

// Cancel moves a Booked appointment to Cancelled.
func (s *Service) Cancel(ctx context.Context, patientID, appointmentID uuid.UUID) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return ErrForbidden
	}
	if appt.Status != StatusBooked {
		return ErrInvalidTransition
	}

	if _, err := s.store.UpdateStatus(ctx, appointmentID, StatusBooked, StatusCancelled); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return s.store.ListForDoctor(ctx, doctorID)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.store.ListForPatient(ctx, patientID)
}

func (s *Service) ListAll(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) TreatmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]TreatmentRecord, error) {
	return s.store.TreatmentsForPatient(ctx, patientID)
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalDoctors         int `json:"total_doctors"`
	TotalPatients        int `json:"total_patients"`
	TotalAppointments    int `json:"total_appointments"`
	UpcomingAppointments int `json:"upcoming_appointments"`
}

func (s *Service) DashboardStats(ctx context.Context, today time.Time) (*DashboardStats, error) {
	doctors, err := s.directory.CountByRole(ctx, identity.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	patients, err := s.directory.CountByRole(ctx, identity.RolePatient)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	total, upcoming, err := s.store.CountAppointments(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	return &DashboardStats{
		TotalDoctors:         doctors,
		TotalPatients:        patients,
		TotalAppointments:    total,
		UpcomingAppointments: upcoming,
	}, nil
}

// RequestTreatmentsExport enqueues a CSV export of the patient's history.
func (s *Service) RequestTreatmentsExport(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	return s.dispatcher.Enqueue(ctx, jobs.KindExportTreatmentsCSV, jobs.ExportTreatmentsPayload{PatientID: patientID})
}

// RequestDoctorExport enqueues a CSV export of a doctor's appointments.
func (s *Service) RequestDoctorExport(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	return s.dispatcher.Enqueue(ctx, jobs.KindExportDoctorCSV, jobs.ExportDoctorPayload{DoctorID: doctorID})
}
