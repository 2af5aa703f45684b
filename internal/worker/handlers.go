package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	"github.com/hackgods/hospital-scheduling/internal/notify"
	"github.com/hackgods/hospital-scheduling/internal/report"
	"github.com/hackgods/hospital-scheduling/internal/scheduling"
	"github.com/hackgods/hospital-scheduling/pkg/logging"
)

// Handlers executes the job kinds. Every handler is safe to run more
// than once for the same payload: emails are resent at worst, and the
// export artifacts overwrite themselves.
type Handlers struct {
	store     scheduling.Store
	directory identity.Directory
	sender    notify.EmailSender
	sink      report.Sink
	logger    *logging.Logger
}

func NewHandlers(store scheduling.Store, directory identity.Directory, sender notify.EmailSender, sink report.Sink, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handlers{
		store:     store,
		directory: directory,
		sender:    sender,
		sink:      sink,
		logger:    logger,
	}
}

// Handle dispatches one leased job to its handler.
func (h *Handlers) Handle(ctx context.Context, job *jobs.Job) error {
	switch job.Kind {
	case jobs.KindNotifyPatientCompletion:
		var p jobs.NotifyCompletionPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return h.notifyCompletion(ctx, p)

	case jobs.KindDailyReminder:
		var p jobs.DailyReminderPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return h.dailyReminder(ctx, p)

	case jobs.KindMonthlyDigest:
		var p jobs.MonthlyDigestPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return h.monthlyDigest(ctx, p)

	case jobs.KindExportTreatmentsCSV:
		var p jobs.ExportTreatmentsPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return h.exportTreatments(ctx, p)

	case jobs.KindExportDoctorCSV:
		var p jobs.ExportDoctorPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return h.exportDoctorAppointments(ctx, p)

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (h *Handlers) notifyCompletion(ctx context.Context, p jobs.NotifyCompletionPayload) error {
	appt, err := h.store.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	patient, err := h.directory.GetUser(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	addr, ok := patient.Email()
	if !ok {
		// No deliverable address; nothing to do.
		return nil
	}

	treatment, err := h.store.GetTreatmentByAppointment(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("load treatment: %w", err)
	}

	msg := notify.EmailMessage{
		To:      addr,
		ToName:  patient.Username,
		Subject: "Your appointment has been completed",
		Body: fmt.Sprintf(
			"Your appointment on %s at %s is complete.\n\nDiagnosis: %s\nPrescription: %s\nNotes: %s\n",
			appt.DateString(), appt.TimeOfDay, treatment.Diagnosis, treatment.Prescription, treatment.Notes,
		),
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send completion email: %w", err)
	}
	return nil
}

func (h *Handlers) dailyReminder(ctx context.Context, p jobs.DailyReminderPayload) error {
	date, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return fmt.Errorf("decode reminder date: %w", err)
	}

	appointments, err := h.store.ListBookedOn(ctx, date)
	if err != nil {
		return fmt.Errorf("list appointments for %s: %w", p.Date, err)
	}

	// A bad address or send failure for one patient never blocks the
	// rest of the day's reminders.
	for _, appt := range appointments {
		patient, err := h.directory.GetUser(ctx, appt.PatientID)
		if err != nil {
			h.logger.Error("reminder: patient lookup failed", "patient_id", appt.PatientID, "error", err)
			continue
		}
		addr, ok := patient.Email()
		if !ok {
			continue
		}

		msg := notify.EmailMessage{
			To:      addr,
			ToName:  patient.Username,
			Subject: "Appointment reminder",
			Body: fmt.Sprintf("You have an appointment today (%s) at %s.\n",
				appt.DateString(), appt.TimeOfDay),
		}
		if err := h.sender.Send(ctx, msg); err != nil {
			h.logger.Error("reminder: send failed", "to", addr, "error", err)
		}
	}
	return nil
}

func (h *Handlers) monthlyDigest(ctx context.Context, p jobs.MonthlyDigestPayload) error {
	doctor, err := h.directory.GetUser(ctx, p.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}
	addr, ok := doctor.Email()
	if !ok {
		return nil
	}

	appointments, err := h.store.ListForDoctorInMonth(ctx, p.DoctorID, p.Year, time.Month(p.Month))
	if err != nil {
		return fmt.Errorf("list doctor appointments: %w", err)
	}

	var completed, cancelled, booked int
	for _, a := range appointments {
		switch a.Status {
		case scheduling.StatusCompleted:
			completed++
		case scheduling.StatusCancelled:
			cancelled++
		case scheduling.StatusBooked:
			booked++
		}
	}

	msg := notify.EmailMessage{
		To:      addr,
		ToName:  doctor.Username,
		Subject: fmt.Sprintf("Monthly summary for %04d-%02d", p.Year, p.Month),
		Body: fmt.Sprintf(
			"Appointments in %04d-%02d: %d total\nCompleted: %d\nCancelled: %d\nStill booked: %d\n",
			p.Year, p.Month, len(appointments), completed, cancelled, booked,
		),
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}
	return nil
}

func (h *Handlers) exportTreatments(ctx context.Context, p jobs.ExportTreatmentsPayload) error {
	records, err := h.store.TreatmentsForPatient(ctx, p.PatientID)
	if err != nil {
		return fmt.Errorf("load treatments: %w", err)
	}

	data, err := report.TreatmentsCSV(records)
	if err != nil {
		return fmt.Errorf("render treatments csv: %w", err)
	}
	if err := h.sink.Write(report.TreatmentsArtifactName(p.PatientID), data); err != nil {
		return fmt.Errorf("store treatments export: %w", err)
	}

	h.logger.Info("treatments export written", "patient_id", p.PatientID, "rows", len(records))
	return nil
}

func (h *Handlers) exportDoctorAppointments(ctx context.Context, p jobs.ExportDoctorPayload) error {
	appointments, err := h.store.ListForDoctor(ctx, p.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor appointments: %w", err)
	}

	data, err := report.DoctorAppointmentsCSV(appointments)
	if err != nil {
		return fmt.Errorf("render appointments csv: %w", err)
	}
	if err := h.sink.Write(report.DoctorArtifactName(p.DoctorID), data); err != nil {
		return fmt.Errorf("store appointments export: %w", err)
	}

	h.logger.Info("doctor export written", "doctor_id", p.DoctorID, "rows", len(appointments))
	return nil
}
