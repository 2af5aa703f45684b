package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

const appointmentColumns = `id, patient_id, doctor_id, department_id, date, slot_time, status, remarks, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var departmentID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&departmentID,
		&a.Date,
		&a.TimeOfDay,
		&a.Status,
		&a.Remarks,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.DepartmentID = departmentID
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

// CreateBooked inserts a Booked appointment. Slot exclusivity rides on the
// partial unique index over (doctor_id, date, slot_time) WHERE
// status = 'Booked': of two racing inserts, exactly one returns a row.
func (s *PgStore) CreateBooked(ctx context.Context, in NewAppointment) (*Appointment, error) {
	id := uuid.New()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, department_id, date, slot_time, status, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'Booked', $7, now(), now())
		ON CONFLICT (doctor_id, date, slot_time) WHERE status = 'Booked' DO NOTHING
		RETURNING `+appointmentColumns+`
	`, id, in.PatientID, in.DoctorID, in.DepartmentID, in.Date, in.TimeOfDay, in.Remarks)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrSlotTaken
	}
	return appt, err
}

func (s *PgStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStatusConflict
	}
	return appt, err
}

// CompleteWithTreatment flips Booked to Completed and writes the treatment
// in one transaction; neither side is observable without the other.
func (s *PgStore) CompleteWithTreatment(ctx context.Context, id uuid.UUID, in TreatmentInput) (*Treatment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'Completed',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'Booked'
	`, id)
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrStatusConflict
	}

	treatment := Treatment{
		ID:            uuid.New(),
		AppointmentID: id,
		Diagnosis:     in.Diagnosis,
		Prescription:  in.Prescription,
		Notes:         in.Notes,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO treatments (id, appointment_id, diagnosis, prescription, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, treatment.ID, treatment.AppointmentID, treatment.Diagnosis, treatment.Prescription, treatment.Notes).Scan(&treatment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert treatment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete tx: %w", err)
	}

	return &treatment, nil
}

func (s *PgStore) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY date ASC, slot_time ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *PgStore) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, slot_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *PgStore) ListAll(ctx context.Context) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY date DESC, slot_time DESC
	`)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *PgStore) ListBookedOn(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		  AND status = 'Booked'
		ORDER BY slot_time ASC
	`, date)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *PgStore) ListForDoctorInMonth(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date_part('year', date) = $2
		  AND date_part('month', date) = $3
		ORDER BY date ASC, slot_time ASC
	`, doctorID, year, int(month))
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (s *PgStore) TreatmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]TreatmentRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.appointment_id, t.diagnosis, t.prescription, t.notes, t.created_at,
		       a.date, a.doctor_id
		FROM treatments t
		JOIN appointments a ON a.id = t.appointment_id
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.slot_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TreatmentRecord
	for rows.Next() {
		var r TreatmentRecord
		err := rows.Scan(
			&r.ID,
			&r.AppointmentID,
			&r.Diagnosis,
			&r.Prescription,
			&r.Notes,
			&r.CreatedAt,
			&r.AppointmentDate,
			&r.DoctorID,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) GetTreatmentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	var t Treatment
	err := s.pool.QueryRow(ctx, `
		SELECT id, appointment_id, diagnosis, prescription, notes, created_at
		FROM treatments
		WHERE appointment_id = $1
	`, appointmentID).Scan(&t.ID, &t.AppointmentID, &t.Diagnosis, &t.Prescription, &t.Notes, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PgStore) CountAppointments(ctx context.Context, today time.Time) (int, int, error) {
	var total, upcoming int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE date >= $1)
		FROM appointments
	`, today).Scan(&total, &upcoming)
	if err != nil {
		return 0, 0, err
	}
	return total, upcoming, nil
}
