package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

// TreatmentsArtifactName is the fixed artifact name for a patient's
// treatment history export. Re-running the export overwrites it.
func TreatmentsArtifactName(patientID uuid.UUID) string {
	return fmt.Sprintf("patient_%s_treatments.csv", patientID)
}

// DoctorArtifactName is the fixed artifact name for a doctor's
// appointment export.
func DoctorArtifactName(doctorID uuid.UUID) string {
	return fmt.Sprintf("doctor_%s_appointments.csv", doctorID)
}

// TreatmentsCSV renders a patient's treatment history. Rows arrive in
// store order, so the same history always produces the same bytes.
func TreatmentsCSV(records []scheduling.TreatmentRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"appointment_date", "doctor", "diagnosis", "prescription", "notes"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.AppointmentDate.Format(time.DateOnly),
			r.DoctorID.String(),
			r.Diagnosis,
			r.Prescription,
			r.Notes,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DoctorAppointmentsCSV renders a doctor's appointment list.
func DoctorAppointmentsCSV(appointments []scheduling.Appointment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"appointment_id", "patient_id", "date", "time", "status", "remarks"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range appointments {
		row := []string{
			a.ID.String(),
			a.PatientID.String(),
			a.DateString(),
			a.TimeOfDay,
			string(a.Status),
			a.Remarks,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
