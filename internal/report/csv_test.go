package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func TestArtifactNames(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	if got := TreatmentsArtifactName(id); got != "patient_6ba7b810-9dad-11d1-80b4-00c04fd430c8_treatments.csv" {
		t.Fatalf("treatments name = %q", got)
	}
	if got := DoctorArtifactName(id); got != "doctor_6ba7b810-9dad-11d1-80b4-00c04fd430c8_appointments.csv" {
		t.Fatalf("doctor name = %q", got)
	}
}

func TestTreatmentsCSV(t *testing.T) {
	doctorID := uuid.New()
	date, _ := time.Parse(time.DateOnly, "2026-09-14")

	records := []scheduling.TreatmentRecord{
		{
			Treatment: scheduling.Treatment{
				Diagnosis:    "sprain",
				Prescription: "rest, ice",
				Notes:        "follow up in two weeks",
			},
			AppointmentDate: date,
			DoctorID:        doctorID,
		},
	}

	data, err := TreatmentsCSV(records)
	if err != nil {
		t.Fatalf("TreatmentsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if lines[0] != "appointment_date,doctor,diagnosis,prescription,notes" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2026-09-14,"+doctorID.String()+",sprain,") {
		t.Fatalf("row = %q", lines[1])
	}
	// The comma in the prescription must be quoted, not split.
	if !strings.Contains(lines[1], `"rest, ice"`) {
		t.Fatalf("row = %q, want quoted prescription", lines[1])
	}
}

func TestTreatmentsCSVDeterministic(t *testing.T) {
	date, _ := time.Parse(time.DateOnly, "2026-09-14")
	records := []scheduling.TreatmentRecord{
		{Treatment: scheduling.Treatment{Diagnosis: "a"}, AppointmentDate: date, DoctorID: uuid.New()},
		{Treatment: scheduling.Treatment{Diagnosis: "b"}, AppointmentDate: date, DoctorID: uuid.New()},
	}

	first, err := TreatmentsCSV(records)
	if err != nil {
		t.Fatalf("TreatmentsCSV: %v", err)
	}
	second, err := TreatmentsCSV(records)
	if err != nil {
		t.Fatalf("TreatmentsCSV: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same records rendered different bytes")
	}
}

func TestTreatmentsCSVEmpty(t *testing.T) {
	data, err := TreatmentsCSV(nil)
	if err != nil {
		t.Fatalf("TreatmentsCSV: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "appointment_date,doctor,diagnosis,prescription,notes" {
		t.Fatalf("empty export = %q, want header only", got)
	}
}

func TestDoctorAppointmentsCSV(t *testing.T) {
	date, _ := time.Parse(time.DateOnly, "2026-09-14")
	appts := []scheduling.Appointment{
		{
			ID:        uuid.New(),
			PatientID: uuid.New(),
			Date:      date,
			TimeOfDay: "10:30",
			Status:    scheduling.StatusCompleted,
			Remarks:   "knee pain",
		},
	}

	data, err := DoctorAppointmentsCSV(appts)
	if err != nil {
		t.Fatalf("DoctorAppointmentsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "appointment_id,patient_id,date,time,status,remarks" {
		t.Fatalf("header = %q", lines[0])
	}
	want := appts[0].ID.String() + "," + appts[0].PatientID.String() + ",2026-09-14,10:30,Completed,knee pain"
	if lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}
}
