package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same atomicity guarantees
// as the Postgres store, used by tests and the dev environment. All
// mutations happen under one mutex, so the slot-exclusivity check and
// insert are a single critical section.
type MemoryStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]Appointment
	treatments   map[uuid.UUID]Treatment // keyed by appointment id

	// treatmentErr, when set, makes the treatment insert of
	// CompleteWithTreatment fail. Tests use it to show the status flip
	// rolls back with it.
	treatmentErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[uuid.UUID]Appointment),
		treatments:   make(map[uuid.UUID]Treatment),
	}
}

func slotEqual(a Appointment, doctorID uuid.UUID, date time.Time, timeOfDay string) bool {
	return a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeOfDay == timeOfDay
}

func (s *MemoryStore) CreateBooked(ctx context.Context, in NewAppointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.appointments {
		if a.Status == StatusBooked && slotEqual(a, in.DoctorID, in.Date, in.TimeOfDay) {
			return nil, ErrSlotTaken
		}
	}

	now := time.Now()
	appt := Appointment{
		ID:           uuid.New(),
		PatientID:    in.PatientID,
		DoctorID:     in.DoctorID,
		DepartmentID: in.DepartmentID,
		Date:         in.Date,
		TimeOfDay:    in.TimeOfDay,
		Status:       StatusBooked,
		Remarks:      in.Remarks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.appointments[appt.ID] = appt
	return &appt, nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, ErrStatusConflict
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return &a, nil
}

func (s *MemoryStore) CompleteWithTreatment(ctx context.Context, id uuid.UUID, in TreatmentInput) (*Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != StatusBooked {
		return nil, ErrStatusConflict
	}
	if s.treatmentErr != nil {
		// Nothing mutated yet, so the failed treatment write leaves the
		// appointment Booked, same as a rolled-back transaction.
		return nil, s.treatmentErr
	}

	now := time.Now()
	a.Status = StatusCompleted
	a.UpdatedAt = now
	s.appointments[id] = a

	t := Treatment{
		ID:            uuid.New(),
		AppointmentID: id,
		Diagnosis:     in.Diagnosis,
		Prescription:  in.Prescription,
		Notes:         in.Notes,
		CreatedAt:     now,
	}
	s.treatments[id] = t
	return &t, nil
}

func (s *MemoryStore) list(filter func(Appointment) bool, ascending bool) []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Appointment
	for _, a := range s.appointments {
		if filter(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		less := result[i].Date.Before(result[j].Date) ||
			(result[i].Date.Equal(result[j].Date) && result[i].TimeOfDay < result[j].TimeOfDay)
		if ascending {
			return less
		}
		return !less
	})
	return result
}

func (s *MemoryStore) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return s.list(func(a Appointment) bool { return a.DoctorID == doctorID }, true), nil
}

func (s *MemoryStore) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.list(func(a Appointment) bool { return a.PatientID == patientID }, false), nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Appointment, error) {
	return s.list(func(Appointment) bool { return true }, false), nil
}

func (s *MemoryStore) ListBookedOn(ctx context.Context, date time.Time) ([]Appointment, error) {
	return s.list(func(a Appointment) bool {
		return a.Status == StatusBooked && a.Date.Equal(date)
	}, true), nil
}

func (s *MemoryStore) ListForDoctorInMonth(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) ([]Appointment, error) {
	return s.list(func(a Appointment) bool {
		return a.DoctorID == doctorID && a.Date.Year() == year && a.Date.Month() == month
	}, true), nil
}

func (s *MemoryStore) TreatmentsForPatient(ctx context.Context, patientID uuid.UUID) ([]TreatmentRecord, error) {
	appts := s.list(func(a Appointment) bool { return a.PatientID == patientID }, false)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []TreatmentRecord
	for _, a := range appts {
		t, ok := s.treatments[a.ID]
		if !ok {
			continue
		}
		result = append(result, TreatmentRecord{
			Treatment:       t,
			AppointmentDate: a.Date,
			DoctorID:        a.DoctorID,
		})
	}
	return result, nil
}

func (s *MemoryStore) GetTreatmentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.treatments[appointmentID]
	if !ok {
		return nil, ErrTreatmentNotFound
	}
	return &t, nil
}

func (s *MemoryStore) CountAppointments(ctx context.Context, today time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.appointments)
	upcoming := 0
	for _, a := range s.appointments {
		if !a.Date.Before(today) {
			upcoming++
		}
	}
	return total, upcoming, nil
}
