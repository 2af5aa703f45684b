package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/hospital-scheduling/internal/identity"
	"github.com/hackgods/hospital-scheduling/internal/jobs"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
)

type testEnv struct {
	svc        *Service
	store      *MemoryStore
	directory  *identity.MemoryDirectory
	dispatcher *jobs.MemoryDispatcher
	patient    identity.User
	doctor     identity.User
}

func newTestEnv(t *testing.T, locker redisclient.Locker) *testEnv {
	t.Helper()

	store := NewMemoryStore()
	directory := identity.NewMemoryDirectory()
	dispatcher := jobs.NewMemoryDispatcher(jobs.Options{})

	patient := identity.User{ID: uuid.New(), Username: "pat@example.com", Role: identity.RolePatient, Approved: true}
	doctor := identity.User{ID: uuid.New(), Username: "doc@example.com", Role: identity.RoleDoctor, Approved: true}
	directory.Put(patient)
	directory.Put(doctor)

	return &testEnv{
		svc:        NewService(store, directory, locker, dispatcher, nil, nil),
		store:      store,
		directory:  directory,
		dispatcher: dispatcher,
		patient:    patient,
		doctor:     doctor,
	}
}

func newMiniredisLocker(t *testing.T) redisclient.Locker {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisclient.NewRedisSlotLocker(client, 5*time.Second)
}

func TestBook(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "knee pain")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusBooked {
		t.Fatalf("status = %q, want %q", appt.Status, StatusBooked)
	}
	if appt.DateString() != "2026-09-14" || appt.TimeOfDay != "10:30" {
		t.Fatalf("slot = %s %s", appt.DateString(), appt.TimeOfDay)
	}
}

func TestBookNormalizesSlotTime(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30:00", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.TimeOfDay != "10:30" {
		t.Fatalf("TimeOfDay = %q, want %q", appt.TimeOfDay, "10:30")
	}

	// The second-precision spelling of the same slot is the same slot.
	if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestBookMalformedInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []struct{ date, timeOfDay string }{
		{"14-09-2026", "10:30"},
		{"2026-13-40", "10:30"},
		{"", "10:30"},
		{"2026-09-14", "25:00"},
		{"2026-09-14", "half past ten"},
		{"2026-09-14", ""},
	}
	for _, c := range cases {
		if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, c.date, c.timeOfDay, ""); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("Book(%q, %q) err = %v, want ErrMalformedInput", c.date, c.timeOfDay, err)
		}
	}
}

func TestBookInvalidDoctor(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	unapproved := identity.User{ID: uuid.New(), Role: identity.RoleDoctor}
	blocked := identity.User{ID: uuid.New(), Role: identity.RoleDoctor, Approved: true, Blocked: true}
	env.directory.Put(unapproved)
	env.directory.Put(blocked)

	for _, id := range []uuid.UUID{uuid.New(), env.patient.ID, unapproved.ID, blocked.ID} {
		if _, err := env.svc.Book(ctx, env.patient.ID, id, nil, "2026-09-14", "10:30", ""); !errors.Is(err, ErrInvalidDoctor) {
			t.Fatalf("Book(doctor=%s) err = %v, want ErrInvalidDoctor", id, err)
		}
	}
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, newMiniredisLocker(t))
	ctx := context.Background()

	const racers = 25

	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, taken int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}
	if taken != racers-1 {
		t.Fatalf("slot-taken = %d, want %d", taken, racers-1)
	}
}

func TestBookDistinctSlotsDoNotConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	otherDoctor := identity.User{ID: uuid.New(), Username: "doc2@example.com", Role: identity.RoleDoctor, Approved: true}
	env.directory.Put(otherDoctor)

	slots := []struct {
		doctor uuid.UUID
		date   string
		time   string
	}{
		{env.doctor.ID, "2026-09-14", "10:30"},
		{env.doctor.ID, "2026-09-14", "11:00"},
		{env.doctor.ID, "2026-09-15", "10:30"},
		{otherDoctor.ID, "2026-09-14", "10:30"},
	}
	for _, s := range slots {
		if _, err := env.svc.Book(ctx, env.patient.ID, s.doctor, nil, s.date, s.time, ""); err != nil {
			t.Fatalf("Book(%s %s %s): %v", s.doctor, s.date, s.time, err)
		}
	}
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := env.svc.Cancel(ctx, env.patient.ID, appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, err := env.store.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %q, want %q", got.Status, StatusCancelled)
	}

	// Cancelled is terminal.
	if err := env.svc.Cancel(ctx, env.patient.ID, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second cancel err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if err := env.svc.Cancel(ctx, env.patient.ID, appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", ""); err != nil {
		t.Fatalf("rebooking freed slot: %v", err)
	}
}

func TestCancelNotOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := env.svc.Cancel(ctx, uuid.New(), appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	got, _ := env.store.GetAppointment(ctx, appt.ID)
	if got.Status != StatusBooked {
		t.Fatalf("status changed to %q on denied cancel", got.Status)
	}
}

func TestCancelNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.svc.Cancel(context.Background(), env.patient.ID, uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound", err)
	}
}

func TestComplete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	treatment, err := env.svc.Complete(ctx, env.doctor.ID, appt.ID, TreatmentInput{
		Diagnosis:    "sprain",
		Prescription: "rest",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if treatment.AppointmentID != appt.ID || treatment.Diagnosis != "sprain" {
		t.Fatalf("treatment = %+v", treatment)
	}

	got, _ := env.store.GetAppointment(ctx, appt.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, StatusCompleted)
	}

	// Completion enqueued exactly one notification job.
	queued, err := env.dispatcher.List(ctx, jobs.StatusPending, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(queued) != 1 || queued[0].Kind != jobs.KindNotifyPatientCompletion {
		t.Fatalf("queued = %+v, want one notify job", queued)
	}
}

func TestCompleteWrongDoctor(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := env.svc.Complete(ctx, uuid.New(), appt.ID, TreatmentInput{Diagnosis: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCompleteTerminalStatesClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := env.svc.Complete(ctx, env.doctor.ID, appt.ID, TreatmentInput{Diagnosis: "x"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// No exit from Completed.
	if _, err := env.svc.Complete(ctx, env.doctor.ID, appt.ID, TreatmentInput{Diagnosis: "y"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("re-complete err = %v, want ErrInvalidTransition", err)
	}
	if err := env.svc.Cancel(ctx, env.patient.ID, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel completed err = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteAtomicWithTreatment(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	appt, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	env.store.treatmentErr = errors.New("treatment write failed")
	if _, err := env.svc.Complete(ctx, env.doctor.ID, appt.ID, TreatmentInput{Diagnosis: "x"}); err == nil {
		t.Fatal("expected error")
	}

	// The failed treatment write must not leave a half-completed
	// appointment behind.
	got, _ := env.store.GetAppointment(ctx, appt.ID)
	if got.Status != StatusBooked {
		t.Fatalf("status = %q after failed completion, want %q", got.Status, StatusBooked)
	}

	env.store.treatmentErr = nil
	if _, err := env.svc.Complete(ctx, env.doctor.ID, appt.ID, TreatmentInput{Diagnosis: "x"}); err != nil {
		t.Fatalf("retry Complete: %v", err)
	}
}

func TestListOrderings(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, slot := range []struct{ date, timeOfDay string }{
		{"2026-09-15", "09:00"},
		{"2026-09-14", "10:30"},
		{"2026-09-16", "08:00"},
	} {
		if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, slot.date, slot.timeOfDay, ""); err != nil {
			t.Fatalf("Book: %v", err)
		}
	}

	// Doctor view is a working schedule, soonest first.
	byDoctor, err := env.svc.ListForDoctor(ctx, env.doctor.ID)
	if err != nil {
		t.Fatalf("ListForDoctor: %v", err)
	}
	for i := 1; i < len(byDoctor); i++ {
		if byDoctor[i].Date.Before(byDoctor[i-1].Date) {
			t.Fatalf("doctor list not ascending: %s before %s", byDoctor[i].DateString(), byDoctor[i-1].DateString())
		}
	}

	// Patient view is a history, newest first.
	byPatient, err := env.svc.ListForPatient(ctx, env.patient.ID)
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	for i := 1; i < len(byPatient); i++ {
		if byPatient[i].Date.After(byPatient[i-1].Date) {
			t.Fatalf("patient list not descending")
		}
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-09-14", "10:30", ""); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := env.svc.Book(ctx, env.patient.ID, env.doctor.ID, nil, "2026-08-01", "10:30", ""); err != nil {
		t.Fatalf("Book: %v", err)
	}

	today, _ := time.Parse(time.DateOnly, "2026-09-01")
	stats, err := env.svc.DashboardStats(ctx, today)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalDoctors != 1 || stats.TotalPatients != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.TotalAppointments != 2 || stats.UpcomingAppointments != 1 {
		t.Fatalf("appointments = %+v", stats)
	}
}
