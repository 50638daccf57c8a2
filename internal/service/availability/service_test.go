package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/service/booking"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

type memAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *memAppointmentRepo) active(apt *model.Appointment) bool {
	return apt.Status == model.AppointmentStatusPending || apt.Status == model.AppointmentStatusConfirmed
}

func (r *memAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	copied := *apt
	return &copied, nil
}

func (r *memAppointmentRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *memAppointmentRepo) ListForPractitionerBetween(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.PractitionerID == practitionerID && r.active(apt) &&
			apt.StartTime.Before(to) && apt.EndTime.After(from) {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memAppointmentRepo) CreateIfFree(_ context.Context, apt *model.Appointment, _ *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appointments {
		if existing.PractitionerID == apt.PractitionerID && r.active(existing) &&
			existing.StartTime.Before(apt.EndTime) && existing.EndTime.After(apt.StartTime) {
			return apperrors.SchedulingConflict("interval overlaps an existing booking")
		}
	}
	copied := *apt
	r.appointments[apt.ID] = &copied
	return nil
}

func (r *memAppointmentRepo) RescheduleIfFree(_ context.Context, _ *model.Appointment, _ *model.OutboxEvent) error {
	return nil
}

func (r *memAppointmentRepo) UpdateStatusFrom(_ context.Context, _ uuid.UUID, _ []model.AppointmentStatus, _ model.AppointmentStatus, _ *time.Time, _ *model.OutboxEvent) (*model.Appointment, error) {
	return nil, nil
}

func (r *memAppointmentRepo) FindDueForCompletion(_ context.Context, _ time.Time, _ int) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *memAppointmentRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type memPractitionerRepo struct {
	practitioners map[uuid.UUID]*model.Practitioner
	gets          int
}

func (r *memPractitionerRepo) Create(_ context.Context, p *model.Practitioner) error {
	r.practitioners[p.ID] = p
	return nil
}

func (r *memPractitionerRepo) Get(_ context.Context, id uuid.UUID) (*model.Practitioner, error) {
	r.gets++
	p, ok := r.practitioners[id]
	if !ok {
		return nil, apperrors.NotFound("practitioner", nil)
	}
	return p, nil
}

func (r *memPractitionerRepo) Update(_ context.Context, p *model.Practitioner) error {
	r.practitioners[p.ID] = p
	return nil
}

func (r *memPractitionerRepo) UpdateSchedule(_ context.Context, id uuid.UUID, schedule string) error {
	r.practitioners[id].Schedule = schedule
	return nil
}

func (r *memPractitionerRepo) List(_ context.Context) ([]*model.Practitioner, error) {
	return nil, nil
}

type memPatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *memPatientRepo) Create(_ context.Context, p *model.Patient) error { return nil }
func (r *memPatientRepo) Update(_ context.Context, p *model.Patient) error { return nil }
func (r *memPatientRepo) List(_ context.Context, _ *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (r *memPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func mondayAt(hour, min int) time.Time {
	anchor := time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
	return anchor.AddDate(0, 0, 7*520)
}

type availabilityFixture struct {
	svc            *Service
	appointments   *memAppointmentRepo
	practitioners  *memPractitionerRepo
	practitionerID uuid.UUID
	patientID      uuid.UUID
	admin          *model.Actor
}

func newAvailabilityFixture(t *testing.T, schedule string) *availabilityFixture {
	return newAvailabilityFixtureWithConfig(t, schedule, Config{})
}

func newAvailabilityFixtureWithConfig(t *testing.T, schedule string, cfg Config) *availabilityFixture {
	t.Helper()

	practitionerID := uuid.New()
	patientID := uuid.New()

	practitioners := &memPractitionerRepo{practitioners: map[uuid.UUID]*model.Practitioner{
		practitionerID: {
			Base:     model.Base{ID: practitionerID},
			Email:    "dr@clinic.example",
			Name:     "Dr. Test",
			Schedule: schedule,
			Status:   model.PractitionerStatusActive,
		},
	}}
	patients := &memPatientRepo{patients: map[uuid.UUID]*model.Patient{
		patientID: {
			Base:   model.Base{ID: patientID},
			Email:  "patient@example.com",
			Name:   "Pat Test",
			Status: model.PatientStatusActive,
		},
	}}
	appointments := newMemAppointmentRepo()

	bookingSvc := booking.NewService(appointments, practitioners, patients, nil, booking.Policy{}, nil, nil)
	svc := NewService(appointments, practitioners, bookingSvc, cfg, nil, nil)
	svc.now = func() time.Time { return mondayAt(0, 0).AddDate(0, 0, -30) }

	return &availabilityFixture{
		svc:            svc,
		appointments:   appointments,
		practitioners:  practitioners,
		practitionerID: practitionerID,
		patientID:      patientID,
		admin:          &model.Actor{ID: uuid.New(), Role: model.RoleAdmin},
	}
}

func TestFreeSlots(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon 09:00-12:00")

	result, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)

	assert.False(t, result.UsedDefault)
	require.Len(t, result.Slots, 6)
	assert.Equal(t, mondayAt(9, 0), result.Slots[0].Start)
	assert.Equal(t, mondayAt(11, 30), result.Slots[5].Start)
}

func TestFreeSlotsExcludesOnlyBookedSlot(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon 09:00-12:00")

	booked := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PractitionerID: f.practitionerID,
		PatientID:      f.patientID,
		StartTime:      mondayAt(10, 0),
		EndTime:        mondayAt(10, 30),
		Status:         model.AppointmentStatusConfirmed,
	}
	require.NoError(t, f.appointments.CreateIfFree(context.Background(), booked, nil))

	result, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)

	require.Len(t, result.Slots, 5)
	for _, slot := range result.Slots {
		assert.NotEqual(t, mondayAt(10, 0), slot.Start)
	}
}

func TestFreeSlotsCancelledReleasesSlot(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon 09:00-12:00")

	cancelled := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PractitionerID: f.practitionerID,
		PatientID:      f.patientID,
		StartTime:      mondayAt(10, 0),
		EndTime:        mondayAt(10, 30),
		Status:         model.AppointmentStatusCancelled,
	}
	f.appointments.appointments[cancelled.ID] = cancelled

	result, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)
	assert.Len(t, result.Slots, 6)
}

func TestFreeSlotsDefaultScheduleFallback(t *testing.T) {
	f := newAvailabilityFixture(t, "gibberish schedule")

	result, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)

	assert.True(t, result.UsedDefault)
	// Default window 08:00-18:00 at 30m granularity.
	assert.Len(t, result.Slots, 20)
	assert.Equal(t, mondayAt(8, 0), result.Slots[0].Start)
}

func TestFreeSlotsUnknownPractitioner(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon 09:00-12:00")

	_, err := f.svc.FreeSlots(context.Background(), uuid.New(), mondayAt(0, 0))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidSubjectOrPractitioner))
}

func TestFreeSlotsCachesPractitioner(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon 09:00-12:00")

	_, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)
	_, err = f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, f.practitioners.gets)

	f.svc.InvalidateCache(f.practitionerID)
	_, err = f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, f.practitioners.gets)
}

func TestFreeSlotsNonUTCLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	f := newAvailabilityFixtureWithConfig(t, "Mon-Fri 09:00-12:00", Config{Location: loc})

	// Wall-clock times on the clinic's local Monday. Monday noon UTC is
	// still Monday in UTC-5, so the anchor's date fields are safe to reuse.
	anchor := mondayAt(12, 0).In(loc)
	localAt := func(hour, min int) time.Time {
		return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), hour, min, 0, 0, loc)
	}

	booked := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PractitionerID: f.practitionerID,
		PatientID:      f.patientID,
		StartTime:      localAt(10, 0),
		EndTime:        localAt(10, 30),
		Status:         model.AppointmentStatusConfirmed,
	}
	require.NoError(t, f.appointments.CreateIfFree(context.Background(), booked, nil))

	// Tuesday 00:00 UTC is Monday 19:00 local; the query must resolve to
	// the local Monday and see the booking there.
	result, err := f.svc.FreeSlots(context.Background(), f.practitionerID, mondayAt(0, 0).AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, anchor.Format("2006-01-02"), result.Date)
	require.Len(t, result.Slots, 5)
	for _, slot := range result.Slots {
		assert.False(t, slot.Start.Equal(localAt(10, 0)))
	}
}

func TestValidateAndBook(t *testing.T) {
	f := newAvailabilityFixture(t, "Mon-Fri 08:00-16:00")

	apt, err := f.svc.ValidateAndBook(context.Background(), f.admin, &model.CreateAppointmentRequest{
		PractitionerID: f.practitionerID,
		PatientID:      f.patientID,
		StartTime:      mondayAt(9, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	// Pre-check catches the conflict before the transactional path runs.
	_, err = f.svc.ValidateAndBook(context.Background(), f.admin, &model.CreateAppointmentRequest{
		PractitionerID: f.practitionerID,
		PatientID:      f.patientID,
		StartTime:      mondayAt(9, 15),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrSchedulingConflict))
}
