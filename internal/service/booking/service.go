package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/schedule"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

// Policy carries the clinic's booking rules. Zero values are replaced by the
// defaults inherited from the legacy portals.
type Policy struct {
	ConsultationDuration time.Duration
	CancellationCutoff   time.Duration
	DefaultWindow        string
	Location             *time.Location
}

func (p Policy) withDefaults() Policy {
	if p.ConsultationDuration <= 0 {
		p.ConsultationDuration = 30 * time.Minute
	}
	if p.CancellationCutoff <= 0 {
		p.CancellationCutoff = 24 * time.Hour
	}
	if p.DefaultWindow == "" {
		p.DefaultWindow = "08:00-18:00"
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	return p
}

// Notifier delivers best-effort notifications; failures never fail a booking.
type Notifier interface {
	AppointmentBooked(ctx context.Context, apt *model.Appointment) error
	AppointmentCancelled(ctx context.Context, apt *model.Appointment) error
}

type Service struct {
	appointments  repository.AppointmentRepository
	practitioners repository.PractitionerRepository
	patients      repository.PatientRepository
	notifier      Notifier
	policy        Policy
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	appointments repository.AppointmentRepository,
	practitioners repository.PractitionerRepository,
	patients repository.PatientRepository,
	notifier Notifier,
	policy Policy,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if log == nil {
		log = logger.NewLogger(nil)
	}
	return &Service{
		appointments:  appointments,
		practitioners: practitioners,
		patients:      patients,
		notifier:      notifier,
		policy:        policy.withDefaults(),
		logger:        log,
		metrics:       m,
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// canModify enforces the caller-identity rule: admins and the system touch
// anything, practitioners and patients only their own appointments.
func canModify(actor *model.Actor, apt *model.Appointment) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case model.RoleAdmin, model.RoleSystem:
		return true
	case model.RolePractitioner:
		return actor.ID == apt.PractitionerID
	case model.RolePatient:
		return actor.ID == apt.PatientID
	}
	return false
}

func (s *Service) resolveParticipants(ctx context.Context, practitionerID, patientID uuid.UUID) (*model.Practitioner, *model.Patient, error) {
	practitioner, err := s.practitioners.Get(ctx, practitionerID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidSubjectOrPractitioner("practitioner does not exist")
		}
		return nil, nil, fmt.Errorf("failed to resolve practitioner: %w", err)
	}
	if !practitioner.Active() {
		return nil, nil, apperrors.InvalidSubjectOrPractitioner("practitioner is not active")
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidSubjectOrPractitioner("patient does not exist")
		}
		return nil, nil, fmt.Errorf("failed to resolve patient: %w", err)
	}
	if !patient.Active() {
		return nil, nil, apperrors.InvalidSubjectOrPractitioner("patient is not active")
	}

	return practitioner, patient, nil
}

// checkWorkingHours validates the interval against the practitioner's
// configured windows, falling back to the default window when the schedule
// string cannot be parsed. The fallback is logged, never swallowed.
func (s *Service) checkWorkingHours(practitioner *model.Practitioner, slot model.TimeSlot) error {
	weekly, usedDefault, parseErr := schedule.Resolve(practitioner.Schedule, s.policy.DefaultWindow)
	if parseErr != nil {
		s.logger.Warn("falling back to default working window",
			"practitioner_id", practitioner.ID.String(),
			"schedule", practitioner.Schedule,
			"error", parseErr.Error())
	}
	if usedDefault && s.metrics != nil {
		s.metrics.DefaultScheduleUsed.Inc()
	}

	if !weekly.Contains(slot, s.policy.Location) {
		return apperrors.OutsideWorkingHours(
			fmt.Sprintf("interval is outside the practitioner's working hours (%s)", practitioner.Schedule))
	}
	return nil
}

// Create books an appointment. The conflict check here runs inside the
// repository transaction; any earlier check by the availability service is
// advisory only.
func (s *Service) Create(ctx context.Context, actor *model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	practitioner, _, err := s.resolveParticipants(ctx, req.PractitionerID, req.PatientID)
	if err != nil {
		return nil, err
	}

	duration := s.policy.ConsultationDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	start := req.StartTime.UTC()
	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		StartTime:      start,
		EndTime:        start.Add(duration),
		Status:         model.AppointmentStatusConfirmed,
		Reason:         req.Reason,
	}

	if err := s.checkWorkingHours(practitioner, apt.Interval()); err != nil {
		return nil, err
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentBooked, bookingEventPayload(apt, actor))
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox event: %w", err)
	}

	if err := s.appointments.CreateIfFree(ctx, apt, event); err != nil {
		if apperrors.Is(err, apperrors.ErrSchedulingConflict) && s.metrics != nil {
			s.metrics.SchedulingConflicts.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.notify(ctx, apt, s.notifierBooked)

	return apt, nil
}

// Cancel transitions a pending or confirmed appointment to cancelled,
// enforcing the minimum lead time. Cancelling exactly at the cutoff succeeds.
func (s *Service) Cancel(ctx context.Context, actor *model.Actor, id uuid.UUID, now time.Time) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, apt) {
		return nil, apperrors.Unauthorized(nil)
	}

	if !apt.Status.Cancellable() {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot cancel an appointment in status %s", apt.Status))
	}

	lead := apt.StartTime.Sub(now)
	if lead < s.policy.CancellationCutoff {
		return nil, apperrors.CancellationWindowExpired(
			fmt.Sprintf("cancellation requires at least %s notice", s.policy.CancellationCutoff)).
			WithDetail("remaining_lead_time", lead.String()).
			WithDetail("required_lead_time", s.policy.CancellationCutoff.String())
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentCancelled, bookingEventPayload(apt, actor))
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox event: %w", err)
	}

	cancelledAt := now.UTC()
	updated, err := s.appointments.UpdateStatusFrom(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed},
		model.AppointmentStatusCancelled, &cancelledAt, event)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCancelled.Inc()
	}
	s.notify(ctx, updated, s.notifierCancelled)

	return updated, nil
}

// Reschedule atomically moves an appointment to a new interval. The new slot
// is validated and claimed before the old one is released, so no window
// exists in which the practitioner appears free or doubly booked.
func (s *Service) Reschedule(ctx context.Context, actor *model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, apt) {
		return nil, apperrors.Unauthorized(nil)
	}

	if apt.Status.Terminal() {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot reschedule an appointment in status %s", apt.Status))
	}

	duration := apt.EndTime.Sub(apt.StartTime)

	if req.PractitionerID != nil {
		apt.PractitionerID = *req.PractitionerID
	}
	if req.StartTime != nil {
		apt.StartTime = req.StartTime.UTC()
		apt.EndTime = apt.StartTime.Add(duration)
	}
	if req.Reason != nil {
		apt.Reason = *req.Reason
	}
	apt.UpdatedAt = time.Now().UTC()

	practitioner, err := s.practitioners.Get(ctx, apt.PractitionerID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidSubjectOrPractitioner("practitioner does not exist")
		}
		return nil, fmt.Errorf("failed to resolve practitioner: %w", err)
	}
	if !practitioner.Active() {
		return nil, apperrors.InvalidSubjectOrPractitioner("practitioner is not active")
	}

	if err := s.checkWorkingHours(practitioner, apt.Interval()); err != nil {
		return nil, err
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentRescheduled, bookingEventPayload(apt, actor))
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox event: %w", err)
	}

	if err := s.appointments.RescheduleIfFree(ctx, apt, event); err != nil {
		if apperrors.Is(err, apperrors.ErrSchedulingConflict) && s.metrics != nil {
			s.metrics.SchedulingConflicts.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsRescheduled.Inc()
	}
	return apt, nil
}

// MarkCompleted is the system-driven transition once the appointment has
// ended. Calling it again on a completed appointment is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if apt.Status == model.AppointmentStatusCompleted {
		return apt, nil
	}
	if apt.Status != model.AppointmentStatusConfirmed {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot complete an appointment in status %s", apt.Status))
	}
	if now.Before(apt.EndTime) {
		return nil, apperrors.InvalidTransition("appointment has not ended yet")
	}

	event, err := model.NewOutboxEvent(model.EventAppointmentCompleted, bookingEventPayload(apt, model.SystemActor()))
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox event: %w", err)
	}

	updated, err := s.appointments.UpdateStatusFrom(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusConfirmed},
		model.AppointmentStatusCompleted, nil, event)
	if err != nil {
		// A concurrent sweep already completed it; idempotence requires success.
		if apperrors.Is(err, apperrors.ErrInvalidTransition) {
			return s.appointments.Get(ctx, id)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCompleted.Inc()
	}
	return updated, nil
}

// CompleteDue sweeps confirmed appointments past their end time. Intended to
// be called periodically by the worker.
func (s *Service) CompleteDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.appointments.FindDueForCompletion(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to find due appointments: %w", err)
	}

	completed := 0
	for _, apt := range due {
		if _, err := s.MarkCompleted(ctx, apt.ID, now); err != nil {
			s.logger.Error(err, "failed to complete appointment", "appointment_id", apt.ID.String())
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointments.List(ctx, filters)
}

// Delete hard-deletes an appointment. The repository only allows it for
// cancelled rows; live appointments must go through Cancel first.
func (s *Service) Delete(ctx context.Context, actor *model.Actor, id uuid.UUID) error {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, apt) {
		return apperrors.Unauthorized(nil)
	}
	return s.appointments.Delete(ctx, id)
}

type notifyFn func(ctx context.Context, apt *model.Appointment) error

func (s *Service) notifierBooked(ctx context.Context, apt *model.Appointment) error {
	return s.notifier.AppointmentBooked(ctx, apt)
}

func (s *Service) notifierCancelled(ctx context.Context, apt *model.Appointment) error {
	return s.notifier.AppointmentCancelled(ctx, apt)
}

func (s *Service) notify(ctx context.Context, apt *model.Appointment, fn notifyFn) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx, apt); err != nil {
		s.logger.Error(err, "failed to send notification", "appointment_id", apt.ID.String())
	}
}

func bookingEventPayload(apt *model.Appointment, actor *model.Actor) map[string]interface{} {
	payload := map[string]interface{}{
		"appointment_id":  apt.ID,
		"practitioner_id": apt.PractitionerID,
		"patient_id":      apt.PatientID,
		"start_time":      apt.StartTime,
		"end_time":        apt.EndTime,
		"status":          apt.Status,
	}
	if actor != nil {
		payload["actor_id"] = actor.ID
		payload["actor_role"] = actor.Role
	}
	return payload
}
