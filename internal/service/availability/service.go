package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/schedule"
	"github.com/jwalitptl/scheduler-api/internal/service/booking"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

// Config carries the slot-generation policy.
type Config struct {
	ConsultationDuration time.Duration
	SlotGranularity      time.Duration
	DefaultWindow        string
	Location             *time.Location
	CacheTTL             time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConsultationDuration <= 0 {
		c.ConsultationDuration = 30 * time.Minute
	}
	if c.SlotGranularity <= 0 {
		c.SlotGranularity = 30 * time.Minute
	}
	if c.DefaultWindow == "" {
		c.DefaultWindow = "08:00-18:00"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	return c
}

type Service struct {
	appointments  repository.AppointmentRepository
	practitioners repository.PractitionerRepository
	booking       *booking.Service
	cfg           Config
	cache         *gocache.Cache
	logger        *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	practitioners repository.PractitionerRepository,
	bookingSvc *booking.Service,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if log == nil {
		log = logger.NewLogger(nil)
	}
	cfg = cfg.withDefaults()
	return &Service{
		appointments:  appointments,
		practitioners: practitioners,
		booking:       bookingSvc,
		cfg:           cfg,
		cache:         gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:        log,
		metrics:       m,
		now:           time.Now,
	}
}

// practitioner fetches through a short-lived cache; schedules change rarely
// compared to how often availability is queried.
func (s *Service) practitioner(ctx context.Context, id uuid.UUID) (*model.Practitioner, error) {
	key := id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.Practitioner), nil
	}

	practitioner, err := s.practitioners.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, practitioner, gocache.DefaultExpiration)
	return practitioner, nil
}

// InvalidateCache drops a practitioner from the schedule cache. Called after
// schedule updates so stale windows never outlive a write.
func (s *Service) InvalidateCache(id uuid.UUID) {
	s.cache.Delete(id.String())
}

// FreeSlots returns the bookable start times for a practitioner on a date.
// Every returned slot lies inside a working window and overlaps no active
// appointment.
func (s *Service) FreeSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) (*model.AvailableSlots, error) {
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		if s.metrics != nil {
			s.metrics.SlotQueryLatency.Observe(v)
		}
	}))
	defer timer.ObserveDuration()

	practitioner, err := s.practitioner(ctx, practitionerID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidSubjectOrPractitioner("practitioner does not exist")
		}
		return nil, err
	}
	if !practitioner.Active() {
		return nil, apperrors.InvalidSubjectOrPractitioner("practitioner is not active")
	}

	weekly, usedDefault, parseErr := schedule.Resolve(practitioner.Schedule, s.cfg.DefaultWindow)
	if parseErr != nil {
		s.logger.Warn("falling back to default working window",
			"practitioner_id", practitionerID.String(),
			"schedule", practitioner.Schedule,
			"error", parseErr.Error())
	}
	if usedDefault && s.metrics != nil {
		s.metrics.DefaultScheduleUsed.Inc()
	}

	now := s.now().UTC()
	candidates := weekly.CandidateSlots(date, now, s.cfg.SlotGranularity, s.cfg.ConsultationDuration, s.cfg.Location)

	// Normalize to the clinic's local day so the appointment fetch covers the
	// same window the candidates were generated for.
	local := date.In(s.cfg.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	dayEnd := dayStart.Add(24 * time.Hour)
	existing, err := s.appointments.ListForPractitionerBetween(ctx, practitionerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	return &model.AvailableSlots{
		PractitionerID: practitionerID.String(),
		Date:           dayStart.Format("2006-01-02"),
		Slots:          schedule.FilterFree(candidates, existing),
		UsedDefault:    usedDefault,
	}, nil
}

// ValidateAndBook runs a descriptive pre-check so callers get a precise
// failure before the transactional path, then delegates to the booking
// service. The transactional conflict check remains authoritative.
func (s *Service) ValidateAndBook(ctx context.Context, actor *model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	duration := s.cfg.ConsultationDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	candidate := model.TimeSlot{Start: req.StartTime.UTC(), End: req.StartTime.UTC().Add(duration)}

	existing, err := s.appointments.ListForPractitionerBetween(ctx, req.PractitionerID,
		candidate.Start.Add(-24*time.Hour), candidate.End.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	if schedule.HasConflict(candidate, existing) {
		if s.metrics != nil {
			s.metrics.SchedulingConflicts.Inc()
		}
		return nil, apperrors.SchedulingConflict("the requested interval overlaps an existing appointment")
	}

	return s.booking.Create(ctx, actor, req)
}
