package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

type (
	// AppointmentRepository owns appointment state. CreateIfFree and
	// RescheduleIfFree run the conflict check and the mutation inside one
	// transaction with the practitioner's bookings locked; they are the
	// authoritative, race-free checks behind the advisory ones in the
	// availability service.
	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListForPractitionerBetween(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)

		// CreateIfFree inserts the appointment together with its outbox event,
		// failing with a conflict error when the interval overlaps an active
		// booking of the same practitioner.
		CreateIfFree(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error

		// RescheduleIfFree moves the appointment to a new interval (and
		// optionally a new practitioner) without ever releasing the old slot
		// to a concurrent request first.
		RescheduleIfFree(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error

		// UpdateStatusFrom transitions status only when the current status is
		// one of the allowed set, returning the updated row. Used for the
		// monotonic cancel/complete transitions.
		UpdateStatusFrom(ctx context.Context, id uuid.UUID, allowed []model.AppointmentStatus, to model.AppointmentStatus, cancelledAt *time.Time, event *model.OutboxEvent) (*model.Appointment, error)

		// FindDueForCompletion lists confirmed appointments whose end time has
		// passed.
		FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*model.Appointment, error)

		// Delete removes a row permanently; callers must enforce that only
		// cancelled appointments may be hard-deleted.
		Delete(ctx context.Context, id uuid.UUID) error
	}

	PractitionerRepository interface {
		Create(ctx context.Context, p *model.Practitioner) error
		Get(ctx context.Context, id uuid.UUID) (*model.Practitioner, error)
		Update(ctx context.Context, p *model.Practitioner) error
		UpdateSchedule(ctx context.Context, id uuid.UUID, schedule string) error
		List(ctx context.Context) ([]*model.Practitioner, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, p *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, p *model.Patient) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
