package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduler-api/internal/model"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

const appointmentColumns = `
	id, practitioner_id, patient_id, start_time, end_time,
	status, reason, cancelled_at, created_at, updated_at
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.PractitionerID != uuid.Nil {
		query += fmt.Sprintf(" AND practitioner_id = $%d", argCount)
		args = append(args, filters.PractitionerID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPractitionerBetween(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE practitioner_id = $1
		AND start_time < $3
		AND end_time > $2
		AND status NOT IN ('cancelled', 'completed')
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, practitionerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list practitioner appointments: %w", err)
	}
	return appointments, nil
}

// lockPractitioner serializes booking transactions per practitioner. The
// advisory lock is transaction scoped, so different practitioners proceed
// fully in parallel while two bookings for the same one are ordered.
func lockPractitioner(ctx context.Context, tx *sqlx.Tx, practitionerID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		practitionerID.String()); err != nil {
		return fmt.Errorf("failed to lock practitioner bookings: %w", err)
	}
	return nil
}

func hasOverlapTx(ctx context.Context, tx *sqlx.Tx, practitionerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE practitioner_id = $1
			AND status NOT IN ('cancelled', 'completed')
			AND start_time < $3
			AND end_time > $2
	`
	args := []interface{}{practitionerID, start, end}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}
	query += ")"

	var overlap bool
	if err := tx.GetContext(ctx, &overlap, query, args...); err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return overlap, nil
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at, retry_count)
		VALUES ($1, $2, $3, $4, $5, 0)
	`, event.ID, event.EventType, event.Payload, event.Status, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *appointmentRepository) CreateIfFree(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPractitioner(ctx, tx, apt.PractitionerID); err != nil {
			return err
		}

		overlap, err := hasOverlapTx(ctx, tx, apt.PractitionerID, apt.StartTime, apt.EndTime, nil)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.SchedulingConflict("interval overlaps an existing booking")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO appointments (
				id, practitioner_id, patient_id, start_time, end_time,
				status, reason, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			apt.ID,
			apt.PractitionerID,
			apt.PatientID,
			apt.StartTime,
			apt.EndTime,
			apt.Status,
			apt.Reason,
			apt.CreatedAt,
			apt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		return insertOutboxTx(ctx, tx, event)
	})
}

func (r *appointmentRepository) RescheduleIfFree(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPractitioner(ctx, tx, apt.PractitionerID); err != nil {
			return err
		}

		overlap, err := hasOverlapTx(ctx, tx, apt.PractitionerID, apt.StartTime, apt.EndTime, &apt.ID)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.SchedulingConflict("interval overlaps an existing booking")
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET practitioner_id = $1, start_time = $2, end_time = $3,
				reason = $4, updated_at = $5
			WHERE id = $6
			AND status NOT IN ('cancelled', 'completed')
		`,
			apt.PractitionerID,
			apt.StartTime,
			apt.EndTime,
			apt.Reason,
			apt.UpdatedAt,
			apt.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to reschedule appointment: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.InvalidTransition("appointment is no longer reschedulable")
		}

		return insertOutboxTx(ctx, tx, event)
	})
}

func (r *appointmentRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, allowed []model.AppointmentStatus, to model.AppointmentStatus, cancelledAt *time.Time, event *model.OutboxEvent) (*model.Appointment, error) {
	statuses := make([]string, len(allowed))
	for i, s := range allowed {
		statuses[i] = string(s)
	}

	var updated model.Appointment
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`
			UPDATE appointments
			SET status = ?, cancelled_at = COALESCE(?, cancelled_at), updated_at = ?
			WHERE id = ?
			AND status IN (?)
			RETURNING `+appointmentColumns,
			to, cancelledAt, time.Now().UTC(), id, statuses)
		if err != nil {
			return fmt.Errorf("failed to build status update: %w", err)
		}
		query = tx.Rebind(query)

		if err := tx.GetContext(ctx, &updated, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.InvalidTransition(
					fmt.Sprintf("appointment cannot transition to %s from its current state", to))
			}
			return fmt.Errorf("failed to update appointment status: %w", err)
		}

		return insertOutboxTx(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *appointmentRepository) FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'confirmed'
		AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to find due appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1 AND status = 'cancelled'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidTransition("only cancelled appointments can be deleted")
	}
	return nil
}
