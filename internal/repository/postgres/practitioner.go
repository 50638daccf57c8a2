package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

func (r *practitionerRepository) Create(ctx context.Context, p *model.Practitioner) error {
	query := `
		INSERT INTO practitioners (
			id, email, name, specialty, schedule, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Name, p.Specialty, p.Schedule, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create practitioner: %w", err)
	}
	return nil
}

func (r *practitionerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Practitioner, error) {
	query := `
		SELECT id, email, name, specialty, schedule, status, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`
	var p model.Practitioner
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("practitioner", err)
		}
		return nil, fmt.Errorf("failed to get practitioner: %w", err)
	}
	return &p, nil
}

func (r *practitionerRepository) Update(ctx context.Context, p *model.Practitioner) error {
	query := `
		UPDATE practitioners
		SET email = $1, name = $2, specialty = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	p.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		p.Email, p.Name, p.Specialty, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update practitioner: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("practitioner", nil)
	}
	return nil
}

func (r *practitionerRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE practitioners SET schedule = $1, updated_at = $2 WHERE id = $3
	`, schedule, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update practitioner schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("practitioner", nil)
	}
	return nil
}

func (r *practitionerRepository) List(ctx context.Context) ([]*model.Practitioner, error) {
	query := `
		SELECT id, email, name, specialty, schedule, status, created_at, updated_at
		FROM practitioners
		ORDER BY name ASC
	`
	var practitioners []*model.Practitioner
	if err := r.db.SelectContext(ctx, &practitioners, query); err != nil {
		return nil, fmt.Errorf("failed to list practitioners: %w", err)
	}
	return practitioners, nil
}
