package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"carecall-backend/internal/domain"
)

// OverrideRepository handles schedule override data operations
type OverrideRepository struct {
	pool *pgxpool.Pool
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(pool *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{pool: pool}
}

// Create inserts a schedule override
func (r *OverrideRepository) Create(ctx context.Context, o *domain.ScheduleOverride) error {
	query := `
		INSERT INTO schedule_overrides (
			id, elderly_profile_id, override_date, skip_call, custom_time, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		o.ID,
		o.ElderlyProfileID,
		o.OverrideDate,
		o.SkipCall,
		o.CustomTime,
		o.Reason,
		o.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create schedule override: %w", err)
	}

	return nil
}

// ListByProfile retrieves overrides for a profile ordered by date
func (r *OverrideRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.ScheduleOverride, error) {
	query := `
		SELECT id, elderly_profile_id, override_date, skip_call, custom_time, reason, created_at
		FROM schedule_overrides
		WHERE elderly_profile_id = $1
		ORDER BY override_date ASC
	`

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*domain.ScheduleOverride
	for rows.Next() {
		o := &domain.ScheduleOverride{}
		err := rows.Scan(
			&o.ID,
			&o.ElderlyProfileID,
			&o.OverrideDate,
			&o.SkipCall,
			&o.CustomTime,
			&o.Reason,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule override: %w", err)
		}
		overrides = append(overrides, o)
	}

	return overrides, nil
}

// Delete removes a schedule override
func (r *OverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedule_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
