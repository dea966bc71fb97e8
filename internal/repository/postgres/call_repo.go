package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carecall-backend/internal/domain"
)

const callColumns = `
	id, elderly_profile_id, conversation_id, agent_id, status, call_type,
	initiated_at, started_at, ended_at, duration_secs, termination_reason, cost, created_at
`

// CallRepository handles call record data operations
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create inserts a new call record
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (
			id, elderly_profile_id, conversation_id, agent_id, status, call_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		call.ID,
		call.ElderlyProfileID,
		call.ConversationID,
		call.AgentID,
		call.Status,
		call.CallType,
		call.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// UpdateStatus updates only the call status
func (r *CallRepository) UpdateStatus(ctx context.Context, callID uuid.UUID, status domain.CallStatus) error {
	query := `UPDATE calls SET status = $2 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, callID, status)
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}

	return nil
}

// MarkInProgress stamps the provider conversation id, the in_progress
// status and the initiation time in one write
func (r *CallRepository) MarkInProgress(ctx context.Context, callID uuid.UUID, conversationID string, initiatedAt time.Time) error {
	query := `
		UPDATE calls
		SET conversation_id = $2,
		    status = $3,
		    initiated_at = $4
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, callID, conversationID, domain.CallStatusInProgress, initiatedAt)
	if err != nil {
		return fmt.Errorf("failed to mark call in progress: %w", err)
	}

	return nil
}

// CallOutcome carries the provider-reported end state of a call. It is
// written by the external outcome process, not by the initiation flow.
type CallOutcome struct {
	Status            domain.CallStatus
	StartedAt         *time.Time
	EndedAt           *time.Time
	DurationSecs      *int
	TerminationReason *string
	Cost              *float64
}

// ApplyOutcome records the terminal outcome reported by the provider
func (r *CallRepository) ApplyOutcome(ctx context.Context, callID uuid.UUID, outcome *CallOutcome) error {
	query := `
		UPDATE calls
		SET status = $2,
		    started_at = COALESCE($3, started_at),
		    ended_at = COALESCE($4, ended_at),
		    duration_secs = COALESCE($5, duration_secs),
		    termination_reason = COALESCE($6, termination_reason),
		    cost = COALESCE($7, cost)
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		callID,
		outcome.Status,
		outcome.StartedAt,
		outcome.EndedAt,
		outcome.DurationSecs,
		outcome.TerminationReason,
		outcome.Cost,
	)
	if err != nil {
		return fmt.Errorf("failed to apply call outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.ID,
		&call.ElderlyProfileID,
		&call.ConversationID,
		&call.AgentID,
		&call.Status,
		&call.CallType,
		&call.InitiatedAt,
		&call.StartedAt,
		&call.EndedAt,
		&call.DurationSecs,
		&call.TerminationReason,
		&call.Cost,
		&call.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// CallFilter narrows List results. Zero values mean no filtering.
type CallFilter struct {
	ElderlyProfileID *uuid.UUID
	Status           domain.CallStatus
	Limit            int
}

// List retrieves calls ordered by initiation time, newest first, joined
// with the owning profile's display fields and the call summary if present
func (r *CallRepository) List(ctx context.Context, filter *CallFilter) ([]*domain.CallWithDetails, error) {
	query := `
		SELECT ` + prefixColumns("c", callColumns) + `,
		       p.id, p.first_name, p.last_name, p.phone_number,
		       s.id, s.transcript_summary, s.call_successful, s.mood_assessment,
		       s.follow_up_required, s.urgency_level
		FROM calls c
		LEFT JOIN elderly_profiles p ON c.elderly_profile_id = p.id
		LEFT JOIN call_summaries s ON s.call_id = c.id
	`

	args := []any{}
	where := ""
	if filter.ElderlyProfileID != nil {
		args = append(args, *filter.ElderlyProfileID)
		where = fmt.Sprintf(" WHERE c.elderly_profile_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		if where == "" {
			where = fmt.Sprintf(" WHERE c.status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND c.status = $%d", len(args))
		}
	}
	query += where + ` ORDER BY c.initiated_at DESC NULLS LAST, c.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.CallWithDetails
	for rows.Next() {
		c := &domain.CallWithDetails{}

		var profileID *uuid.UUID
		var profileFirst, profileLast, profilePhone *string
		var summaryID *uuid.UUID
		var summaryText *string
		var summarySuccessful *bool
		var summaryMood *domain.MoodAssessment
		var summaryFollowUp *bool
		var summaryUrgency *string

		err := rows.Scan(
			&c.ID,
			&c.ElderlyProfileID,
			&c.ConversationID,
			&c.AgentID,
			&c.Status,
			&c.CallType,
			&c.InitiatedAt,
			&c.StartedAt,
			&c.EndedAt,
			&c.DurationSecs,
			&c.TerminationReason,
			&c.Cost,
			&c.CreatedAt,
			&profileID, &profileFirst, &profileLast, &profilePhone,
			&summaryID, &summaryText, &summarySuccessful, &summaryMood,
			&summaryFollowUp, &summaryUrgency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}

		if profileID != nil {
			c.ElderlyProfile = &domain.ElderlyProfile{
				ID:          *profileID,
				FirstName:   derefString(profileFirst),
				LastName:    derefString(profileLast),
				PhoneNumber: derefString(profilePhone),
			}
		}
		if summaryID != nil {
			c.CallSummary = &domain.CallSummary{
				ID:                *summaryID,
				CallID:            &c.ID,
				TranscriptSummary: summaryText,
				CallSuccessful:    summarySuccessful,
				MoodAssessment:    summaryMood,
				FollowUpRequired:  summaryFollowUp != nil && *summaryFollowUp,
				UrgencyLevel:      derefString(summaryUrgency),
			}
		}

		calls = append(calls, c)
	}

	return calls, nil
}

// CountInitiatedSince counts calls initiated at or after the given time
func (r *CallRepository) CountInitiatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM calls WHERE initiated_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count calls: %w", err)
	}
	return count, nil
}
