package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carecall-backend/internal/domain"
)

// SummaryRepository handles call summary data operations. A call has at
// most one summary; writes replace the previous analysis for the call.
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Upsert stores the analysis for a call, replacing any existing one
func (r *SummaryRepository) Upsert(ctx context.Context, s *domain.CallSummary) error {
	query := `
		INSERT INTO call_summaries (
			id, call_id, transcript_summary, call_successful, mood_assessment,
			health_mentions, needs_mentioned, key_topics,
			follow_up_required, urgency_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (call_id) DO UPDATE SET
			transcript_summary = EXCLUDED.transcript_summary,
			call_successful = EXCLUDED.call_successful,
			mood_assessment = EXCLUDED.mood_assessment,
			health_mentions = EXCLUDED.health_mentions,
			needs_mentioned = EXCLUDED.needs_mentioned,
			key_topics = EXCLUDED.key_topics,
			follow_up_required = EXCLUDED.follow_up_required,
			urgency_level = EXCLUDED.urgency_level
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.CallID,
		s.TranscriptSummary,
		s.CallSuccessful,
		s.MoodAssessment,
		s.HealthMentions,
		s.NeedsMentioned,
		s.KeyTopics,
		s.FollowUpRequired,
		s.UrgencyLevel,
		s.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	return nil
}

// GetByCall retrieves the summary of a call if one exists
func (r *SummaryRepository) GetByCall(ctx context.Context, callID uuid.UUID) (*domain.CallSummary, error) {
	query := `
		SELECT id, call_id, transcript_summary, call_successful, mood_assessment,
		       health_mentions, needs_mentioned, key_topics,
		       follow_up_required, urgency_level, created_at
		FROM call_summaries
		WHERE call_id = $1
	`

	s := &domain.CallSummary{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&s.ID,
		&s.CallID,
		&s.TranscriptSummary,
		&s.CallSuccessful,
		&s.MoodAssessment,
		&s.HealthMentions,
		&s.NeedsMentioned,
		&s.KeyTopics,
		&s.FollowUpRequired,
		&s.UrgencyLevel,
		&s.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return s, nil
}
