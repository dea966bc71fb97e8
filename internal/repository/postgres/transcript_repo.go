package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"carecall-backend/internal/domain"
)

// ErrSequenceConflict is returned when an appended transcript entry does
// not carry a strictly greater sequence number than the stored maximum
var ErrSequenceConflict = fmt.Errorf("transcript sequence number not strictly increasing")

// TranscriptRepository handles call transcript data operations.
// Transcripts are append-only.
type TranscriptRepository struct {
	pool *pgxpool.Pool
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{pool: pool}
}

// Append inserts a transcript entry, enforcing the strictly increasing
// sequence invariant per call in a single guarded insert
func (r *TranscriptRepository) Append(ctx context.Context, t *domain.CallTranscript) error {
	query := `
		INSERT INTO call_transcripts (
			id, call_id, role, message, timestamp_ms, sequence_number, created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM call_transcripts
			WHERE call_id = $2 AND sequence_number >= $6
		)
	`

	tag, err := r.pool.Exec(ctx, query,
		t.ID,
		t.CallID,
		t.Role,
		t.Message,
		t.TimestampMS,
		t.SequenceNumber,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSequenceConflict
	}

	return nil
}

// ListByCall retrieves the full transcript of a call in sequence order
func (r *TranscriptRepository) ListByCall(ctx context.Context, callID uuid.UUID) ([]*domain.CallTranscript, error) {
	query := `
		SELECT id, call_id, role, message, timestamp_ms, sequence_number, created_at
		FROM call_transcripts
		WHERE call_id = $1
		ORDER BY sequence_number ASC
	`

	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CallTranscript
	for rows.Next() {
		t := &domain.CallTranscript{}
		err := rows.Scan(
			&t.ID,
			&t.CallID,
			&t.Role,
			&t.Message,
			&t.TimestampMS,
			&t.SequenceNumber,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		entries = append(entries, t)
	}

	return entries, nil
}
