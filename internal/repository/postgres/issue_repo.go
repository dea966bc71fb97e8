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

const issueColumns = `
	id, elderly_profile_id, call_id, title, description, category, status, priority,
	resolution_notes, resolved_at, resolved_by, source, confidence_score,
	created_at, updated_at
`

// IssueRepository handles follow-up issue data operations
type IssueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(pool *pgxpool.Pool) *IssueRepository {
	return &IssueRepository{pool: pool}
}

// Create inserts a new issue
func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	query := `
		INSERT INTO issues (
			id, elderly_profile_id, call_id, title, description, category, status, priority,
			source, confidence_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		issue.ID,
		issue.ElderlyProfileID,
		issue.CallID,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Status,
		issue.Priority,
		issue.Source,
		issue.ConfidenceScore,
		issue.CreatedAt,
		issue.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	return nil
}

// GetByID retrieves an issue by ID
func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`

	issue := &domain.Issue{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&issue.ID,
		&issue.ElderlyProfileID,
		&issue.CallID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Status,
		&issue.Priority,
		&issue.ResolutionNotes,
		&issue.ResolvedAt,
		&issue.ResolvedBy,
		&issue.Source,
		&issue.ConfidenceScore,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issue, nil
}

// IssueFilter narrows List results. Zero values mean no filtering.
type IssueFilter struct {
	ElderlyProfileID *uuid.UUID
	Status           domain.IssueStatus
	Priority         domain.IssuePriority
	Limit            int
}

// List retrieves issues newest first, joined with the owning profile's
// display fields
func (r *IssueRepository) List(ctx context.Context, filter *IssueFilter) ([]*domain.IssueWithDetails, error) {
	query := `
		SELECT ` + prefixColumns("i", issueColumns) + `,
		       p.id, p.first_name, p.last_name, p.phone_number
		FROM issues i
		LEFT JOIN elderly_profiles p ON i.elderly_profile_id = p.id
	`

	args := []any{}
	conds := []string{}
	if filter.ElderlyProfileID != nil {
		args = append(args, *filter.ElderlyProfileID)
		conds = append(conds, fmt.Sprintf("i.elderly_profile_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("i.priority = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += ` ORDER BY i.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	return scanIssueRows(rows)
}

// ListOpen retrieves open issues ordered by priority then recency, for
// the dashboard triage view
func (r *IssueRepository) ListOpen(ctx context.Context, limit int) ([]*domain.IssueWithDetails, error) {
	query := `
		SELECT ` + prefixColumns("i", issueColumns) + `,
		       p.id, p.first_name, p.last_name, p.phone_number
		FROM issues i
		LEFT JOIN elderly_profiles p ON i.elderly_profile_id = p.id
		WHERE i.status = 'open'
		ORDER BY
			CASE i.priority
				WHEN 'urgent' THEN 0
				WHEN 'high' THEN 1
				WHEN 'normal' THEN 2
				ELSE 3
			END,
			i.created_at DESC
	`

	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $1"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open issues: %w", err)
	}
	defer rows.Close()

	return scanIssueRows(rows)
}

func scanIssueRows(rows pgx.Rows) ([]*domain.IssueWithDetails, error) {
	var issues []*domain.IssueWithDetails
	for rows.Next() {
		i := &domain.IssueWithDetails{}

		var profileID *uuid.UUID
		var profileFirst, profileLast, profilePhone *string

		err := rows.Scan(
			&i.ID,
			&i.ElderlyProfileID,
			&i.CallID,
			&i.Title,
			&i.Description,
			&i.Category,
			&i.Status,
			&i.Priority,
			&i.ResolutionNotes,
			&i.ResolvedAt,
			&i.ResolvedBy,
			&i.Source,
			&i.ConfidenceScore,
			&i.CreatedAt,
			&i.UpdatedAt,
			&profileID, &profileFirst, &profileLast, &profilePhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}

		if profileID != nil {
			i.ElderlyProfile = &domain.ElderlyProfile{
				ID:          *profileID,
				FirstName:   derefString(profileFirst),
				LastName:    derefString(profileLast),
				PhoneNumber: derefString(profilePhone),
			}
		}

		issues = append(issues, i)
	}

	return issues, nil
}

// IssueUpdate carries a partial issue update. Nil fields are left untouched.
type IssueUpdate struct {
	Title           *string
	Description     *string
	Category        *domain.IssueCategory
	Status          *domain.IssueStatus
	Priority        *domain.IssuePriority
	ResolutionNotes *string
	ResolvedAt      *time.Time
	ResolvedBy      *string
}

// Update applies a partial update and returns the updated issue
func (r *IssueRepository) Update(ctx context.Context, id uuid.UUID, u *IssueUpdate) (*domain.Issue, error) {
	sets := []string{}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.ResolutionNotes != nil {
		add("resolution_notes", *u.ResolutionNotes)
	}
	if u.ResolvedAt != nil {
		add("resolved_at", *u.ResolvedAt)
	}
	if u.ResolvedBy != nil {
		add("resolved_by", *u.ResolvedBy)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf(
		`UPDATE issues SET %s WHERE id = $1 RETURNING `+issueColumns,
		joinSets(sets),
	)

	issue := &domain.Issue{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&issue.ID,
		&issue.ElderlyProfileID,
		&issue.CallID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Status,
		&issue.Priority,
		&issue.ResolutionNotes,
		&issue.ResolvedAt,
		&issue.ResolvedBy,
		&issue.Source,
		&issue.ConfidenceScore,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}

	return issue, nil
}

// Delete removes an issue
func (r *IssueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of issues in the given status
func (r *IssueRepository) CountByStatus(ctx context.Context, status domain.IssueStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return count, nil
}

// CountOpenUrgent returns the number of open urgent-priority issues
func (r *IssueRepository) CountOpenUrgent(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM issues WHERE status = 'open' AND priority = 'urgent'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count urgent issues: %w", err)
	}
	return count, nil
}
