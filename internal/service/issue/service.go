package issue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
)

// Repository is the issue store surface the issue service needs
type Repository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	List(ctx context.Context, filter *postgres.IssueFilter) ([]*domain.IssueWithDetails, error)
	ListOpen(ctx context.Context, limit int) ([]*domain.IssueWithDetails, error)
	Update(ctx context.Context, id uuid.UUID, u *postgres.IssueUpdate) (*domain.Issue, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles follow-up issue management
type Service struct {
	issues Repository
}

// NewService creates a new issue service
func NewService(issues Repository) *Service {
	return &Service{issues: issues}
}

var validCategories = map[domain.IssueCategory]bool{
	domain.IssueCategoryHealth:     true,
	domain.IssueCategoryLoneliness: true,
	domain.IssueCategoryPractical:  true,
	domain.IssueCategoryEmergency:  true,
	domain.IssueCategoryOther:      true,
}

var validStatuses = map[domain.IssueStatus]bool{
	domain.IssueStatusOpen:       true,
	domain.IssueStatusInProgress: true,
	domain.IssueStatusResolved:   true,
	domain.IssueStatusDismissed:  true,
}

var validPriorities = map[domain.IssuePriority]bool{
	domain.IssuePriorityLow:    true,
	domain.IssuePriorityNormal: true,
	domain.IssuePriorityHigh:   true,
	domain.IssuePriorityUrgent: true,
}

// CreateIssueInput carries the fields accepted on issue creation
type CreateIssueInput struct {
	ElderlyProfileID *uuid.UUID
	CallID           *uuid.UUID
	Title            string
	Description      *string
	Category         domain.IssueCategory
	Priority         domain.IssuePriority
	Source           string
	ConfidenceScore  *float64
}

// Create validates and stores a new issue. New issues always start open.
func (s *Service) Create(ctx context.Context, input *CreateIssueInput) (*domain.Issue, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.MissingFieldError("title")
	}

	if input.Category == "" {
		input.Category = domain.IssueCategoryOther
	}
	if !validCategories[input.Category] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid category %q", input.Category))
	}

	if input.Priority == "" {
		input.Priority = domain.IssuePriorityNormal
	}
	if !validPriorities[input.Priority] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid priority %q", input.Priority))
	}

	if input.Source == "" {
		input.Source = "manual"
	}
	if input.Source != "manual" && input.Source != "call_analysis" {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid source %q", input.Source))
	}

	now := time.Now().UTC()
	issue := &domain.Issue{
		ID:               uuid.New(),
		ElderlyProfileID: input.ElderlyProfileID,
		CallID:           input.CallID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Category:         input.Category,
		Status:           domain.IssueStatusOpen,
		Priority:         input.Priority,
		Source:           input.Source,
		ConfidenceScore:  input.ConfidenceScore,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("issue created",
		zap.String("issue_id", issue.ID.String()),
		zap.String("category", string(issue.Category)),
		zap.String("priority", string(issue.Priority)),
	)

	return issue, nil
}

// Get retrieves an issue by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.IssueNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return issue, nil
}

// List retrieves issues with optional filters, newest first
func (s *Service) List(ctx context.Context, filter *postgres.IssueFilter) ([]*domain.IssueWithDetails, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid status %q", filter.Status))
	}
	if filter.Priority != "" && !validPriorities[filter.Priority] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid priority %q", filter.Priority))
	}

	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return issues, nil
}

// ListOpen retrieves open issues ordered urgent-first for triage
func (s *Service) ListOpen(ctx context.Context, limit int) ([]*domain.IssueWithDetails, error) {
	issues, err := s.issues.ListOpen(ctx, limit)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return issues, nil
}

// Update applies a partial update. Status transitions are free-form; moving
// to resolved or dismissed stamps resolved_at when not supplied.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u *postgres.IssueUpdate) (*domain.Issue, error) {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, apperrors.InvalidInputError("title cannot be empty")
	}
	if u.Category != nil && !validCategories[*u.Category] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid category %q", *u.Category))
	}
	if u.Status != nil && !validStatuses[*u.Status] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid status %q", *u.Status))
	}
	if u.Priority != nil && !validPriorities[*u.Priority] {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("invalid priority %q", *u.Priority))
	}

	if u.Status != nil && u.ResolvedAt == nil {
		if *u.Status == domain.IssueStatusResolved || *u.Status == domain.IssueStatusDismissed {
			now := time.Now().UTC()
			u.ResolvedAt = &now
		}
	}

	issue, err := s.issues.Update(ctx, id, u)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.IssueNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return issue, nil
}

// Delete removes an issue
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.issues.Delete(ctx, id); err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.IssueNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}
	return nil
}
