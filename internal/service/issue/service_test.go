package issue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, issue *domain.Issue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter *postgres.IssueFilter) ([]*domain.IssueWithDetails, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IssueWithDetails), args.Error(1)
}

func (m *MockRepository) ListOpen(ctx context.Context, limit int) ([]*domain.IssueWithDetails, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IssueWithDetails), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uuid.UUID, u *postgres.IssueUpdate) (*domain.Issue, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService() (*Service, *MockRepository) {
	issues := new(MockRepository)
	return NewService(issues), issues
}

func TestCreate_Defaults(t *testing.T) {
	svc, issues := newTestService()

	var created *domain.Issue
	issues.On("Create", mock.Anything, mock.AnythingOfType("*domain.Issue")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Issue)
		}).
		Return(nil)

	issue, err := svc.Create(context.Background(), &CreateIssueInput{Title: "Brak leków"})

	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
	assert.Equal(t, domain.IssueCategoryOther, issue.Category)
	assert.Equal(t, domain.IssuePriorityNormal, issue.Priority)
	assert.Equal(t, "manual", issue.Source)
	assert.Equal(t, created, issue)
}

func TestCreate_MissingTitle(t *testing.T) {
	svc, issues := newTestService()

	issue, err := svc.Create(context.Background(), &CreateIssueInput{Title: "  "})

	assert.Nil(t, issue)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingField, apperrors.GetAppError(err).Code)
	issues.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_InvalidCategory(t *testing.T) {
	svc, _ := newTestService()

	issue, err := svc.Create(context.Background(), &CreateIssueInput{
		Title:    "Brak leków",
		Category: "finance",
	})

	assert.Nil(t, issue)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
}

func TestCreate_FromCallAnalysis(t *testing.T) {
	svc, issues := newTestService()

	callID := uuid.New()
	score := 0.92
	issues.On("Create", mock.Anything, mock.MatchedBy(func(i *domain.Issue) bool {
		return i.Source == "call_analysis" && *i.CallID == callID && *i.ConfidenceScore == score
	})).Return(nil)

	issue, err := svc.Create(context.Background(), &CreateIssueInput{
		Title:           "Wspomniała o zawrotach głowy",
		Category:        domain.IssueCategoryHealth,
		Priority:        domain.IssuePriorityHigh,
		CallID:          &callID,
		Source:          "call_analysis",
		ConfidenceScore: &score,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.IssuePriorityHigh, issue.Priority)
	issues.AssertExpectations(t)
}

func TestGet_NotFound(t *testing.T) {
	svc, issues := newTestService()

	id := uuid.New()
	issues.On("GetByID", mock.Anything, id).Return(nil, postgres.ErrNotFound)

	issue, err := svc.Get(context.Background(), id)

	assert.Nil(t, issue)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeIssueNotFound, apperrors.GetAppError(err).Code)
}

func TestList_InvalidStatusFilter(t *testing.T) {
	svc, issues := newTestService()

	got, err := svc.List(context.Background(), &postgres.IssueFilter{Status: "closed"})

	assert.Nil(t, got)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
	issues.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUpdate_ResolveStampsResolvedAt(t *testing.T) {
	svc, issues := newTestService()

	id := uuid.New()
	resolved := domain.IssueStatusResolved

	issues.On("Update", mock.Anything, id, mock.MatchedBy(func(u *postgres.IssueUpdate) bool {
		return u.Status != nil && *u.Status == resolved && u.ResolvedAt != nil
	})).Return(&domain.Issue{ID: id, Status: resolved}, nil)

	issue, err := svc.Update(context.Background(), id, &postgres.IssueUpdate{Status: &resolved})

	require.NoError(t, err)
	assert.Equal(t, resolved, issue.Status)
	issues.AssertExpectations(t)
}

func TestUpdate_ReopenDoesNotStamp(t *testing.T) {
	svc, issues := newTestService()

	id := uuid.New()
	open := domain.IssueStatusOpen

	issues.On("Update", mock.Anything, id, mock.MatchedBy(func(u *postgres.IssueUpdate) bool {
		return u.Status != nil && *u.Status == open && u.ResolvedAt == nil
	})).Return(&domain.Issue{ID: id, Status: open}, nil)

	_, err := svc.Update(context.Background(), id, &postgres.IssueUpdate{Status: &open})

	require.NoError(t, err)
	issues.AssertExpectations(t)
}

func TestUpdate_InvalidStatus(t *testing.T) {
	svc, issues := newTestService()

	bad := domain.IssueStatus("archived")
	_, err := svc.Update(context.Background(), uuid.New(), &postgres.IssueUpdate{Status: &bad})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
	issues.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_NotFound(t *testing.T) {
	svc, issues := newTestService()

	id := uuid.New()
	issues.On("Delete", mock.Anything, id).Return(postgres.ErrNotFound)

	err := svc.Delete(context.Background(), id)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeIssueNotFound, apperrors.GetAppError(err).Code)
}
