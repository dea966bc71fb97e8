package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carecall-backend/internal/domain"
)

// MockProfileCounter is a mock implementation of ProfileCounter
type MockProfileCounter struct {
	mock.Mock
}

func (m *MockProfileCounter) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCallCounter is a mock implementation of CallCounter
type MockCallCounter struct {
	mock.Mock
}

func (m *MockCallCounter) CountInitiatedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockIssueCounter is a mock implementation of IssueCounter
type MockIssueCounter struct {
	mock.Mock
}

func (m *MockIssueCounter) CountByStatus(ctx context.Context, status domain.IssueStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIssueCounter) CountOpenUrgent(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockStatsCache is a mock implementation of StatsCache
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

func (m *MockStatsCache) Set(ctx context.Context, stats *domain.DashboardStats, ttl time.Duration) error {
	args := m.Called(ctx, stats, ttl)
	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newCounters() (*MockProfileCounter, *MockCallCounter, *MockIssueCounter) {
	profiles := new(MockProfileCounter)
	calls := new(MockCallCounter)
	issues := new(MockIssueCounter)

	profiles.On("CountActive", mock.Anything).Return(int64(12), nil)
	calls.On("CountInitiatedSince", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(5), nil)
	issues.On("CountByStatus", mock.Anything, domain.IssueStatusOpen).Return(int64(3), nil)
	issues.On("CountOpenUrgent", mock.Anything).Return(int64(1), nil)

	return profiles, calls, issues
}

func TestGetStats_CacheMiss(t *testing.T) {
	profiles, calls, issues := newCounters()
	cache := new(MockStatsCache)

	cache.On("Get", mock.Anything).Return(nil, nil)
	cache.On("Set", mock.Anything, mock.AnythingOfType("*domain.DashboardStats"), statsTTL).Return(nil)

	svc := NewService(profiles, calls, issues, cache, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.ActiveProfiles)
	assert.Equal(t, int64(5), stats.CallsToday)
	assert.Equal(t, int64(3), stats.OpenIssues)
	assert.Equal(t, int64(1), stats.UrgentIssues)
	cache.AssertExpectations(t)
}

func TestGetStats_CacheHit(t *testing.T) {
	profiles, calls, issues := newCounters()
	cache := new(MockStatsCache)

	cached := &domain.DashboardStats{ActiveProfiles: 7, GeneratedAt: time.Now().UTC()}
	cache.On("Get", mock.Anything).Return(cached, nil)

	svc := NewService(profiles, calls, issues, cache, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, cached, stats)
	profiles.AssertNotCalled(t, "CountActive", mock.Anything)
}

func TestGetStats_CacheFailureFallsBack(t *testing.T) {
	profiles, calls, issues := newCounters()
	cache := new(MockStatsCache)

	cache.On("Get", mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc := NewService(profiles, calls, issues, cache, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.ActiveProfiles)
}

func TestGetStats_NoCache(t *testing.T) {
	profiles, calls, issues := newCounters()

	svc := NewService(profiles, calls, issues, nil, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.ActiveProfiles)
}

func TestInvalidateStats(t *testing.T) {
	profiles, calls, issues := newCounters()
	cache := new(MockStatsCache)
	cache.On("Invalidate", mock.Anything).Return(nil)

	svc := NewService(profiles, calls, issues, cache, nil)
	svc.InvalidateStats(context.Background())

	cache.AssertExpectations(t)
}
