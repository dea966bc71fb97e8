package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
	"carecall-backend/pkg/metrics"
)

const statsTTL = 30 * time.Second

// ProfileCounter provides the active profile count
type ProfileCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// CallCounter provides call volume counters
type CallCounter interface {
	CountInitiatedSince(ctx context.Context, since time.Time) (int64, error)
}

// IssueCounter provides issue counters
type IssueCounter interface {
	CountByStatus(ctx context.Context, status domain.IssueStatus) (int64, error)
	CountOpenUrgent(ctx context.Context) (int64, error)
}

// StatsCache caches the assembled counters between requests
type StatsCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, error)
	Set(ctx context.Context, stats *domain.DashboardStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Service assembles the dashboard counters, caching them briefly so the
// dashboard's polling does not hammer the database
type Service struct {
	profiles ProfileCounter
	calls    CallCounter
	issues   IssueCounter
	cache    StatsCache
	metrics  *metrics.Metrics
}

// NewService creates a new dashboard service. cache and metrics may be nil.
func NewService(profiles ProfileCounter, calls CallCounter, issues IssueCounter, cache StatsCache, m *metrics.Metrics) *Service {
	return &Service{
		profiles: profiles,
		calls:    calls,
		issues:   issues,
		cache:    cache,
		metrics:  m,
	}
}

// GetStats returns the dashboard counters, from cache when fresh. Cache
// failures degrade to a direct database read.
func (s *Service) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			logger.Warn("stats cache read failed, falling back to database", zap.Error(err))
		} else if cached != nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			return cached, nil
		} else if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats, statsTTL); err != nil {
			logger.Warn("stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

func (s *Service) computeStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	activeProfiles, err := s.profiles.CountActive(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	callsToday, err := s.calls.CountInitiatedSince(ctx, startOfDay)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	openIssues, err := s.issues.CountByStatus(ctx, domain.IssueStatusOpen)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	urgentIssues, err := s.issues.CountOpenUrgent(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &domain.DashboardStats{
		ActiveProfiles: activeProfiles,
		CallsToday:     callsToday,
		OpenIssues:     openIssues,
		UrgentIssues:   urgentIssues,
		GeneratedAt:    now,
	}, nil
}

// InvalidateStats drops the cached counters, forcing the next read to
// recompute. Called after writes that change the counts.
func (s *Service) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
