package services

import (
	"context"
	"time"

	"sacco/internal/cache"
	"sacco/internal/core"
	applog "sacco/internal/log"
)

// StatisticsProvider computes dashboard statistics.
type StatisticsProvider interface {
	Statistics(ctx context.Context) (core.ContributionStatistics, error)
}

// StatisticsService serves statistics from a short-lived cache keyed by
// calendar month. Degraded results are never cached.
type StatisticsService struct {
	provider StatisticsProvider
	cache    cache.Cache[core.ContributionStatistics]
	now      func() time.Time
	logger   *applog.Logger
}

// NewStatisticsService wraps provider. A nil cache disables caching.
func NewStatisticsService(provider StatisticsProvider, c cache.Cache[core.ContributionStatistics], logger *applog.Logger) *StatisticsService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &StatisticsService{
		provider: provider,
		cache:    c,
		now:      time.Now,
		logger:   logger.WithComponent(applog.ComponentCache),
	}
}

func (s *StatisticsService) key() string {
	return s.now().Format("2006-01")
}

// Statistics returns the cached snapshot for the current month or computes
// a fresh one.
func (s *StatisticsService) Statistics(ctx context.Context) (core.ContributionStatistics, error) {
	key := s.key()
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Statistics cache hit", "key", key)
			return stats, nil
		}
	}

	stats, err := s.provider.Statistics(ctx)
	if err != nil {
		return core.ContributionStatistics{}, err
	}
	if s.cache != nil && !stats.Degraded {
		s.cache.Set(key, stats)
	}
	return stats, nil
}

// Invalidate drops every cached snapshot. Writers call it after recording
// contributions.
func (s *StatisticsService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
