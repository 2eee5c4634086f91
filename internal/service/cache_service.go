package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sis-admin/pkg/errors"
)

// CacheRepository abstracts persistence for cached list collections.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the list collection cache. A nil or disabled service
// misses every lookup and ignores writes, so callers never branch on it.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service; entries live for ttl.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

func (s *CacheService) active() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Lookup decodes the entry stored under key into dest and reports a hit.
// Backend failures count as misses.
func (s *CacheService) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.active() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("list cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Store writes value under key.
func (s *CacheService) Store(ctx context.Context, key string, value interface{}) {
	if !s.active() {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("list cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every entry of the given collection prefixes.
func (s *CacheService) Invalidate(ctx context.Context, prefixes ...string) {
	if !s.active() {
		return
	}
	for _, prefix := range prefixes {
		if err := s.repo.DeleteByPattern(ctx, prefix+":*"); err != nil {
			s.logger.Warn("list cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
