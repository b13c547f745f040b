package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trial-registry-api/internal/models"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
)

const trialCachePrefix = "trials:id:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TrialCache is a read-through cache of single trials. Failures are logged and
// treated as misses so the database stays the source of truth.
type TrialCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewTrialCache constructs the cache; it is inert unless enabled and repo is set.
func NewTrialCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *TrialCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *TrialCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Get returns the cached trial, or false on a miss.
func (c *TrialCache) Get(ctx context.Context, id string) (*models.Trial, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var trial models.Trial
	err := c.repo.Get(ctx, trialCachePrefix+id, &trial)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("trial cache get failed", zap.String("trial_id", id), zap.Error(err))
		}
		return nil, false
	}
	return &trial, true
}

// Store caches trial under its id.
func (c *TrialCache) Store(ctx context.Context, trial *models.Trial) {
	if !c.Enabled() || trial == nil {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, trialCachePrefix+trial.TrialID, trial, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("trial cache set failed", zap.String("trial_id", trial.TrialID), zap.Error(err))
		c.Evict(ctx, trial.TrialID)
	}
}

// Evict drops the cached copy of a trial.
func (c *TrialCache) Evict(ctx context.Context, id string) {
	if !c.Enabled() {
		return
	}
	if err := c.repo.Delete(ctx, trialCachePrefix+id); err != nil {
		c.logger.Warn("trial cache evict failed", zap.String("trial_id", id), zap.Error(err))
	}
}
