package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resqall/interfaces"
	"resqall/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// FixCache stores the last known location fix per user so a run whose live
// fix times out can still report a recent position.
type FixCache interface {
	GetLastFix(ctx context.Context, userID string) (*models.LocationFix, error)
	SetLastFix(ctx context.Context, userID string, fix models.LocationFix) error
}

// LocationService acquires a geolocation fix for the evidence bundle. It
// requests a live high-accuracy fix with a bounded timeout and falls back to
// the platform's last known position, then to the cache.
type LocationService struct {
	provider   interfaces.LocationProvider
	cache      FixCache
	fixTimeout time.Duration
}

func NewLocationService(provider interfaces.LocationProvider, cache FixCache, fixTimeout time.Duration) *LocationService {
	if cache == nil {
		cache = NoopFixCache{}
	}
	if fixTimeout <= 0 {
		fixTimeout = 8 * time.Second
	}
	return &LocationService{
		provider:   provider,
		cache:      cache,
		fixTimeout: fixTimeout,
	}
}

// GetFix returns the best available fix, or nil when nothing could be
// acquired. It never returns an error: location is an optional evidence
// field and absence is the failure signal.
func (ls *LocationService) GetFix(ctx context.Context, userID string) *models.LocationFix {
	if ls.provider == nil {
		logrus.Warn("No location provider configured")
		return ls.cachedFix(ctx, userID)
	}

	fixCtx, cancel := context.WithTimeout(ctx, ls.fixTimeout)
	defer cancel()

	fix, err := ls.provider.CurrentPosition(fixCtx)
	if err == nil && fix != nil {
		if cacheErr := ls.cache.SetLastFix(ctx, userID, *fix); cacheErr != nil {
			logrus.Warnf("Failed to cache location fix for user %s: %v", userID, cacheErr)
		}
		return fix
	}
	logrus.Warnf("Live location fix failed for user %s: %v", userID, err)

	fix, err = ls.provider.LastKnownPosition(ctx)
	if err == nil && fix != nil {
		return fix
	}
	if err != nil {
		logrus.Warnf("Last known position unavailable for user %s: %v", userID, err)
	}

	return ls.cachedFix(ctx, userID)
}

func (ls *LocationService) cachedFix(ctx context.Context, userID string) *models.LocationFix {
	fix, err := ls.cache.GetLastFix(ctx, userID)
	if err != nil {
		logrus.Warnf("Location cache lookup failed for user %s: %v", userID, err)
		return nil
	}
	return fix
}

// RedisFixCache keeps the last known fix per user in Redis.
type RedisFixCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisFixCache(client *redis.Client, ttl time.Duration) *RedisFixCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFixCache{
		redis: client,
		ttl:   ttl,
	}
}

func fixCacheKey(userID string) string {
	return fmt.Sprintf("location:lastfix:%s", userID)
}

func (rc *RedisFixCache) GetLastFix(ctx context.Context, userID string) (*models.LocationFix, error) {
	data, err := rc.redis.Get(ctx, fixCacheKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var fix models.LocationFix
	if err := json.Unmarshal([]byte(data), &fix); err != nil {
		return nil, err
	}
	return &fix, nil
}

func (rc *RedisFixCache) SetLastFix(ctx context.Context, userID string, fix models.LocationFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return rc.redis.Set(ctx, fixCacheKey(userID), data, rc.ttl).Err()
}

// NoopFixCache is used when no Redis is configured.
type NoopFixCache struct{}

func (NoopFixCache) GetLastFix(ctx context.Context, userID string) (*models.LocationFix, error) {
	return nil, nil
}

func (NoopFixCache) SetLastFix(ctx context.Context, userID string, fix models.LocationFix) error {
	return nil
}
