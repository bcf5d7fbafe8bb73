package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

const cacheKeyPrefix = "web-analytics:apikey:"

// CachedRegistry puts a Redis read-through cache in front of a KeyRegistry.
// Only found keys are cached, and never past their own expiry. Redis failures
// fall back to the wrapped registry.
type CachedRegistry struct {
	next    store.KeyRegistry
	rdb     *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

// NewCachedRegistry wraps next with a cache of the given TTL.
func NewCachedRegistry(next store.KeyRegistry, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics, logger *logrus.Logger) *CachedRegistry {
	return &CachedRegistry{
		next:    next,
		rdb:     rdb,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// cachedApp is the cached form of an Application. It leaves out the API key:
// the entry is addressed by the key's hash and the caller already holds the
// key, so the secret is never written to Redis.
type cachedApp struct {
	AppID     string    `json:"appId"`
	OwnerID   string    `json:"ownerId"`
	AppName   string    `json:"appName,omitempty"`
	AppURL    string    `json:"appUrl,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toCached(app models.Application) cachedApp {
	return cachedApp{
		AppID:     app.AppID,
		OwnerID:   app.OwnerID,
		AppName:   app.AppName,
		AppURL:    app.AppURL,
		ExpiresAt: app.ExpiresAt,
	}
}

func (c cachedApp) application(apiKey string) models.Application {
	return models.Application{
		AppID:     c.AppID,
		OwnerID:   c.OwnerID,
		AppName:   c.AppName,
		AppURL:    c.AppURL,
		APIKey:    apiKey,
		ExpiresAt: c.ExpiresAt,
	}
}

// cacheKey hashes the API key; neither the Redis key nor the value holds the
// raw secret.
func cacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (r *CachedRegistry) FindByKey(ctx context.Context, apiKey string) (models.Application, error) {
	key := cacheKey(apiKey)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry cachedApp
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil && entry.AppID != "" {
			r.hit()
			return entry.application(apiKey), nil
		}
		r.logger.WithField("cache_key", key).Warn("dropping undecodable api key cache entry")
		_ = r.rdb.Del(ctx, key).Err()
	case errors.Is(err, redis.Nil):
	default:
		r.logger.WithError(err).Warn("api key cache read failed, using registry")
	}
	r.miss()

	app, err := r.next.FindByKey(ctx, apiKey)
	if err != nil {
		return models.Application{}, err
	}

	ttl := r.ttl
	if left := app.ExpiresAt.Sub(r.now()); left < ttl {
		ttl = left
	}
	if ttl > 0 {
		if b, err := json.Marshal(toCached(app)); err == nil {
			if err := r.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
				r.logger.WithError(err).Warn("api key cache write failed")
			}
		}
	}
	return app, nil
}

func (r *CachedRegistry) FindByAppID(ctx context.Context, appID string) (models.Application, error) {
	return r.next.FindByAppID(ctx, appID)
}

// UpsertApplication writes through and evicts both the old and new key.
func (r *CachedRegistry) UpsertApplication(ctx context.Context, app models.Application) error {
	prev, prevErr := r.next.FindByAppID(ctx, app.AppID)
	if err := r.next.UpsertApplication(ctx, app); err != nil {
		return err
	}

	keys := []string{cacheKey(app.APIKey)}
	if prevErr == nil && prev.APIKey != app.APIKey {
		keys = append(keys, cacheKey(prev.APIKey))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.logger.WithError(err).Warn("api key cache eviction failed")
	}
	return nil
}

func (r *CachedRegistry) hit() {
	if r.metrics != nil {
		r.metrics.APIKeyCacheHits.Inc()
	}
}

func (r *CachedRegistry) miss() {
	if r.metrics != nil {
		r.metrics.APIKeyCacheMisses.Inc()
	}
}
