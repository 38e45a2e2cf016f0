package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medstock/internal/models"
)

// Cache is an optional Redis read-through layer for per-user reads.
// A nil *Cache or a zero TTL turns every call into a miss.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

func medicinesKey(userID string) string { return fmt.Sprintf("medicines:%s", userID) }
func settingsKey(userID string) string  { return fmt.Sprintf("settings:%s", userID) }

func (c *Cache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Medicines returns the cached medicine list of a user.
func (c *Cache) Medicines(ctx context.Context, userID string) ([]models.Medicine, bool) {
	var meds []models.Medicine
	if !c.read(ctx, medicinesKey(userID), &meds) {
		return nil, false
	}
	return meds, true
}

func (c *Cache) SetMedicines(ctx context.Context, userID string, meds []models.Medicine) {
	c.write(ctx, medicinesKey(userID), meds)
}

// Settings returns the cached reminder settings of a user.
func (c *Cache) Settings(ctx context.Context, userID string) (*models.UserSettings, bool) {
	var s models.UserSettings
	if !c.read(ctx, settingsKey(userID), &s) {
		return nil, false
	}
	return &s, true
}

func (c *Cache) SetSettings(ctx context.Context, s *models.UserSettings) {
	c.write(ctx, settingsKey(s.UserID), s)
}

// Invalidate drops everything cached for userID.
func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Del(ctx, medicinesKey(userID), settingsKey(userID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate cache")
	}
}

func (c *Cache) read(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Cache) write(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
