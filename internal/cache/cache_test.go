package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl, zerolog.Nop()), mr
}

func TestCache_MedicinesRoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Medicines(ctx, "alice")
	assert.False(t, ok)

	meds := []models.Medicine{{
		ID:          "m1",
		UserID:      "alice",
		Name:        "Aspirin",
		ExpiryDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Quantity:    3,
		Unit:        models.UnitTablets,
		Status:      models.StatusActive,
		DosageTimes: []string{},
	}}
	c.SetMedicines(ctx, "alice", meds)

	got, ok := c.Medicines(ctx, "alice")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-05-01", got[0].Expiry())
	assert.Equal(t, "Aspirin", got[0].Name)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Medicines(ctx, "alice")
	assert.False(t, ok, "entry expires after the TTL")
}

func TestCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.SetMedicines(ctx, "alice", []models.Medicine{})
	c.SetSettings(ctx, models.DefaultUserSettings("alice"))
	c.SetSettings(ctx, models.DefaultUserSettings("bob"))

	c.Invalidate(ctx, "alice")

	assert.False(t, mr.Exists(medicinesKey("alice")))
	assert.False(t, mr.Exists(settingsKey("alice")))

	s, ok := c.Settings(ctx, "bob")
	require.True(t, ok)
	assert.Equal(t, models.DefaultReminderThreshold, s.ReminderThreshold)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()

	var nilCache *Cache
	nilCache.SetMedicines(ctx, "alice", nil)
	_, ok := nilCache.Medicines(ctx, "alice")
	assert.False(t, ok)
	nilCache.Invalidate(ctx, "alice")

	c, mr := newTestCache(t, 0)
	c.SetSettings(ctx, models.DefaultUserSettings("alice"))
	assert.Empty(t, mr.Keys())
}

func TestCache_RedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client, time.Minute, zerolog.Nop())

	ctx := context.Background()
	c.SetMedicines(ctx, "alice", []models.Medicine{})
	_, ok := c.Medicines(ctx, "alice")
	assert.False(t, ok)
}
