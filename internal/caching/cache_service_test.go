package caching

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"schoolhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheService(client), mr
}

func TestSchoolCache(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	got, err := cache.GetSchool(ctx, "alpha")
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil without error")

	school := &models.School{ID: uuid.New(), Name: "Alpha High", Subdomain: "alpha", Status: "active"}
	require.NoError(t, cache.SetSchool(ctx, school, time.Minute))

	got, err = cache.GetSchool(ctx, "ALPHA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, school.ID, got.ID)

	mr.FastForward(2 * time.Minute)
	got, err = cache.GetSchool(ctx, "alpha")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFeeAnalyticsCache(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	schoolID := uuid.New()

	payload := json.RawMessage(`{"collection_rate":0.5}`)
	require.NoError(t, cache.SetFeeAnalytics(ctx, schoolID, payload, time.Hour))

	got, err := cache.GetFeeAnalytics(ctx, schoolID)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	other, err := cache.GetFeeAnalytics(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, cache.InvalidateFeeAnalytics(ctx, schoolID))
	got, err = cache.GetFeeAnalytics(ctx, schoolID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIsRateLimited(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limited, err := cache.IsRateLimited(ctx, "ai:school-1", 3, time.Hour)
		require.NoError(t, err)
		assert.False(t, limited, "hit %d", i+1)
	}
	limited, err := cache.IsRateLimited(ctx, "ai:school-1", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, limited)

	limited, err = cache.IsRateLimited(ctx, "ai:school-2", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, limited, "limits are per key")

	mr.FastForward(time.Hour + time.Second)
	limited, err = cache.IsRateLimited(ctx, "ai:school-1", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, limited, "window resets")
}

func TestRateLimitCounterAlwaysExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	// A counter stranded without a TTL must not block the key forever.
	require.NoError(t, mr.Set("schoolhub:ratelimit:ai:school-2", "7"))
	limited, err := cache.IsRateLimited(ctx, "ai:school-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, limited)
	assert.Equal(t, time.Minute, mr.TTL("schoolhub:ratelimit:ai:school-2"))

	mr.FastForward(time.Minute + time.Second)
	limited, err = cache.IsRateLimited(ctx, "ai:school-2", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, limited)

	// Later hits keep the window of the first one.
	mr.FastForward(30 * time.Second)
	_, err = cache.IsRateLimited(ctx, "ai:school-2", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("schoolhub:ratelimit:ai:school-2"))
}
