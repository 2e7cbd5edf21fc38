package baselinecache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/history"
	"insights/internal/timeframe"
)

func march(t *testing.T) *timeframe.Period {
	t.Helper()
	p, err := timeframe.NewPeriod(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return p
}

func TestKey(t *testing.T) {
	p := march(t)

	tests := []struct {
		name   string
		owner  string
		period *timeframe.Period
		suffix string
	}{
		{name: "complete period", owner: "user-1", period: p, suffix: "2024-03-01T00:00:00Z|2024-03-31T00:00:00Z"},
		{name: "open period", owner: "user-1", period: &timeframe.Period{}, suffix: "open|open"},
		{name: "nil period", owner: "user-1", period: nil, suffix: "open|open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Key(tt.owner, tt.period)
			assert.True(t, strings.HasPrefix(key, keyPrefix))
			assert.True(t, strings.HasSuffix(key, tt.suffix), key)
			assert.True(t, strings.HasPrefix(key, ownerPrefix(tt.owner)))
		})
	}

	assert.NotEqual(t, Key("user-1", p), Key("user-2", p))
	assert.NotContains(t, ownerPrefix("a*b?[c]"), "*")
}

func TestNew(t *testing.T) {
	t.Run("disabled returns noop", func(t *testing.T) {
		c, err := New(Config{Enabled: false})
		require.NoError(t, err)
		assert.IsType(t, &noopCache{}, c)
	})

	t.Run("enabled without url", func(t *testing.T) {
		_, err := New(Config{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("enabled with invalid url", func(t *testing.T) {
		_, err := New(Config{Enabled: true, RedisURL: "not-a-redis-url"})
		assert.Error(t, err)
	})
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	require.NoError(t, c.Set(ctx, "user-1", march(t), &history.Metrics{Revenue: 10}))
	baseline, hit, err := c.Get(ctx, "user-1", march(t))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, baseline)
	assert.NoError(t, c.InvalidateOwner(ctx, "user-1"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedis(client, 0)
	defer c.Close()

	ctx := context.Background()
	baseline, hit, err := c.Get(ctx, "user-1", march(t))
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Nil(t, baseline)

	assert.Error(t, c.Ping(ctx))
	assert.NoError(t, c.Set(ctx, "user-1", march(t), nil), "nil baselines are not written")
	assert.Error(t, c.Set(ctx, "user-1", march(t), &history.Metrics{Revenue: 1}))
}
