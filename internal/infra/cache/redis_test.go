package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historia-diaria/internal/domain/entity"
)

type fakeRedis struct {
	data    map[string]string
	ttl     map[string]time.Duration
	failGet error
	failSet error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestTodayCache_RoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	c := newWithClient(rdb, "")
	ctx := context.Background()

	got, err := c.Get(ctx, entity.RunModeProduction, "2025-07-20")
	require.NoError(t, err)
	assert.Nil(t, got, "miss")

	f := &entity.HistoricalFact{ID: 1, HistoricalDate: "1969-07-20", PublishDate: "2025-07-20", Title: "Luna", Description: "d", Sources: []string{"NASA"}}
	require.NoError(t, c.Set(ctx, entity.RunModeProduction, "2025-07-20", f, 30*time.Minute))

	key := "historia-diaria:today:production:2025-07-20"
	assert.Contains(t, rdb.data, key)
	assert.Equal(t, 30*time.Minute, rdb.ttl[key])

	got, err = c.Get(ctx, entity.RunModeProduction, "2025-07-20")
	require.NoError(t, err)
	assert.Equal(t, f.Title, got.Title)
	assert.Equal(t, f.Sources, got.Sources)

	// modes never share entries
	got, err = c.Get(ctx, entity.RunModeTest, "2025-07-20")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTodayCache_Errors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = errors.New("connection refused")
	rdb.failSet = errors.New("connection refused")
	c := newWithClient(rdb, "hd")

	_, err := c.Get(context.Background(), entity.RunModeTest, "2025-07-20")
	assert.ErrorContains(t, err, "connection refused")

	err = c.Set(context.Background(), entity.RunModeTest, "2025-07-20", &entity.HistoricalFact{}, time.Minute)
	assert.ErrorContains(t, err, "connection refused")
}

func TestTodayCache_CorruptEntry(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["hd:today:test:2025-07-20"] = "{not json"
	c := newWithClient(rdb, "hd")

	_, err := c.Get(context.Background(), entity.RunModeTest, "2025-07-20")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_KEY_PREFIX", "")

	cfg := LoadConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, defaultPrefix, cfg.Prefix)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
