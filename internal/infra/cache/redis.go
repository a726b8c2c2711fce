// Package cache keeps today's fact in Redis so page views do not hit the
// database. Any Redis failure is reported to the caller, which falls back to
// the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"historia-diaria/internal/domain/entity"
	envcfg "historia-diaria/pkg/config"
)

const defaultPrefix = "historia-diaria"

var cacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fact_cache_requests_total",
		Help: "Today-fact cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheRequests)
}

// client is the part of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// LoadConfig reads REDIS_ADDR, REDIS_PASSWORD, REDIS_DB and REDIS_KEY_PREFIX.
// An empty Addr means the cache is disabled.
func LoadConfig() Config {
	return Config{
		Addr:     envcfg.GetEnvString("REDIS_ADDR", ""),
		Password: envcfg.GetEnvString("REDIS_PASSWORD", ""),
		DB:       envcfg.GetEnvInt("REDIS_DB", 0),
		Prefix:   envcfg.GetEnvString("REDIS_KEY_PREFIX", defaultPrefix),
	}
}

// TodayCache stores facts as JSON under <prefix>:today:<mode>:<date>.
type TodayCache struct {
	client client
	prefix string
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*TodayCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	slog.Info("today cache enabled", slog.String("addr", cfg.Addr), slog.Int("db", cfg.DB))
	return newWithClient(rdb, cfg.Prefix), nil
}

func newWithClient(c client, prefix string) *TodayCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &TodayCache{client: c, prefix: prefix}
}

func (c *TodayCache) key(mode entity.RunMode, date string) string {
	return fmt.Sprintf("%s:today:%s:%s", c.prefix, mode, date)
}

// Get returns the cached fact, or nil when there is none.
func (c *TodayCache) Get(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error) {
	data, err := c.client.Get(ctx, c.key(mode, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheRequests.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		cacheRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var f entity.HistoricalFact
	if err := json.Unmarshal(data, &f); err != nil {
		cacheRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode cached fact: %w", err)
	}
	cacheRequests.WithLabelValues("hit").Inc()
	return &f, nil
}

// Set stores fact for ttl.
func (c *TodayCache) Set(ctx context.Context, mode entity.RunMode, date string, fact *entity.HistoricalFact, ttl time.Duration) error {
	data, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("encode fact: %w", err)
	}
	if err := c.client.Set(ctx, c.key(mode, date), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *TodayCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *TodayCache) Close() error {
	return c.client.Close()
}
