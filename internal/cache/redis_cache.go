package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
)

const keyPrefix = "score:"

// RedisConfig configures the Redis-backed score cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DefaultRedisConfig returns the default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:  "localhost:6379",
		PoolSize: 10,
	}
}

// RedisCache stores scores in Redis with graceful degradation. When Redis
// is unreachable it falls back to the in-process cache so scans keep
// working; a failure counter marks the client unhealthy after repeated
// errors and a background retry restores it.
type RedisCache struct {
	client   *redis.Client
	fallback *MemoryCache
	ttl      time.Duration
	logger   *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
	opTimeout     time.Duration
}

// NewRedisCache connects to Redis. A failed initial connection is not an
// error; the cache starts degraded and recovers when Redis comes back.
func NewRedisCache(cfg RedisConfig, ttl time.Duration, logger *logging.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	rc := &RedisCache{
		client:        client,
		fallback:      NewMemoryCache(ttl),
		ttl:           ttl,
		logger:        logger.WithComponent("cache"),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
		opTimeout:     3 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		rc.logger.Warn("redis unavailable, score cache degraded to memory", "error", err)
		return rc
	}

	rc.healthy = true
	rc.lastCheck = time.Now()
	rc.logger.Info("redis score cache connected", "address", cfg.Address)
	return rc
}

// IsHealthy reports whether Redis is currently usable
func (rc *RedisCache) IsHealthy() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.healthy
}

func (rc *RedisCache) recordFailure() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.failureCount++
	if rc.failureCount >= rc.maxFailures && rc.healthy {
		rc.logger.Warn("redis marked unhealthy", "failures", rc.failureCount)
		rc.healthy = false
	}
}

func (rc *RedisCache) recordSuccess() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.healthy {
		rc.logger.Info("redis recovered")
	}
	rc.healthy = true
	rc.failureCount = 0
	rc.lastCheck = time.Now()
}

// checkHealth pings Redis when the client is unhealthy and enough time
// has passed since the last attempt.
func (rc *RedisCache) checkHealth() {
	rc.mu.RLock()
	shouldCheck := !rc.healthy && time.Since(rc.lastCheck) >= rc.checkInterval
	rc.mu.RUnlock()
	if !shouldCheck {
		return
	}

	rc.mu.Lock()
	rc.lastCheck = time.Now()
	rc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()
	if err := rc.client.Ping(ctx).Err(); err == nil {
		rc.recordSuccess()
	}
}

// Get returns the cached score, consulting the memory fallback when
// Redis is down.
func (rc *RedisCache) Get(key string) *signal.Score {
	rc.checkHealth()
	if !rc.IsHealthy() {
		return rc.fallback.Get(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()

	data, err := rc.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		rc.recordSuccess()
		return nil
	}
	if err != nil {
		rc.recordFailure()
		return rc.fallback.Get(key)
	}
	rc.recordSuccess()

	var score signal.Score
	if err := json.Unmarshal(data, &score); err != nil {
		rc.logger.Warn("corrupt score cache entry", "key", key, "error", err)
		return nil
	}
	return &score
}

// Put stores the score in Redis and in the memory fallback
func (rc *RedisCache) Put(key string, score *signal.Score) {
	rc.fallback.Put(key, score)
	if !rc.IsHealthy() {
		return
	}

	data, err := json.Marshal(score)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()
	if err := rc.client.Set(ctx, keyPrefix+key, data, rc.ttl).Err(); err != nil {
		rc.recordFailure()
		return
	}
	rc.recordSuccess()
}

// EvictExpired trims the memory fallback; Redis expires keys itself
func (rc *RedisCache) EvictExpired() {
	rc.fallback.EvictExpired()
}

// Close releases the Redis client
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
