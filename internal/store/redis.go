package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/utils"
)

const historyKey = "glyco:history"

// RedisHistory keeps the bounded history in a Redis list, newest at the
// head. LPUSH plus LTRIM keeps the depth fixed without a separate cleanup
// job; the whole key expires after the configured TTL of inactivity.
type RedisHistory struct {
	client *redis.Client
	max    int64
	ttl    time.Duration
}

// RedisConfig holds connection parameters for the history store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Max      int
	TTL      time.Duration
}

// NewRedisHistory connects and pings the server to fail fast on bad
// credentials or connectivity.
func NewRedisHistory(ctx context.Context, cfg RedisConfig) (*RedisHistory, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Max <= 0 {
		cfg.Max = 50
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, utils.NewAppError("store.redis", "ping failed", err)
	}
	return &RedisHistory{client: client, max: int64(cfg.Max), ttl: cfg.TTL}, nil
}

// Append pushes the entry to the head and trims the list to depth.
func (r *RedisHistory) Append(ctx context.Context, entry models.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, r.max-1)
	if r.ttl > 0 {
		pipe.Expire(ctx, historyKey, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewAppError("store.redis", "append history", err)
	}
	return nil
}

// Recent reads up to limit entries from the head. Undecodable entries are
// skipped rather than failing the whole read.
func (r *RedisHistory) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = r.max - 1
	}
	raw, err := r.client.LRange(ctx, historyKey, 0, stop).Result()
	if err != nil {
		return nil, utils.NewAppError("store.redis", "read history", err)
	}
	if len(raw) == 0 {
		return nil, ErrHistoryEmpty
	}
	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close releases the underlying client.
func (r *RedisHistory) Close() error { return r.client.Close() }
