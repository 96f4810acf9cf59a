package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"rul-dashboard/internal/metrics"
)

// RedisHistory keeps points in one sorted set per subsystem so several
// dashboard instances can share a trend view.
//
// "<prefix>:<subsystem>" orders points by timestamp and is trimmed to
// capacity by rank. "<prefix>:<subsystem>:expiry" holds the same members
// scored by expiry in unix milliseconds; points without expiry are not in it.
type RedisHistory struct {
	client   *redis.Client
	prefix   string
	capacity int64
	metrics  *metrics.Registry
}

// NewRedisHistory also tracks known subsystems in "<prefix>:subsystems".
func NewRedisHistory(client *redis.Client, prefix string, capacity int, reg *metrics.Registry) *RedisHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &RedisHistory{
		client:   client,
		prefix:   prefix,
		capacity: int64(capacity),
		metrics:  reg,
	}
}

func (h *RedisHistory) key(subsystem string) string {
	return fmt.Sprintf("%s:%s", h.prefix, subsystem)
}

func (h *RedisHistory) expiryKey(subsystem string) string {
	return h.key(subsystem) + ":expiry"
}

func (h *RedisHistory) indexKey() string {
	return h.prefix + ":subsystems"
}

// Append adds p and trims the set to capacity in one transaction.
// Members trimmed by capacity linger in the expiry set until they expire;
// removing them there is a no-op on the point set.
func (h *RedisHistory) Append(ctx context.Context, subsystem string, p Point) error {
	member, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode point: %w", err)
	}

	key := h.key(subsystem)
	pipe := h.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(p.Timestamp), Member: member})
	if !p.ExpiresAt.IsZero() {
		pipe.ZAdd(ctx, h.expiryKey(subsystem), &redis.Z{
			Score:  float64(p.ExpiresAt.UnixMilli()),
			Member: member,
		})
	}
	trimmed := pipe.ZRemRangeByRank(ctx, key, 0, -(h.capacity + 1))
	pipe.SAdd(ctx, h.indexKey(), subsystem)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append point to %s: %w", key, err)
	}

	h.metrics.Inc(metrics.HistoryAppendsTotal)
	h.metrics.Add(metrics.HistoryPointsTotal, 1-trimmed.Val())
	return nil
}

// List returns live points oldest first.
func (h *RedisHistory) List(ctx context.Context, subsystem string) ([]Point, error) {
	members, err := h.client.ZRange(ctx, h.key(subsystem), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list %s: %w", h.key(subsystem), err)
	}

	now := time.Now()
	out := make([]Point, 0, len(members))
	for _, m := range members {
		var p Point
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			continue
		}
		if !p.IsExpired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// RemoveExpired drops every member whose expiry score is in the past, from
// both sets of every known subsystem.
func (h *RedisHistory) RemoveExpired(ctx context.Context) (int, error) {
	subsystems, err := h.client.SMembers(ctx, h.indexKey()).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("list subsystems: %w", err)
	}

	// IsExpired treats the expiry instant itself as live.
	maxScore := "(" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	removed := 0
	for _, subsystem := range subsystems {
		expiryKey := h.expiryKey(subsystem)
		expired, err := h.client.ZRangeByScore(ctx, expiryKey, &redis.ZRangeBy{
			Min: "-inf",
			Max: maxScore,
		}).Result()
		if err != nil && err != redis.Nil {
			return removed, fmt.Errorf("scan %s: %w", expiryKey, err)
		}
		if len(expired) == 0 {
			continue
		}

		members := make([]interface{}, len(expired))
		for i, m := range expired {
			members[i] = m
		}

		pipe := h.client.TxPipeline()
		rem := pipe.ZRem(ctx, h.key(subsystem), members...)
		pipe.ZRemRangeByScore(ctx, expiryKey, "-inf", maxScore)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("remove expired from %s: %w", h.key(subsystem), err)
		}
		removed += int(rem.Val())
	}

	if removed > 0 {
		h.metrics.Add(metrics.HistoryPointsTotal, -int64(removed))
	}
	return removed, nil
}
