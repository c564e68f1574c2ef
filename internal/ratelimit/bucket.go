package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "pixelflow-edge:budget"

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Cost       int64
	Remaining  int64
	RetryAfter time.Duration
}

type Config struct {
	// Capacity is the number of tokens a subject may spend per Window.
	Capacity int
	Window   time.Duration
	Prefix   string
}

// Bucket meters transformation work per subject in Redis. Requests spend a
// cost in tokens rather than a flat one, so a large avif resize drains the
// budget faster than a native passthrough.
type Bucket struct {
	client      redis.UniversalClient
	capacity    int64
	refillPerMS float64
	ttl         time.Duration
	prefix      string
	now         func() time.Time
}

// takeScript refills the bucket for the elapsed time and spends ARGV[4]
// tokens when enough are available. Refill and spend are atomic.
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "level", "updated")
local level = tonumber(state[1]) or capacity
local updated = tonumber(state[2]) or now
level = math.min(capacity, level + math.max(0, now - updated) * rate)

local granted = 0
local wait = 0
if level >= cost then
  level = level - cost
  granted = 1
else
  wait = math.ceil((cost - level) / rate)
end

redis.call("HSET", KEYS[1], "level", level, "updated", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {granted, math.floor(level), wait}
`)

func NewBucket(client redis.UniversalClient, cfg Config) (*Bucket, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Capacity <= 0 {
		return nil, errors.New("capacity must be positive")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("window must be positive")
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Bucket{
		client:      client,
		capacity:    int64(cfg.Capacity),
		refillPerMS: float64(cfg.Capacity) / float64(max(1, cfg.Window.Milliseconds())),
		ttl:         2 * cfg.Window,
		prefix:      prefix,
		now:         time.Now,
	}, nil
}

// Take spends cost tokens from the subject's bucket. Costs are clamped to
// [1, capacity] so an expensive request can always eventually pass.
func (b *Bucket) Take(ctx context.Context, subject string, cost int64) (Decision, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	cost = b.clampCost(cost)

	raw, err := takeScript.Run(ctx, b.client, []string{b.prefix + ":" + subject},
		b.capacity,
		b.refillPerMS,
		b.now().UTC().UnixMilli(),
		cost,
		b.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run budget script: %w", err)
	}

	decision, err := parseReply(raw)
	if err != nil {
		return Decision{}, err
	}
	decision.Cost = cost
	return decision, nil
}

func (b *Bucket) clampCost(cost int64) int64 {
	if cost < 1 {
		return 1
	}
	if cost > b.capacity {
		return b.capacity
	}
	return cost
}

func parseReply(raw any) (Decision, error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected budget reply %v", raw)
	}

	var fields [3]int64
	for i, v := range values {
		n, err := toInt64(v)
		if err != nil {
			return Decision{}, fmt.Errorf("parse budget reply field %d: %w", i, err)
		}
		fields[i] = n
	}

	return Decision{
		Allowed:    fields[0] == 1,
		Remaining:  fields[1],
		RetryAfter: time.Duration(fields[2]) * time.Millisecond,
	}, nil
}

func toInt64(in any) (int64, error) {
	switch v := in.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", in)
	}
}
