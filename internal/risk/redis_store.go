package risk

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arbengine/arbengine/internal/domain"
)

// incrementIfWithinCapScript atomically checks and increments a
// counter in one round trip, avoiding the read-then-write race a
// plain GET+SET would have under concurrent executors.
var incrementIfWithinCapScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local next = current + amount
if cap >= 0 and next > cap then
  return {current, 0}
end
redis.call("SET", KEYS[1], next)
return {next, 1}
`)

// redisStore is a Store backed by Redis counters, one key per venue
// plus one key for the active-pairs count, shared across every
// executor instance in a deployment.
type redisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore builds a Store backed by the given Redis client. Every
// key is namespaced under keyPrefix so multiple environments can share
// a Redis instance.
func NewRedisStore(client *redis.Client, keyPrefix string) Store {
	return &redisStore{client: client, keyPrefix: keyPrefix}
}

func (s *redisStore) venueKey(venue domain.Venue) string {
	return fmt.Sprintf("%s:exposure:%s", s.keyPrefix, venue)
}

func (s *redisStore) activePairsKey() string {
	return s.keyPrefix + ":active_pairs"
}

func (s *redisStore) IncrementIfWithinCap(ctx context.Context, venue domain.Venue, amountUSD, capUSD float64) (float64, bool, error) {
	res, err := incrementIfWithinCapScript.Run(ctx, s.client, []string{s.venueKey(venue)}, amountUSD, capUSD).Result()
	if err != nil {
		return 0, false, fmt.Errorf("risk cap script: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, false, fmt.Errorf("risk cap script: unexpected result shape %v", res)
	}
	total, err := toFloat(vals[0])
	if err != nil {
		return 0, false, err
	}
	approved, err := toFloat(vals[1])
	if err != nil {
		return 0, false, err
	}
	return total, approved == 1, nil
}

func (s *redisStore) CurrentExposure(ctx context.Context, venue domain.Venue) (float64, error) {
	val, err := s.client.Get(ctx, s.venueKey(venue)).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (s *redisStore) ActivePairCount(ctx context.Context) (int, error) {
	val, err := s.client.Get(ctx, s.activePairsKey()).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (s *redisStore) IncrementActivePairs(ctx context.Context, delta int) (int, error) {
	val, err := s.client.IncrBy(ctx, s.activePairsKey(), int64(delta)).Result()
	return int(val), err
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
