package redisad

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"openstays_catalog/internal/domain"
)

// decrementScript refunds one request without creating the key or going
// below zero.
var decrementScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and tonumber(v) > 0 then
  return redis.call('DECR', KEYS[1])
end
return 0
`)

// Counters keeps fixed-window request counters. All processes sharing the
// Redis instance see the same counts.
type Counters struct{ c *redis.Client }

func NewCounters(c *redis.Client) *Counters { return &Counters{c: c} }

// Increment runs INCR, PEXPIRE, PTTL and GET override in one MULTI so the
// check costs a single round trip.
func (r *Counters) Increment(ctx context.Context, key string, window time.Duration, overrideKey string) (domain.CounterState, error) {
	var (
		incr     *redis.IntCmd
		ttl      *redis.DurationCmd
		override *redis.StringCmd
	)
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.PExpire(ctx, key, window)
		ttl = p.PTTL(ctx, key)
		override = p.Get(ctx, overrideKey)
		return nil
	})
	// a missing override key surfaces as redis.Nil from Exec
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.CounterState{}, err
	}

	st := domain.CounterState{Count: incr.Val(), TTL: ttl.Val()}
	if v, err := override.Result(); err == nil {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return domain.CounterState{}, fmt.Errorf("override %s: %w", overrideKey, perr)
		}
		st.Override = n
	} else if !errors.Is(err, redis.Nil) {
		return domain.CounterState{}, err
	}
	return st, nil
}

func (r *Counters) Decrement(ctx context.Context, key string) error {
	return decrementScript.Run(ctx, r.c, []string{key}).Err()
}

func (r *Counters) Reset(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// SetOverride stores a per-identity limit; zero removes it.
func (r *Counters) SetOverride(ctx context.Context, overrideKey string, limit int64) error {
	if limit <= 0 {
		return r.c.Del(ctx, overrideKey).Err()
	}
	return r.c.Set(ctx, overrideKey, limit, 0).Err()
}
