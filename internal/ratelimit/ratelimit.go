package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "lending:rate_limit"

// Fixed window counter. The first hit of a window sets its expiry.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter int
}

// Limiter counts requests per scope and subject in Redis.
// A nil Limiter, or one without a client, allows everything.
type Limiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func New(client redis.UniversalClient, prefix string, limit int, window time.Duration) *Limiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = defaultPrefix
	}
	return &Limiter{
		client: client,
		prefix: trimmed,
		limit:  limit,
		window: window,
	}
}

// Enabled reports whether Allow can ever reject.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.limit > 0 && l.window > 0
}

func (l *Limiter) key(scope, subject string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
}

// Allow consumes one request for subject within scope.
func (l *Limiter) Allow(ctx context.Context, scope, subject string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return Decision{Allowed: true}, nil
	}

	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.key(scope, subject)}, windowMs).Result()
	if err != nil {
		return Decision{}, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}

	return decide(int(count), ttlMs, windowMs, l.limit), nil
}

func decide(count int, ttlMs, windowMs int64, limit int) Decision {
	if ttlMs < 0 {
		ttlMs = windowMs
	}
	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return Decision{
		Allowed:    count <= limit,
		Count:      count,
		RetryAfter: retryAfter,
	}
}
