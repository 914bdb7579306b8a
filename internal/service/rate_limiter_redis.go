package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// redisRateLimiter comparte la ventana entre replicas. Ante errores de Redis deja pasar.
type redisRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisRateLimiter(client *redis.Client, prefix string, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if prefix == "" {
		prefix = "rl:"
	}
	return &redisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: prefix,
	}
}

func (l *redisRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

// NewRateLimiter usa Redis cuando hay cliente y cae a memoria si no.
func NewRateLimiter(client *redis.Client, prefix string, window time.Duration, max int) RateLimiter {
	if client != nil {
		return NewRedisRateLimiter(client, prefix, window, max)
	}
	return NewMemoryRateLimiter(window, max)
}
