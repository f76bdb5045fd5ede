package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

// takeToken refills the bucket at KEYS[1] by whole intervals and takes one
// token.  ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_ms.
// Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now      = tonumber(ARGV[1])
local cap      = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last   = tonumber(redis.call('HGET', KEYS[1], 'last_ms'))
if tokens == nil or last == nil then
  tokens = cap
  last = now
end

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
  tokens = math.min(cap, tokens + steps * refill)
  last = last + steps * interval
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.max(0, interval - (now - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_ms', last)
redis.call('PEXPIRE', KEYS[1], ttl)
return { allowed, tokens, wait }
`)

type rateDecision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b tokenBucket) take(ctx context.Context, key string) (rateDecision, error) {
	res, err := takeToken.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		b.cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return rateDecision{}, errors.Wrap(err, "run token bucket")
	}
	if len(res) != 3 {
		return rateDecision{}, errors.Newf("token bucket returned %d values", len(res))
	}
	return rateDecision{
		allowed:   res[0] == 1,
		remaining: res[1],
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key (see rateKey) with a token bucket
// kept in Redis.  Disabled configs and a nil client yield a passthrough;
// Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := tokenBucket{cfg: cfg, rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			d, err := bucket.take(ctx, key)
			if err != nil {
				logger.WithContext(ctx).Warn("ratelimit: failing open", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.retry.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				logger.WithContext(ctx).Info("ratelimit: blocked", "key", key, "retry_after", d.retry)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"status":      "Error",
				"mensaje":     "Demasiadas solicitudes, intente más tarde.",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the prefix with the parts named by the key strategy:
// ip, user, route or an underscore-joined combination such as ip_user.
// Unknown strategies use all three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	values := map[string]string{
		"ip":    ip,
		"user":  UserID(c),
		"route": c.Request().Method + " " + c.Path(),
	}

	parts := []string{cfg.Prefix}
	strategy := strings.ToLower(cfg.KeyStrategy)
	for _, name := range strings.Split(strategy, "_") {
		v, ok := values[name]
		if !ok {
			parts = []string{cfg.Prefix, "ip", ip, "user", values["user"], "route", values["route"]}
			break
		}
		parts = append(parts, name, v)
	}
	return strings.Join(parts, ":")
}
