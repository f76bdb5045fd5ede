package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type layoutSource interface {
	GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error)
}

// CachedLayouts puts a Redis read-through cache in front of a layout source.
// Layouts never change once a room exists, so entries only expire by TTL.
// Redis failures are logged and fall through to the origin.
type CachedLayouts struct {
	origin layoutSource
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedLayouts wraps origin.  A nil rdb or non-positive ttl disables
// caching.
func NewCachedLayouts(origin layoutSource, rdb *redis.Client, ttl time.Duration) *CachedLayouts {
	return &CachedLayouts{origin: origin, rdb: rdb, ttl: ttl, prefix: "layout"}
}

func (c *CachedLayouts) key(roomID string) string { return c.prefix + ":" + roomID }

// GetLayout returns the cached layout or loads and caches it.
func (c *CachedLayouts) GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return c.origin.GetLayout(ctx, roomID)
	}
	log := logger.WithContext(ctx)

	if bs, err := c.rdb.Get(ctx, c.key(roomID)).Bytes(); err == nil {
		var l model.SeatLayout
		if err := json.Unmarshal(bs, &l); err == nil {
			return &l, nil
		}
		log.Warn("layout cache: corrupt entry", "room_id", roomID)
	} else if err != redis.Nil {
		log.Warn("layout cache: get failed", "room_id", roomID, "error", err)
	}

	l, err := c.origin.GetLayout(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if bs, err := json.Marshal(l); err == nil {
		if err := c.rdb.SetEx(ctx, c.key(roomID), bs, c.ttl).Err(); err != nil {
			log.Warn("layout cache: set failed", "room_id", roomID, "error", err)
		}
	}
	return l, nil
}

// Invalidate drops a cached layout.
func (c *CachedLayouts) Invalidate(ctx context.Context, roomID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.key(roomID)).Err()
}
