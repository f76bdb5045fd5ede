//go:build integration

package integration_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

type RedisSuite struct {
	suite.Suite
	ctx   context.Context
	redis *endpoint
	rdb   *redis.Client
}

func TestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("container tests skipped in -short mode")
	}
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	s.ctx = context.Background()
	ep, err := startRedis(s.ctx)
	s.Require().NoError(err)
	s.redis = ep

	s.rdb = config.NewRedisClient(config.RedisConfig{Addr: ep.Addr()})
	s.Require().NotNil(s.rdb, "redis ping failed")
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.rdb.FlushDB(s.ctx).Err())
}

func (s *RedisSuite) TearDownSuite() {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.redis != nil {
		_ = s.redis.Container.Terminate(context.Background())
	}
}

// countingLayouts counts origin reads behind the cache.
type countingLayouts struct {
	*repository.MemoryStore
	calls atomic.Int32
}

func (c *countingLayouts) GetLayout(ctx context.Context, id string) (*model.SeatLayout, error) {
	c.calls.Add(1)
	return c.MemoryStore.GetLayout(ctx, id)
}

func (s *RedisSuite) TestCachedLayouts() {
	origin := &countingLayouts{MemoryStore: repository.NewMemoryStore()}
	origin.PutRoom(model.SeatLayout{ID: "R1", Name: "Sala 1", Seats: []string{"A1", "A2"}})
	cached := repository.NewCachedLayouts(origin, s.rdb, time.Minute)

	for i := 0; i < 3; i++ {
		l, err := cached.GetLayout(s.ctx, "R1")
		s.Require().NoError(err)
		s.Equal([]string{"A1", "A2"}, l.Seats)
	}
	s.EqualValues(1, origin.calls.Load())

	s.Require().NoError(cached.Invalidate(s.ctx, "R1"))
	_, err := cached.GetLayout(s.ctx, "R1")
	s.Require().NoError(err)
	s.EqualValues(2, origin.calls.Load())

	_, err = cached.GetLayout(s.ctx, "missing")
	s.ErrorIs(err, repository.ErrRoomNotFound)
}

func (s *RedisSuite) TestTokenBucketBlocksAfterCapacity() {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl-test",
	}
	e := echo.New()
	e.POST("/v1/funciones/reservar", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, middleware.NewTokenBucket(cfg, s.rdb))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/funciones/reservar", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			s.NotEmpty(rec.Header().Get("Retry-After"))
			s.Contains(rec.Body.String(), `"status":"Error"`)
		}
	}
	s.Equal([]int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func (s *RedisSuite) TestResponseCache() {
	var calls atomic.Int32
	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache-test"}
	e := echo.New()
	e.GET("/v1/salas/:id", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, middleware.NewRedisCache(cfg, s.rdb))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	first := get("/v1/salas/1")
	s.Equal("MISS", first.Header().Get("X-Cache"))
	second := get("/v1/salas/1")
	s.Equal("HIT", second.Header().Get("X-Cache"))
	s.Equal(first.Body.String(), second.Body.String())
	s.Equal(echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

	other := get("/v1/salas/2")
	s.Equal("MISS", other.Header().Get("X-Cache"))
	s.Contains(other.Body.String(), `"2"`)
	s.EqualValues(2, calls.Load())
}
