package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const testSecret = "test-secret"

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTAuth(t *testing.T) {
	valid, err := utils.NewAccessToken(testSecret, "user-7", "CUSTOMER", time.Minute)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(testSecret, "user-7", "CUSTOMER", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.NewAccessToken("other", "user-7", "CUSTOMER", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign.Token, http.StatusUnauthorized},
		{"valid", "Bearer " + valid.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/v1/funciones/reservar")
			if tt.header != "" {
				c.Request().Header.Set("Authorization", tt.header)
			}
			require.NoError(t, JWTAuth(testSecret)(ok)(c))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"status":"Error"`)
			}
		})
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, "user-7", "ADMIN", time.Minute)
	require.NoError(t, err)

	c, _ := newContext(http.MethodPost, "/")
	c.Request().Header.Set("Authorization", "Bearer "+tok.Token)

	var seen string
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		seen = logger.UserID(c.Request().Context())
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "user-7", UserID(c))
	assert.Equal(t, "ADMIN", c.Get(ContextRole))
	assert.Equal(t, "user-7", seen)
}

func TestUserIDDefaultsToAnon(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/")
	assert.Equal(t, "anon", UserID(c))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "42", subject(float64(42)))
	assert.Equal(t, "abc", subject("abc"))
	assert.Equal(t, "", subject(nil))
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole("CUSTOMER", "ADMIN")

	c, rec := newContext(http.MethodPost, "/")
	c.Set(ContextRole, "CUSTOMER")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/")
	c.Set(ContextRole, "OWNER")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(http.MethodPost, "/")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestLoggerRequestID(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/healthz")
	var seen string
	h := RequestLogger()(func(c echo.Context) error {
		seen = logger.RequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})
	require.NoError(t, h(c))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(headerRequestID))

	c, rec = newContext(http.MethodGet, "/healthz")
	c.Request().Header.Set(headerRequestID, "abc-123")
	require.NoError(t, h(c))
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestMiddlewarePassthroughWithoutRedis(t *testing.T) {
	rl := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil)

	for i := 0; i < 3; i++ {
		c, rec := newContext(http.MethodGet, "/v1/salas/1")
		require.NoError(t, rl(cache(ok))(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/funciones/reservar")
	c.SetPath("/v1/funciones/reservar")
	c.Request().RemoteAddr = "10.0.0.1:5555"
	c.Set(ContextUserID, "u1")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:10.0.0.1"},
		{"user", "rl:user:u1"},
		{"ip_user", "rl:ip:10.0.0.1:user:u1"},
		{"route", "rl:route:POST /v1/funciones/reservar"},
		{"user_route", "rl:user:u1:route:POST /v1/funciones/reservar"},
		{"bogus", "rl:ip:10.0.0.1:user:u1:route:POST /v1/funciones/reservar"},
		{"", "rl:ip:10.0.0.1:user:u1:route:POST /v1/funciones/reservar"},
	}
	for _, tt := range tests {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: tt.strategy}
		assert.Equal(t, tt.want, rateKey(cfg, c), tt.strategy)
	}
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache"}
	c1, _ := newContext(http.MethodGet, "/v1/salas/1")
	c2, _ := newContext(http.MethodGet, "/v1/salas/2")
	c1.SetPath("/v1/salas/:id")
	c2.SetPath("/v1/salas/:id")
	assert.NotEqual(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c2))

	c3, _ := newContext(http.MethodGet, "/v1/salas/1?x=1")
	assert.NotEqual(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c3))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c3))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCaptureWriterOverflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflown)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.overflown)
	assert.Equal(t, 0, cw.buf.Len())
	assert.Equal(t, "abcdef", rec.Body.String())
}
