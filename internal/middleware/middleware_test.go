package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/venue-reservations/internal/config"
	"github.com/iliyamo/venue-reservations/internal/utils"
)

func echoSessionRoute(secret string, kinds ...string) *echo.Echo {
	e := echo.New()
	e.GET("/v1/forms/:token", func(c echo.Context) error {
		return c.String(http.StatusOK, SessionID(c))
	}, SessionAuth(secret), RequireKind(kinds...))
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSessionAuthAcceptsValidHandle(t *testing.T) {
	tok, err := utils.NewSessionToken("secret", "sid-1", "form", time.Hour)
	require.NoError(t, err)

	rec := get(echoSessionRoute("secret", "form"), "/v1/forms/"+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sid-1", rec.Body.String())
}

func TestSessionAuthRejectsBadHandle(t *testing.T) {
	rec := get(echoSessionRoute("secret", "form"), "/v1/forms/garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid session token")
}

func TestRequireKindRejectsOtherKind(t *testing.T) {
	tok, err := utils.NewSessionToken("secret", "sid-1", "list", time.Hour)
	require.NoError(t, err)

	rec := get(echoSessionRoute("secret", "form"), "/v1/forms/"+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenBucketFallsBackToLocal(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil, zap.NewNop()))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)
	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/reservations")

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:session:anon:route:GET /v1/reservations",
		buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))

	c.Set(CtxSessionID, "sid-9")
	assert.Equal(t, "rl:session:sid-9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "session"}, c))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
	e.GET("/v1/reservations", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"n": 1}) })

	rec := get(e, "/v1/reservations")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "down") })

	get(e, "/ok")
	get(e, "/boom")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusBadGateway), entries[1].ContextMap()["status"])
}
