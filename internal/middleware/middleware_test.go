package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/frontdesk/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cases := []struct {
		name string
		rdb  *redis.Client
	}{
		{"redis", rdb},
		{"local", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.Use(NewTokenBucket(rateConfig(), tc.rdb, nil))
			e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

			for i := 0; i < 2; i++ {
				if rec := serve(e, http.MethodGet, "/ping"); rec.Code != http.StatusNoContent {
					t.Fatalf("request %d: status %d", i, rec.Code)
				}
			}
			rec := serve(e, http.MethodGet, "/ping")
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("third request: status %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Fatalf("missing Retry-After")
			}
			if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
				t.Fatalf("X-RateLimit-Limit = %q", got)
			}
		})
	}
}

func TestTokenBucketRedisErrorAllows(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()

	e := echo.New()
	cfg := rateConfig()
	cfg.Capacity = 1
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodGet, "/ping"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/availability/check", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/availability/check")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:10.0.0.9"},
		{"route", "rl:route:POST /api/v1/availability/check"},
		{"ip_route", "rl:ip:10.0.0.9:route:POST /api/v1/availability/check"},
	}
	for _, tt := range tests {
		cfg := rateConfig()
		cfg.KeyStrategy = tt.strategy
		if got := buildRateKey(cfg, c); got != tt.want {
			t.Fatalf("%s: key = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}

func TestRedisCache(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/restaurants/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb, nil))

	first := serve(e, http.MethodGet, "/restaurants/r1")
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: status %d X-Cache %q", first.Code, first.Header().Get("X-Cache"))
	}
	second := serve(e, http.MethodGet, "/restaurants/r1?x=1")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second: X-Cache %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q, want %q", second.Body.String(), first.Body.String())
	}
	if other := serve(e, http.MethodGet, "/restaurants/r2"); other.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("different id must miss")
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	calls := 0
	e := echo.New()
	e.GET("/restaurants/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, NewRedisCache(cfg, rdb, nil))

	serve(e, http.MethodGet, "/restaurants/missing")
	serve(e, http.MethodGet, "/restaurants/missing")
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/")
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("incoming id not reused: %q", seen)
	}
}
