package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTAuth("secret"), RequireRole(RoleAdmin))
	g.GET("/whoami", func(c echo.Context) error {
		id, role, ok := CurrentUser(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, strconv.FormatUint(id, 10)+" "+role)
	})

	admin, _ := utils.NewAccessToken("secret", 5, RoleAdmin, time.Minute)
	customer, _ := utils.NewAccessToken("secret", 6, RoleCustomer, time.Minute)
	forged, _ := utils.NewAccessToken("other", 5, RoleAdmin, time.Minute)

	cases := []struct {
		name   string
		auth   string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"bad signature", "Bearer " + forged.Token, http.StatusUnauthorized, ""},
		{"wrong role", "Bearer " + customer.Token, http.StatusForbidden, ""},
		{"admin", "Bearer " + admin.Token, http.StatusOK, "5 ADMIN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/v1/whoami", map[string]string{"Authorization": tc.auth})
			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d (%s)", rec.Code, tc.status, rec.Body)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body %q, want %q", rec.Body, tc.body)
			}
		})
	}
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		if rec := do(e, http.MethodGet, "/x", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(e, http.MethodGet, "/x", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("missing rate limit headers: %v", rec.Header())
	}

	// another client has its own bucket
	if rec := do(e, http.MethodGet, "/x", map[string]string{"X-Real-IP": "10.0.0.9"}); rec.Code != http.StatusNoContent {
		t.Fatalf("other ip limited: %d", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	mr.Close()
	for i := 0; i < 3; i++ {
		if rec := do(e, http.MethodGet, "/x", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d with redis down: %d", i, rec.Code)
		}
	}
}

func TestRateKeyStrategies(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set("X-Real-IP", "1.2.3.4")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	SetIdentity(c, utils.Identity{UserID: 9, Role: RoleCustomer})

	cases := map[string]string{
		"ip":         "rl:ip:1.2.3.4",
		"user":       "rl:user:9",
		"user_route": "rl:user:9:route:POST /v1/bookings",
		"":           "rl:ip:1.2.3.4:user:9:route:POST /v1/bookings",
	}
	for strategy, want := range cases {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Errorf("%q: got %q want %q", strategy, got, want)
		}
	}
}

func TestResponseCache(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 10,
	}, rdb)

	calls := 0
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"n": calls})
	}, rc.Middleware())

	first := do(e, http.MethodGet, "/v1/events", nil)
	second := do(e, http.MethodGet, "/v1/events", nil)
	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("cache headers %q / %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() || calls != 1 {
		t.Fatalf("hit differs or handler re-ran: %q vs %q, calls=%d", first.Body, second.Body, calls)
	}
	if second.Header().Get(echo.HeaderContentType) != first.Header().Get(echo.HeaderContentType) {
		t.Fatalf("content type not restored")
	}

	// different query, different entry
	do(e, http.MethodGet, "/v1/events?page=2", nil)
	if calls != 2 {
		t.Fatalf("query not part of key, calls=%d", calls)
	}

	if err := rc.Purge(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := do(e, http.MethodGet, "/v1/events", nil); rec.Header().Get("X-Cache") != "MISS" || calls != 3 {
		t.Fatalf("purge did not evict: %s calls=%d", rec.Header().Get("X-Cache"), calls)
	}
}

func TestResponseCacheSkipsErrorsAndDisabled(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache"}, rdb)
	calls := 0
	e := echo.New()
	e.GET("/boom", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}, rc.Middleware())
	do(e, http.MethodGet, "/boom", nil)
	do(e, http.MethodGet, "/boom", nil)
	if calls != 2 {
		t.Fatalf("error response cached")
	}

	var nilCache *ResponseCache
	if err := nilCache.Purge(context.Background()); err != nil {
		t.Fatalf("nil cache purge: %v", err)
	}
	off := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	e.GET("/off", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, off.Middleware())
	if rec := do(e, http.MethodGet, "/off", nil); rec.Header().Get("X-Cache") != "" {
		t.Fatalf("disabled cache touched response")
	}
}

func TestPayloadCodec(t *testing.T) {
	t.Parallel()

	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(201, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != 201 || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 1, 0, 0, 1, 0}); ok {
		t.Fatalf("truncated payload accepted")
	}
}
