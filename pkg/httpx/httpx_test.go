package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-finder/pkg/apperr"
)

func TestMemoryRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newMemoryRateLimiter(func() time.Time { return now })
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := rl.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, i, d.Count)
	}
	d, _ := rl.Allow(ctx, "ip:1", 3, time.Minute)
	assert.False(t, d.Allowed)

	other, _ := rl.Allow(ctx, "ip:2", 3, time.Minute)
	assert.True(t, other.Allowed)

	now = now.Add(61 * time.Second)
	d, _ = rl.Allow(ctx, "ip:1", 3, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)

	rl.cleanup(now.Add(2 * time.Minute))
	assert.Empty(t, rl.entries)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	limiter := NewMemoryRateLimiter()
	defer limiter.Close()

	h := RateLimit(limiter, "login", 2, time.Minute, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			var body ErrorBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "too many requests", body.Message)
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rateLimitHits.WithLabelValues("login")))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("redis down")
}
func (failingLimiter) Close() error { return nil }

func TestRateLimit_FailsOpen(t *testing.T) {
	h := RateLimit(failingLimiter{}, "login", 1, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/api/providers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/providers/abc", nil))

	got := testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/providers/{id}", "404"))
	assert.Equal(t, 1.0, got)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), apperr.Internal("insert", errors.New("secret dsn")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Server Error"}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), apperr.NotFound("provider not found"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"provider not found"}`, w.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Rating int `json:"rating"`
	}
	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4}`)), &dst)
	require.NoError(t, err)
	assert.Equal(t, 4, dst.Rating)

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":"four"}`)), &dst)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &dst)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
