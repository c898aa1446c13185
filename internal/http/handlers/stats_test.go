package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"floorplan/internal/domain"
)

type stubAnalytics struct {
	summary *domain.GenerationDaily
	err     error
}

func (s stubAnalytics) IncrementCounters(context.Context, string, map[string]int) error {
	return nil
}

func (s stubAnalytics) GetSummary(context.Context) (*domain.GenerationDaily, error) {
	return s.summary, s.err
}

func TestStatsToday(t *testing.T) {
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		analytics domain.AnalyticsRepository
		want      int
	}{
		{name: "disabled", analytics: nil, want: http.StatusServiceUnavailable},
		{name: "empty", analytics: stubAnalytics{err: domain.ErrNotFound}, want: http.StatusNotFound},
		{name: "broken", analytics: stubAnalytics{err: errors.New("conn refused")}, want: http.StatusInternalServerError},
		{name: "ok", analytics: stubAnalytics{summary: &domain.GenerationDaily{Day: day, Requests: 4, Success: 3, UpstreamLoading: 1}}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := NewApp(&stubGenerator{}, tc.analytics, zerolog.Nop())
			rec := httptest.NewRecorder()
			app.StatsToday(rec, httptest.NewRequest(http.MethodGet, "/v1/stats/today", nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestStatsTodayPayload(t *testing.T) {
	app := NewApp(&stubGenerator{}, stubAnalytics{summary: &domain.GenerationDaily{Requests: 4, Success: 3, UpstreamLoading: 1}}, zerolog.Nop())
	rec := httptest.NewRecorder()
	app.StatsToday(rec, httptest.NewRequest(http.MethodGet, "/v1/stats/today", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["requests"] != float64(4) || payload["upstream_loading"] != float64(1) {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHealthAndRoot(t *testing.T) {
	app := NewApp(&stubGenerator{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != "API is running..." {
		t.Fatalf("root body = %q", rec.Body.String())
	}
}
