package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"floorplan/internal/domain"
)

// Generator runs one floor plan generation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
}

type App struct {
	Generator Generator
	// Analytics is nil when DATABASE_URL is not configured.
	Analytics domain.AnalyticsRepository
	Logger    zerolog.Logger
}

func NewApp(gen Generator, analytics domain.AnalyticsRepository, logger zerolog.Logger) *App {
	return &App{Generator: gen, Analytics: analytics, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details any    `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, kind, msg string) {
	a.json(w, status, errorResponse{Error: msg, Kind: kind})
}
