package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"floorplan/internal/http/handlers"
	"floorplan/internal/middleware"
)

// Options carries the cross-cutting pieces the router wires around handlers.
type Options struct {
	Logger zerolog.Logger
	// Limiter guards the generation routes; nil disables rate limiting.
	Limiter        middleware.Limiter
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Country(opts.CountryLookup),
	)

	r.Get("/", app.Root)
	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", handlers.MetricsHandler())
	r.Get("/v1/stats/today", app.StatsToday)

	r.Group(func(r chi.Router) {
		if opts.MaxBodyBytes > 0 {
			r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
		}
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
		}
		r.Post("/generate-floorplan", app.GenerateFloorPlan)
		r.Post("/api/generate-floorplan", app.GenerateFloorPlan)
	})

	return r
}
