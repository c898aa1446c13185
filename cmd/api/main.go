package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"floorplan/internal/adapter/repo"
	"floorplan/internal/domain"
	"floorplan/internal/floorplan"
	"floorplan/internal/http/handlers"
	httpapi "floorplan/internal/http/httpapi"
	"floorplan/internal/imagegen"
	"floorplan/internal/infra"
	"floorplan/internal/infra/geoip"
	"floorplan/internal/middleware"
)

func main() {
	// Both files are optional. Variables already in the environment win.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := infra.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genOpts := floorplan.Options{
		Width:         cfg.ImageWidth,
		Height:        cfg.ImageHeight,
		Model:         cfg.ImageModel,
		MaxConcurrent: int64(cfg.MaxConcurrentGens),
		PostProcessor: imagegen.Passthrough{},
		Logger:        &logger,
	}
	if cfg.CropWatermark {
		genOpts.PostProcessor = imagegen.WatermarkCropper{StripHeight: cfg.WatermarkStripPx}
	}

	var analytics domain.AnalyticsRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		analyticsRepo := repo.NewAnalyticsRepository(infra.NewSQLRunner(pool, logger))
		if err := analyticsRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare analytics schema")
		}
		analytics = analyticsRepo
		genOpts.Recorder = repo.NewGenerationRecorder(analyticsRepo)
		logger.Info().Msg("generation analytics enabled")
	}

	var limiter middleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		if cfg.RedisURL != "" {
			rdb, err := infra.NewRedisClient(ctx, cfg)
			if err != nil {
				logger.Warn().Err(err).Msg("redis unavailable, using in-memory rate limiter")
			} else {
				defer closeRedis(rdb, logger)
				limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
			}
		}
		logger.Info().Str("backend", limiter.Backend()).Int("per_minute", cfg.RateLimitPerMin).Msg("rate limiting enabled")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	client := imagegen.NewPollinationsClient(imagegen.PollinationsOptions{
		BaseURL:       cfg.ImageAPIBaseURL,
		APIKey:        cfg.ImageAPIKey,
		Model:         cfg.ImageModel,
		Timeout:       cfg.ImageTimeout,
		MaxImageBytes: cfg.ImageMaxBytes,
		Logger:        &logger,
	})
	generator := floorplan.NewGenerator(client, genOpts)

	app := handlers.NewApp(generator, analytics, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		Limiter:        limiter,
		CountryLookup:  countryLookup,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	server := infra.NewHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Str("model", cfg.ImageModel).Msg("API listening")
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func closeRedis(rdb *redis.Client, logger zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn().Err(err).Msg("close redis")
	}
}
