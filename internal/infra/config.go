package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	ImageAPIBaseURL   string
	ImageAPIKey       string
	ImageModel        string
	ImageWidth        int
	ImageHeight       int
	ImageTimeout      time.Duration
	ImageMaxBytes     int64
	CropWatermark     bool
	WatermarkStripPx  int
	MaxConcurrentGens int

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	MaxBodyBytes       int64
	RateLimitPerMin    int
	CORSAllowedOrigins []string

	DatabaseURL string
	RedisURL    string
	GeoIPDBPath string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("IMAGE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("POLLINATIONS_API_KEY")
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "5000"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		ImageAPIBaseURL:   strings.TrimRight(getEnv("IMAGE_API_BASE_URL", "https://gen.pollinations.ai"), "/"),
		ImageAPIKey:       strings.TrimSpace(apiKey),
		ImageModel:        getEnv("IMAGE_MODEL", "flux"),
		ImageWidth:        getEnvInt("IMAGE_WIDTH", 1280),
		ImageHeight:       getEnvInt("IMAGE_HEIGHT", 720),
		ImageTimeout:      time.Second * time.Duration(getEnvInt("IMAGE_TIMEOUT_SECONDS", 600)),
		ImageMaxBytes:     int64(getEnvInt("IMAGE_MAX_BYTES", 32<<20)),
		CropWatermark:     getEnvBool("IMAGE_CROP_WATERMARK", false),
		WatermarkStripPx:  getEnvInt("IMAGE_WATERMARK_STRIP_PX", 60),
		MaxConcurrentGens: getEnvInt("MAX_CONCURRENT_GENERATIONS", 0),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 660)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		MaxBodyBytes:       int64(getEnvInt("REQUEST_MAX_BODY_BYTES", 1<<20)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
	}

	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		return nil, fmt.Errorf("IMAGE_WIDTH and IMAGE_HEIGHT must be positive, got %dx%d", cfg.ImageWidth, cfg.ImageHeight)
	}
	if cfg.ImageTimeout <= 0 {
		return nil, fmt.Errorf("IMAGE_TIMEOUT_SECONDS must be positive")
	}
	if cfg.ImageMaxBytes <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_BYTES must be positive")
	}
	if cfg.WatermarkStripPx < 0 {
		return nil, fmt.Errorf("IMAGE_WATERMARK_STRIP_PX must not be negative")
	}
	if cfg.MaxConcurrentGens < 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_GENERATIONS must not be negative")
	}
	if cfg.RateLimitPerMin < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
