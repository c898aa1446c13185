package domain

import "context"

// AnalyticsRepository updates and reads the daily generation counters.
type AnalyticsRepository interface {
	IncrementCounters(ctx context.Context, day string, counters map[string]int) error
	GetSummary(ctx context.Context) (*GenerationDaily, error)
}
