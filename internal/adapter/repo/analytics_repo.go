package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"floorplan/internal/domain"
	"floorplan/internal/infra"
	"floorplan/internal/sqlinline"
)

// AnalyticsRepositoryPG implements domain.AnalyticsRepository on generation_daily.
type AnalyticsRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(sql infra.SQLExecutor) *AnalyticsRepositoryPG {
	return &AnalyticsRepositoryPG{sql: sql}
}

// EnsureSchema creates generation_daily when it does not exist yet.
func (r *AnalyticsRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureGenerationDaily); err != nil {
		return fmt.Errorf("analytics: ensure schema: %w", err)
	}
	return nil
}

// IncrementCounters upserts counters for the provided day (YYYY-MM-DD).
func (r *AnalyticsRepositoryPG) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QIncrementGenerationDaily,
		day,
		counters["requests"],
		counters["success"],
		counters["bad_request"],
		counters["upstream_timeout"],
		counters["upstream_loading"],
		counters["upstream_failure"],
		counters["internal_failure"],
	)
	if err != nil {
		return fmt.Errorf("analytics: increment %s: %w", day, err)
	}
	return nil
}

// GetSummary returns the most recent day. domain.ErrNotFound when empty.
func (r *AnalyticsRepositoryPG) GetSummary(ctx context.Context) (*domain.GenerationDaily, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QLatestGenerationDaily)

	var summary domain.GenerationDaily
	if err := row.Scan(
		&summary.Day,
		&summary.Requests,
		&summary.Success,
		&summary.BadRequest,
		&summary.UpstreamTimeout,
		&summary.UpstreamLoading,
		&summary.UpstreamFailure,
		&summary.InternalFailure,
		&summary.CreatedAt,
		&summary.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("analytics: latest day: %w", err)
	}
	return &summary, nil
}

var _ domain.AnalyticsRepository = (*AnalyticsRepositoryPG)(nil)

// GenerationRecorder turns generation events into daily counter increments.
type GenerationRecorder struct {
	Repo domain.AnalyticsRepository
}

func NewGenerationRecorder(repo domain.AnalyticsRepository) *GenerationRecorder {
	return &GenerationRecorder{Repo: repo}
}

func (g *GenerationRecorder) Record(ctx context.Context, event domain.GenerationEvent) error {
	if g == nil || g.Repo == nil {
		return nil
	}
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return g.Repo.IncrementCounters(ctx, at.UTC().Format(time.DateOnly), map[string]int{
		"requests":                       1,
		domain.CounterColumn(event.Kind): 1,
	})
}
