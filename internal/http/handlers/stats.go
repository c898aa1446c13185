package handlers

import (
	"errors"
	"net/http"

	"floorplan/internal/domain"
)

// StatsToday returns the most recent daily generation counters.
func (a *App) StatsToday(w http.ResponseWriter, r *http.Request) {
	if a.Analytics == nil {
		a.error(w, http.StatusServiceUnavailable, "analytics_disabled", domain.ErrAnalyticsDisabled.Error())
		return
	}
	summary, err := a.Analytics.GetSummary(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no generations recorded yet")
			return
		}
		a.Logger.Error().Err(err).Msg("load generation stats")
		a.error(w, http.StatusInternalServerError, string(domain.KindInternalFailure), "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, summary)
}
