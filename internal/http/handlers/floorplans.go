package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"floorplan/internal/domain"
	"floorplan/internal/domain/jsoncfg"
	"floorplan/internal/middleware"
)

// GenerateFloorPlan handles POST /generate-floorplan.
func (a *App) GenerateFloorPlan(w http.ResponseWriter, r *http.Request) {
	var body jsoncfg.GenerateRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			a.error(w, http.StatusRequestEntityTooLarge, string(domain.KindBadRequest), "request body too large")
		case errors.Is(err, io.EOF):
			a.error(w, http.StatusBadRequest, string(domain.KindBadRequest), "prompt or details are required")
		default:
			a.error(w, http.StatusBadRequest, string(domain.KindBadRequest), "invalid JSON payload")
		}
		return
	}

	req := body.ToDomain()
	req.RequestID = middleware.RequestIDFromContext(r.Context())
	req.Country = middleware.CountryFromContext(r.Context())

	result, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.generationError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) generationError(w http.ResponseWriter, r *http.Request, err error) {
	genErr, ok := domain.AsGenerationError(err)
	if !ok {
		genErr = domain.WrapError(domain.KindInternalFailure, "internal error", err)
	}
	status := genErr.Kind.HTTPStatus()

	event := a.Logger.Warn()
	if status >= http.StatusInternalServerError {
		event = a.Logger.Error()
	}
	event.Err(err).
		Str("kind", string(genErr.Kind)).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Int("status", status).
		Msg("floor plan generation failed")

	if genErr.Kind == domain.KindUpstreamLoading && genErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(genErr.RetryAfter.Seconds()))))
	}
	a.json(w, status, errorResponse{
		Error:   genErr.Message,
		Kind:    string(genErr.Kind),
		Details: genErr.Details,
	})
}
