package domain

import "time"

// GenerationDaily stores aggregated generation outcomes for a specific day.
type GenerationDaily struct {
	Day             time.Time `json:"day"`
	Requests        int       `json:"requests"`
	Success         int       `json:"success"`
	BadRequest      int       `json:"bad_request"`
	UpstreamTimeout int       `json:"upstream_timeout"`
	UpstreamLoading int       `json:"upstream_loading"`
	UpstreamFailure int       `json:"upstream_failure"`
	InternalFailure int       `json:"internal_failure"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CounterColumn returns the generation_daily column incremented for kind.
func CounterColumn(kind ErrorKind) string {
	switch kind {
	case "":
		return "success"
	case KindBadRequest:
		return "bad_request"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamLoading:
		return "upstream_loading"
	case KindUpstreamFailure:
		return "upstream_failure"
	default:
		return "internal_failure"
	}
}
