package domain

import (
	"strings"
	"time"
	"unicode"
)

// LayoutType is the floor-plan organisation requested by the caller.
type LayoutType string

const (
	LayoutOpenConcept LayoutType = "Open Concept"
	LayoutTraditional LayoutType = "Traditional"
	LayoutStudio      LayoutType = "Studio"
)

// Default values applied to absent or malformed HouseSpec fields.
const (
	DefaultBedrooms  = 3
	DefaultBathrooms = 2
	DefaultSqFeet    = 1500
	DefaultArchStyle = "Modern Contemporary"
	DefaultLayout    = LayoutOpenConcept
)

// ParseLayoutType maps free text onto a known layout, ignoring case, spaces,
// dashes and underscores. Unknown text is kept verbatim so it can still be
// placed into the prompt.
func ParseLayoutType(raw string) LayoutType {
	trimmed := strings.TrimSpace(raw)
	key := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, trimmed)
	switch key {
	case "":
		return DefaultLayout
	case "openconcept", "open":
		return LayoutOpenConcept
	case "traditional":
		return LayoutTraditional
	case "studio":
		return LayoutStudio
	default:
		return LayoutType(trimmed)
	}
}

// Known reports whether the layout is one of the recognised values.
func (l LayoutType) Known() bool {
	switch l {
	case LayoutOpenConcept, LayoutTraditional, LayoutStudio:
		return true
	}
	return false
}

// HouseSpec is the normalized set of house parameters used to build the
// prompt and the room breakdown.
type HouseSpec struct {
	Bedrooms    int        `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int        `json:"bathrooms" validate:"gte=0"`
	SqFeet      int        `json:"sqFeet" validate:"gt=0"`
	LayoutType  LayoutType `json:"layoutType" validate:"required"`
	ArchStyle   string     `json:"archStyle" validate:"required"`
	RenderStyle string     `json:"renderStyle,omitempty"`
	Features    []string   `json:"features"`
}

// WithDefaults returns a copy of h with a blank ArchStyle or LayoutType
// replaced by its default.
func (h HouseSpec) WithDefaults() HouseSpec {
	h.ArchStyle = strings.TrimSpace(h.ArchStyle)
	if h.ArchStyle == "" {
		h.ArchStyle = DefaultArchStyle
	}
	if strings.TrimSpace(string(h.LayoutType)) == "" {
		h.LayoutType = DefaultLayout
	}
	return h
}

// RoomRecord is one entry of the textual layout breakdown.
type RoomRecord struct {
	Name       string `json:"name"`
	Area       int    `json:"area"`
	Dimensions string `json:"dimensions"`
}

// GenerationRequest carries the caller input into the orchestrator.
// RequestID and Country are optional metadata used for logs and analytics.
type GenerationRequest struct {
	Prompt  string
	Details *HouseSpec

	RequestID string
	Country   string
}

// StatusSuccess is the only status a GenerationResult carries.
const StatusSuccess = "success"

// GenerationResult is returned to the caller after a successful run.
type GenerationResult struct {
	Image           string       `json:"image"`
	LayoutBreakdown []RoomRecord `json:"layout_breakdown"`
	Status          string       `json:"status"`
}

// GenerationEvent summarises one orchestrator run for analytics.
type GenerationEvent struct {
	RequestID  string
	Kind       ErrorKind
	Duration   time.Duration
	Country    string
	OccurredAt time.Time
}

// Succeeded reports whether the run completed without a classified error.
func (e GenerationEvent) Succeeded() bool {
	return e.Kind == ""
}
