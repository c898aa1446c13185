package jsoncfg

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"floorplan/internal/domain"
)

// FlexInt decodes a non-negative integer sent either as a JSON number or as
// a numeric string. Anything else leaves Valid false so defaults can apply.
type FlexInt struct {
	Value int
	Valid bool
}

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	*n = FlexInt{}
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return nil
	}
	n.Value = int(f)
	n.Valid = true
	return nil
}

// Or returns the decoded value, or def when the field was absent or malformed.
func (n FlexInt) Or(def int) int {
	if !n.Valid {
		return def
	}
	return n.Value
}

// FeatureList accepts a comma-separated string or an array of strings.
type FeatureList []string

func (f *FeatureList) UnmarshalJSON(data []byte) error {
	*f = nil
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		*f = SplitFeatures(s)
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*f = out
	}
	return nil
}

// SplitFeatures splits a comma-separated feature list, trimming entries and
// dropping empty ones. Order and duplicates are kept.
func SplitFeatures(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// HouseSpecJSON is the wire form of the house details.
type HouseSpecJSON struct {
	Bedrooms    FlexInt     `json:"bedrooms"`
	Bathrooms   FlexInt     `json:"bathrooms"`
	SqFeet      FlexInt     `json:"sqFeet"`
	LayoutType  string      `json:"layoutType"`
	ArchStyle   string      `json:"archStyle"`
	RenderStyle string      `json:"renderStyle"`
	Features    FeatureList `json:"features"`
}

// Normalize applies server defaults and returns the domain value.
func (h *HouseSpecJSON) Normalize() domain.HouseSpec {
	if h == nil {
		return domain.HouseSpec{}
	}
	archStyle := strings.TrimSpace(h.ArchStyle)
	if archStyle == "" {
		archStyle = domain.DefaultArchStyle
	}
	features := []string(h.Features)
	if features == nil {
		features = []string{}
	}
	return domain.HouseSpec{
		Bedrooms:    h.Bedrooms.Or(domain.DefaultBedrooms),
		Bathrooms:   h.Bathrooms.Or(domain.DefaultBathrooms),
		SqFeet:      h.SqFeet.Or(domain.DefaultSqFeet),
		LayoutType:  domain.ParseLayoutType(h.LayoutType),
		ArchStyle:   archStyle,
		RenderStyle: strings.TrimSpace(h.RenderStyle),
		Features:    features,
	}
}

// GenerateRequestJSON is the body of the generate endpoint.
type GenerateRequestJSON struct {
	Prompt  string         `json:"prompt"`
	Details *HouseSpecJSON `json:"details"`
}

// ToDomain converts the body into a generation request.
func (r GenerateRequestJSON) ToDomain() domain.GenerationRequest {
	req := domain.GenerationRequest{Prompt: r.Prompt}
	if r.Details != nil {
		spec := r.Details.Normalize()
		req.Details = &spec
	}
	return req
}
