// Package layout derives the textual room breakdown that accompanies a
// generated floor plan. The breakdown is an approximation: rooms are sized
// from fixed percentages of the floor area and are never spatially packed.
package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"floorplan/internal/domain"
)

const (
	interiorPercent = 90
	masterPercent   = 15
	bedroomPercent  = 12

	bathroomArea       = 60
	bathroomDimensions = "8' x 7'"
	defaultFeatureArea = 100
)

type featureRule struct {
	keywords []string
	// name overrides the capitalized input when set.
	name     string
	percent  int
	fixed    int
	exterior bool
}

var featureRules = []featureRule{
	{keywords: []string{"kitchen"}, percent: 12},
	{keywords: []string{"living"}, name: "Living Room", percent: 18},
	{keywords: []string{"dining"}, name: "Dining Room", percent: 10},
	{keywords: []string{"office"}, percent: 8},
	{keywords: []string{"garage"}, fixed: 400, exterior: true},
	{keywords: []string{"balcony", "deck"}, fixed: 100, exterior: true},
	{keywords: []string{"garden"}, fixed: 500, exterior: true},
	{keywords: []string{"pool"}, fixed: 450, exterior: true},
}

// Breakdown is the allocator output plus the interior area left after every
// interior room was subtracted. RemainingInterior may be negative.
type Breakdown struct {
	Rooms             []domain.RoomRecord
	RemainingInterior int
}

// Allocate returns the ordered room records for spec.
func Allocate(spec domain.HouseSpec) []domain.RoomRecord {
	return Plan(spec).Rooms
}

// Plan runs the allocation and keeps the interior bookkeeping.
func Plan(spec domain.HouseSpec) Breakdown {
	sqFeet := max(spec.SqFeet, 0)
	remaining := percentOf(sqFeet, interiorPercent)
	rooms := make([]domain.RoomRecord, 0, 1+max(spec.Bedrooms-1, 0)+max(spec.Bathrooms, 0)+len(spec.Features))

	master := percentOf(sqFeet, masterPercent)
	rooms = append(rooms, room("Master Bedroom", master))
	remaining -= master

	bedroom := percentOf(sqFeet, bedroomPercent)
	for i := 1; i <= spec.Bedrooms-1; i++ {
		rooms = append(rooms, room(fmt.Sprintf("Bedroom %d", i), bedroom))
		remaining -= bedroom
	}

	for i := 1; i <= spec.Bathrooms; i++ {
		rooms = append(rooms, domain.RoomRecord{
			Name:       fmt.Sprintf("Bathroom %d", i),
			Area:       bathroomArea,
			Dimensions: bathroomDimensions,
		})
		remaining -= bathroomArea
	}

	for _, feature := range spec.Features {
		rec, exterior := classify(feature, sqFeet)
		if !exterior {
			remaining -= rec.Area
		}
		rooms = append(rooms, rec)
	}

	return Breakdown{Rooms: rooms, RemainingInterior: remaining}
}

func classify(feature string, sqFeet int) (domain.RoomRecord, bool) {
	key := normalize(feature)
	for _, rule := range featureRules {
		if !matches(key, rule.keywords) {
			continue
		}
		name := rule.name
		if name == "" {
			name = Capitalize(feature)
		}
		area := rule.fixed
		if rule.percent > 0 {
			area = percentOf(sqFeet, rule.percent)
		}
		return room(name, area), rule.exterior
	}
	return room(Capitalize(feature), defaultFeatureArea), false
}

func matches(key string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// normalize lower-cases s and drops all whitespace so "Home Office" and
// "homeoffice" classify the same way.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cases.Lower(language.Und).String(s))
}

// Capitalize upper-cases the first rune of s and lower-cases the rest, so
// "Prayer Room" becomes "Prayer room" rather than keeping the remainder
// as typed.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:])
}

func room(name string, area int) domain.RoomRecord {
	return domain.RoomRecord{Name: name, Area: area, Dimensions: Dimensions(area)}
}

// Dimensions renders the approximate "W' x L'" footprint for area, with
// W = floor(sqrt(area)) and L = floor(area / W).
func Dimensions(area int) string {
	if area <= 0 {
		return "0' x 0'"
	}
	width := int(math.Sqrt(float64(area)))
	for width*width > area {
		width--
	}
	for (width+1)*(width+1) <= area {
		width++
	}
	return fmt.Sprintf("%d' x %d'", width, area/width)
}

func percentOf(total, pct int) int {
	return total * pct / 100
}
