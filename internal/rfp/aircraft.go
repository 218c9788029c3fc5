package rfp

import (
	"fmt"
	"sort"
	"strings"
)

// Category is an aircraft size class.
type Category string

const (
	CategoryTurboprop      Category = "turboprop"
	CategoryVeryLight      Category = "very_light"
	CategoryLight          Category = "light"
	CategoryMidsize        Category = "midsize"
	CategorySuperMidsize   Category = "super_midsize"
	CategoryHeavy          Category = "heavy"
	CategoryUltraLongRange Category = "ultra_long_range"
)

// CategoryBand describes the certified and typical seating of a category
// along with its usual still-air range.
type CategoryBand struct {
	Category   Category
	MinPax     int
	MaxPax     int
	TypicalMin int
	TypicalMax int
	RangeNM    int
}

// Bands is the fixed category ladder, ordered by ascending capacity.
var Bands = []CategoryBand{
	{CategoryVeryLight, 1, 5, 2, 4, 1100},
	{CategoryTurboprop, 1, 9, 4, 6, 1300},
	{CategoryLight, 2, 8, 4, 6, 1700},
	{CategoryMidsize, 4, 9, 5, 7, 2800},
	{CategorySuperMidsize, 6, 10, 7, 9, 3400},
	{CategoryHeavy, 8, 16, 9, 13, 4000},
	{CategoryUltraLongRange, 10, 19, 12, 16, 6500},
}

// alternativeSlack is how many seats above the passenger count a larger
// category's minimum may start and still be offered as a comfort upgrade.
const alternativeSlack = 2

// maxAlternatives caps the alternatives list.
const maxAlternatives = 3

// Recommendation is the inferrer's best-effort answer. It is always
// populated: out-of-domain counts clamp rather than fail.
type Recommendation struct {
	Category     Category   `json:"category"`
	Confidence   float64    `json:"confidence"`
	Alternatives []Category `json:"alternatives,omitempty"`
	Reasoning    string     `json:"reasoning"`
	Note         string     `json:"note,omitempty"`
}

func bandFor(c Category) CategoryBand {
	for _, b := range Bands {
		if b.Category == c {
			return b
		}
	}
	return Bands[0]
}

// CanAccommodate reports whether a category's certified seating covers
// the passenger count.
func CanAccommodate(c Category, passengers int) bool {
	b := bandFor(c)
	return passengers >= b.MinPax && passengers <= b.MaxPax
}

// CapableCategories returns every category whose certified band contains
// the count, falling back to the largest category so the list is never
// empty for counts of at least one.
func CapableCategories(passengers int) []Category {
	var out []Category
	for _, b := range Bands {
		if passengers >= b.MinPax && passengers <= b.MaxPax {
			out = append(out, b.Category)
		}
	}
	if len(out) == 0 && passengers >= 1 {
		out = append(out, Bands[len(Bands)-1].Category)
	}
	return out
}

// RecommendAircraft maps a passenger count to a ranked category
// recommendation with calibrated confidence. It never fails; counts
// outside the serviceable domain clamp with an explanatory note.
func RecommendAircraft(passengers int) Recommendation {
	if passengers < 1 {
		b := Bands[0]
		return Recommendation{
			Category:   b.Category,
			Confidence: 0.5,
			Reasoning:  reasoning(b, 1),
			Note:       "passenger count was below one; assuming a single traveler",
		}
	}
	if passengers > LargeGroupThreshold {
		b := Bands[len(Bands)-1]
		return Recommendation{
			Category:   b.Category,
			Confidence: 0.6,
			Reasoning:  reasoning(b, passengers),
			Note:       "group exceeds single-aircraft capacity; consider multiple aircraft or a commercial charter",
		}
	}

	cat := primaryCategory(passengers)
	b := bandFor(cat)
	return Recommendation{
		Category:     cat,
		Confidence:   confidence(b, passengers),
		Alternatives: alternatives(cat, passengers),
		Reasoning:    reasoning(b, passengers),
	}
}

// primaryCategory applies the fixed recommendation thresholds.
func primaryCategory(passengers int) Category {
	switch {
	case passengers <= 4:
		return CategoryLight
	case passengers <= 6:
		return CategoryMidsize
	case passengers <= 8:
		return CategorySuperMidsize
	case passengers <= 12:
		return CategoryHeavy
	default:
		return CategoryUltraLongRange
	}
}

// confidence scores how well the count sits inside the chosen band:
// 0.95 inside the typical sub-range, 0.85 inside the certified range,
// 0.70 within one seat below or two above it, 0.60 otherwise.
func confidence(b CategoryBand, passengers int) float64 {
	switch {
	case passengers >= b.TypicalMin && passengers <= b.TypicalMax:
		return 0.95
	case passengers >= b.MinPax && passengers <= b.MaxPax:
		return 0.85
	case passengers >= b.MinPax-1 && passengers <= b.MaxPax+2:
		return 0.70
	default:
		return 0.60
	}
}

// alternatives surfaces other categories that fit the count, plus
// slightly larger categories whose band starts within alternativeSlack
// seats above it, sorted by ascending capacity and capped.
func alternatives(primary Category, passengers int) []Category {
	var alts []CategoryBand
	for _, b := range Bands {
		if b.Category == primary {
			continue
		}
		fits := passengers >= b.MinPax && passengers <= b.MaxPax
		nearAbove := b.MinPax > passengers && b.MinPax <= passengers+alternativeSlack
		if fits || nearAbove {
			alts = append(alts, b)
		}
	}
	sort.Slice(alts, func(i, j int) bool { return alts[i].MaxPax < alts[j].MaxPax })
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	out := make([]Category, len(alts))
	for i, b := range alts {
		out[i] = b.Category
	}
	return out
}

// reasoning composes the explanation from three independent clauses so
// the text stays consistent if thresholds move.
func reasoning(b CategoryBand, passengers int) string {
	return strings.Join([]string{
		fitClause(b, passengers),
		capacityClause(b),
		rangeClause(b),
	}, " ")
}

func fitClause(b CategoryBand, passengers int) string {
	label := strings.ReplaceAll(string(b.Category), "_", " ")
	if passengers >= b.TypicalMin && passengers <= b.TypicalMax {
		return fmt.Sprintf("A %s aircraft is a natural fit for %d passengers.", label, passengers)
	}
	return fmt.Sprintf("A %s aircraft can work for %d passengers.", label, passengers)
}

func capacityClause(b CategoryBand) string {
	return fmt.Sprintf("Cabins in this class seat %d to %d, with %d to %d the comfortable norm.",
		b.MinPax, b.MaxPax, b.TypicalMin, b.TypicalMax)
}

func rangeClause(b CategoryBand) string {
	return fmt.Sprintf("Typical nonstop range is around %d nautical miles.", b.RangeNM)
}
