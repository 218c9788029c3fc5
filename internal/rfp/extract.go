package rfp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RouteMatch is a route extraction result. Confidence 0 means nothing
// was recognized; a one-sided match fills only one endpoint.
type RouteMatch struct {
	Departure  string
	Arrival    string
	Confidence float64
}

// DateMatch is a date extraction result. Ambiguous marks an utterance
// ("next month") where an option set was detected but no value should be
// committed without a clarifying question.
type DateMatch struct {
	DepartureDate string
	ReturnDate    string
	Confidence    float64
	Ambiguous     bool
}

// PassengerMatch is a passenger-count extraction result.
type PassengerMatch struct {
	Count      int
	Confidence float64
}

// AircraftMatch is an aircraft preference extraction result.
type AircraftMatch struct {
	Category   Category
	Confidence float64
}

// BudgetMatch is a budget extraction result.
type BudgetMatch struct {
	Amount     float64
	Confidence float64
}

// locEnd terminates a free-text location capture before trailing date or
// preference phrases.
const locEnd = `(?:\s+on\b|\s+for\b|\s+next\b|\s+this\b|\s+tomorrow\b|\s+today\b|\s+with\b|\s+in\s+\d|[,.!?;]|$)`

const loc = `([A-Za-z][A-Za-z .'-]{0,40}?)`

// routePatterns are tried strictly in order; the first hit wins. The
// ordering is pattern priority, not probability calibration.
var routePatterns = []struct {
	re       *regexp.Regexp
	conf     float64
	reversed bool // first capture is the arrival
}{
	{regexp.MustCompile(`\b([A-Z]{3})\s*(?:to|-|->)\s*([A-Z]{3})\b`), 0.95, false},
	{regexp.MustCompile(`(?i)\b(?:flying|fly|heading|going|go|travell?ing)\s+from\s+` + loc + `\s+to\s+` + loc + locEnd), 0.9, false},
	{regexp.MustCompile(`(?i)\bfrom\s+` + loc + `\s+to\s+` + loc + locEnd), 0.95, false},
	{regexp.MustCompile(`(?i)^\s*` + loc + `\s+to\s+` + loc + locEnd), 0.9, false},
	{regexp.MustCompile(`(?i)\b(?:flying|fly|heading|going|travell?ing)\s+to\s+` + loc + `\s+from\s+` + loc + locEnd), 0.9, true},
	{regexp.MustCompile(`(?i)\bto\s+` + loc + `\s+from\s+` + loc + locEnd), 0.85, true},
}

var (
	routeFromOnly = regexp.MustCompile(`(?i)\bfrom\s+` + loc + locEnd)
	// The greedy prefix binds to the utterance's last "to", so verb
	// phrases like "want to fly" never shadow the destination mention.
	routeToOnly = regexp.MustCompile(`(?i).*\b(?:to|into)\s+` + loc + locEnd)
)

// ExtractRoute pulls departure/arrival locations from one utterance.
// Full patterns are tried in descending specificity, then one-sided
// mentions at low confidence so the flow can hold them loosely.
func ExtractRoute(utterance string) RouteMatch {
	for _, p := range routePatterns {
		m := p.re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		a, b := cleanLocation(m[1]), cleanLocation(m[2])
		if a == "" || b == "" {
			continue
		}
		if p.reversed {
			a, b = b, a
		}
		return RouteMatch{Departure: a, Arrival: b, Confidence: p.conf}
	}

	if m := routeFromOnly.FindStringSubmatch(utterance); m != nil {
		if v := cleanLocation(m[1]); v != "" {
			return RouteMatch{Departure: v, Confidence: 0.4}
		}
	}
	if m := routeToOnly.FindStringSubmatch(utterance); m != nil {
		if v := cleanLocation(m[1]); v != "" {
			return RouteMatch{Arrival: v, Confidence: 0.3}
		}
	}
	return RouteMatch{}
}

// locationStopwords reject captured words that mark a verb phrase or
// date rather than a place, so "I want to fly to Paris" never yields a
// departure of "I want".
var locationStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "there": true, "here": true,
	"i": true, "we": true, "you": true, "want": true, "need": true,
	"like": true, "leave": true, "depart": true, "go": true, "going": true,
	"fly": true, "flying": true, "travel": true, "traveling": true,
	"travelling": true, "book": true, "looking": true, "trip": true,
	"to": true, "from": true, "charter": true, "jet": true, "plane": true,
	"tomorrow": true, "today": true, "week": true, "month": true,
}

func cleanLocation(s string) string {
	s = strings.Trim(strings.TrimSpace(s), ".,!?;")
	if s == "" {
		return ""
	}
	for _, w := range strings.Fields(s) {
		if locationStopwords[strings.ToLower(w)] {
			return ""
		}
	}
	return s
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var (
	dateISO         = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateMonthDayYr  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dateSlashYr     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dateMonthDay    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dateSlash       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	dateInDays      = regexp.MustCompile(`(?i)\bin\s+(\d{1,3})\s+days?\b`)
	dateWeekday     = regexp.MustCompile(`(?i)\b(?:next\s+|this\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	dateNextMonth   = regexp.MustCompile(`(?i)\bnext\s+month\b`)
	returnSplit     = regexp.MustCompile(`(?i)\b(?:returning|return|round\s+trip|coming\s+back|back\s+on|back\s+in)\b`)
	returnInDays    = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d{1,3})\s+days?\b`)
)

// resolveDate resolves one date expression against now, in priority
// order: explicit with year, explicit without year (rolled forward when
// the naive same-year date is already past), relative terms, weekdays.
func resolveDate(text string, now time.Time) (time.Time, float64) {
	if m := dateISO.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location()), 0.95
	}
	if m := dateMonthDayYr.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[3])
		d, _ := strconv.Atoi(m[2])
		return time.Date(y, monthNames[strings.ToLower(m[1])], d, 0, 0, 0, 0, now.Location()), 0.95
	}
	if m := dateSlashYr.FindStringSubmatch(text); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location()), 0.95
	}
	if m := dateMonthDay.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[2])
		t := time.Date(now.Year(), monthNames[strings.ToLower(m[1])], d, 0, 0, 0, 0, now.Location())
		if t.Before(startOfDay(now)) {
			t = t.AddDate(1, 0, 0)
		}
		return t, 0.9
	}
	if m := dateSlash.FindStringSubmatch(text); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
			t := time.Date(now.Year(), time.Month(mo), d, 0, 0, 0, 0, now.Location())
			if t.Before(startOfDay(now)) {
				t = t.AddDate(1, 0, 0)
			}
			return t, 0.85
		}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return startOfDay(now).AddDate(0, 0, 2), 0.85
	case strings.Contains(lower, "tomorrow"):
		return startOfDay(now).AddDate(0, 0, 1), 0.9
	case strings.Contains(lower, "yesterday"):
		return startOfDay(now).AddDate(0, 0, -1), 0.9
	case strings.Contains(lower, "today") || strings.Contains(lower, "tonight"):
		return startOfDay(now), 0.9
	case strings.Contains(lower, "next week"):
		return startOfDay(now).AddDate(0, 0, 7), 0.8
	}
	if m := dateInDays.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return startOfDay(now).AddDate(0, 0, n), 0.85
	}
	if m := dateWeekday.FindStringSubmatch(text); m != nil {
		target := weekdayNames[strings.ToLower(m[1])]
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return startOfDay(now).AddDate(0, 0, days), 0.8
	}
	return time.Time{}, 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ExtractDates resolves departure and optional return dates from one
// utterance. A bare "next month" is flagged ambiguous rather than
// guessed so the flow can ask a clarifying question.
func ExtractDates(utterance string, now time.Time) DateMatch {
	depText := utterance
	retText := ""
	if idx := returnSplit.FindStringIndex(utterance); idx != nil {
		depText = utterance[:idx[0]]
		retText = utterance[idx[0]:]
	}

	dep, conf := resolveDate(depText, now)
	if dep.IsZero() {
		if dateNextMonth.MatchString(utterance) {
			return DateMatch{Ambiguous: true, Confidence: 0.5}
		}
		if retText == "" {
			return DateMatch{}
		}
	}

	var ret time.Time
	if retText != "" {
		if m := returnInDays.FindStringSubmatch(retText); m != nil {
			n, _ := strconv.Atoi(m[1])
			base := dep
			if base.IsZero() {
				base = startOfDay(now)
			}
			ret = base.AddDate(0, 0, n)
		} else if t, _ := resolveDate(retText, now); !t.IsZero() {
			ret = t
		}
	}

	match := DateMatch{Confidence: conf}
	if !dep.IsZero() {
		match.DepartureDate = dep.Format(dateLayout)
	}
	if !ret.IsZero() {
		match.ReturnDate = ret.Format(dateLayout)
		if match.Confidence == 0 {
			match.Confidence = 0.8
		}
	}
	return match
}

var spelledCounts = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var (
	paxExplicit = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:passengers?|people|pax|travell?ers?|guests?|adults?)\b`)
	paxOfUs     = regexp.MustCompile(`(?i)\b(\d{1,2})\s+of\s+us\b`)
	paxParty    = regexp.MustCompile(`(?i)\b(?:party|family|group)\s+of\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten)\b`)
	paxForN     = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\s+(?:people|persons?|passengers?)\b`)
	paxAlone    = regexp.MustCompile(`(?i)\b(?:just\s+me|only\s+me|by\s+myself|travell?ing\s+alone|solo)\b`)
)

// ExtractPassengers pulls a passenger count from one utterance.
func ExtractPassengers(utterance string) PassengerMatch {
	if m := paxExplicit.FindStringSubmatch(utterance); m != nil {
		n, _ := strconv.Atoi(m[1])
		return PassengerMatch{Count: n, Confidence: 0.95}
	}
	if m := paxForN.FindStringSubmatch(utterance); m != nil {
		n, _ := strconv.Atoi(m[1])
		return PassengerMatch{Count: n, Confidence: 0.9}
	}
	if m := paxParty.FindStringSubmatch(utterance); m != nil {
		raw := strings.ToLower(m[1])
		n, ok := spelledCounts[raw]
		if !ok {
			n, _ = strconv.Atoi(raw)
		}
		return PassengerMatch{Count: n, Confidence: 0.9}
	}
	if m := paxOfUs.FindStringSubmatch(utterance); m != nil {
		n, _ := strconv.Atoi(m[1])
		return PassengerMatch{Count: n, Confidence: 0.9}
	}
	if paxAlone.MatchString(utterance) {
		return PassengerMatch{Count: 1, Confidence: 0.85}
	}
	return PassengerMatch{}
}

// noPreference suppresses aircraft extraction so the field stays in the
// missing set and any default is applied by policy, not the extractor.
var noPreference = regexp.MustCompile(`(?i)\b(?:no\s+preference|any\s+(?:aircraft|jet|plane)|doesn'?t\s+matter|whatever\s+works)\b`)

// HasNoPreference reports whether the utterance explicitly declines a
// preference, which lets the flow skip the preferences step.
func HasNoPreference(utterance string) bool {
	return noPreference.MatchString(utterance)
}

// aircraftKeywords maps category names and known model families, most
// specific phrases first.
var aircraftKeywords = []struct {
	phrase   string
	category Category
}{
	{"ultra long range", CategoryUltraLongRange},
	{"ultra-long-range", CategoryUltraLongRange},
	{"super midsize", CategorySuperMidsize},
	{"super-midsize", CategorySuperMidsize},
	{"very light", CategoryVeryLight},
	{"turboprop", CategoryTurboprop},
	{"turbo prop", CategoryTurboprop},
	{"king air", CategoryTurboprop},
	{"pilatus", CategoryTurboprop},
	{"gulfstream", CategoryUltraLongRange},
	{"global", CategoryUltraLongRange},
	{"challenger", CategorySuperMidsize},
	{"praetor", CategorySuperMidsize},
	{"falcon", CategoryHeavy},
	{"legacy", CategoryHeavy},
	{"heavy", CategoryHeavy},
	{"hawker", CategoryMidsize},
	{"citation", CategoryLight},
	{"learjet", CategoryLight},
	{"phenom", CategoryVeryLight},
	{"mid-size", CategoryMidsize},
	{"midsize", CategoryMidsize},
	{"light", CategoryLight},
}

// ExtractAircraft recognizes category names and known model families.
// "No preference" phrasings intentionally yield nothing.
func ExtractAircraft(utterance string) AircraftMatch {
	if noPreference.MatchString(utterance) {
		return AircraftMatch{}
	}
	lower := strings.ToLower(utterance)
	for _, kw := range aircraftKeywords {
		if strings.Contains(lower, kw.phrase) {
			return AircraftMatch{Category: kw.category, Confidence: 0.85}
		}
	}
	return AircraftMatch{}
}

var (
	budgetK     = regexp.MustCompile(`(?i)\$?\s*(\d+(?:\.\d+)?)\s*k\b`)
	budgetComma = regexp.MustCompile(`\$?\b(\d{1,3}(?:,\d{3})+)\b`)
	budgetBare  = regexp.MustCompile(`\$?\b(\d{5,})\b`)
)

// ExtractBudget recognizes "NNk" shorthand, comma-grouped amounts, and
// bare numbers of five or more digits. The digit-count floor keeps small
// numbers, like passenger counts, from reading as budgets.
func ExtractBudget(utterance string) BudgetMatch {
	if m := budgetK.FindStringSubmatch(utterance); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return BudgetMatch{Amount: v * 1000, Confidence: 0.85}
		}
	}
	if m := budgetComma.FindStringSubmatch(utterance); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil {
			return BudgetMatch{Amount: v, Confidence: 0.9}
		}
	}
	if m := budgetBare.FindStringSubmatch(utterance); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return BudgetMatch{Amount: v, Confidence: 0.7}
		}
	}
	return BudgetMatch{}
}

// requirementKeywords map utterance hints to canonical requirement notes.
var requirementKeywords = []struct {
	hint string
	note string
}{
	{"pet", "pet-friendly cabin"},
	{"dog", "pet-friendly cabin"},
	{"cat", "pet-friendly cabin"},
	{"catering", "onboard catering"},
	{"meal", "onboard catering"},
	{"wifi", "wifi onboard"},
	{"wi-fi", "wifi onboard"},
	{"wheelchair", "wheelchair accessibility"},
	{"accessib", "wheelchair accessibility"},
	{"medical", "medical support"},
	{"skis", "bulky luggage"},
	{"golf", "bulky luggage"},
}

// ExtractRequirements collects special-requirement hints. Returns the
// joined note string and a confidence of 0.7 when anything matched.
func ExtractRequirements(utterance string) (string, float64) {
	lower := strings.ToLower(utterance)
	seen := map[string]bool{}
	var notes []string
	for _, kw := range requirementKeywords {
		if strings.Contains(lower, kw.hint) && !seen[kw.note] {
			seen[kw.note] = true
			notes = append(notes, kw.note)
		}
	}
	if len(notes) == 0 {
		return "", 0
	}
	return strings.Join(notes, "; "), 0.7
}
