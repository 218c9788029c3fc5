package rfp

import (
	"strings"
	"testing"
	"time"
)

func TestExtractRouteAirportCodes(t *testing.T) {
	m := ExtractRoute("JFK to LAX")
	if m.Departure != "JFK" || m.Arrival != "LAX" {
		t.Fatalf("got %q -> %q", m.Departure, m.Arrival)
	}
	if m.Confidence != 0.95 {
		t.Errorf("got confidence %.2f, want 0.95", m.Confidence)
	}
}

func TestExtractRoutePhrasings(t *testing.T) {
	cases := []struct {
		utterance string
		dep, arr  string
		minConf   float64
	}{
		{"from New York to Miami", "New York", "Miami", 0.95},
		{"flying from Boston to Aspen next Friday", "Boston", "Aspen", 0.85},
		{"go from Austin to Nashville", "Austin", "Nashville", 0.85},
		{"Chicago to Dallas", "Chicago", "Dallas", 0.9},
		{"I want to fly to Paris from London", "London", "Paris", 0.85},
	}
	for _, tc := range cases {
		m := ExtractRoute(tc.utterance)
		if m.Departure != tc.dep || m.Arrival != tc.arr {
			t.Errorf("%q: got %q -> %q, want %q -> %q",
				tc.utterance, m.Departure, m.Arrival, tc.dep, tc.arr)
		}
		if m.Confidence < tc.minConf {
			t.Errorf("%q: got confidence %.2f, want >= %.2f",
				tc.utterance, m.Confidence, tc.minConf)
		}
	}

	// Conversational phrasings rank below the bare "from X to Y" form.
	if m := ExtractRoute("flying from Boston to Aspen"); m.Confidence >= 0.95 {
		t.Errorf("conversational phrasing confidence %.2f, want < 0.95", m.Confidence)
	}
}

func TestExtractRouteDestinationOnly(t *testing.T) {
	// The leading verb phrase carries its own "to"; the destination is
	// the last one.
	m := ExtractRoute("I want to fly to Paris")
	if m.Departure != "" || m.Arrival != "Paris" {
		t.Fatalf("got %q -> %q, want one-sided Paris", m.Departure, m.Arrival)
	}
	if m.Confidence < 0.3 || m.Confidence > 0.5 {
		t.Errorf("one-sided match confidence %.2f outside [0.3,0.5]", m.Confidence)
	}

	if m := ExtractRoute("heading into Teterboro"); m.Arrival != "Teterboro" {
		t.Errorf("got arrival %q, want Teterboro", m.Arrival)
	}
}

func TestExtractRoutePartial(t *testing.T) {
	m := ExtractRoute("we leave from Denver")
	if m.Departure != "Denver" || m.Arrival != "" {
		t.Fatalf("got %q -> %q, want one-sided Denver", m.Departure, m.Arrival)
	}
	if m.Confidence < 0.3 || m.Confidence > 0.5 {
		t.Errorf("one-sided match confidence %.2f outside [0.3,0.5]", m.Confidence)
	}
}

func TestExtractRouteNothing(t *testing.T) {
	if m := ExtractRoute("how does this work?"); m.Confidence != 0 {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestExtractDatesCompoundRelative(t *testing.T) {
	m := ExtractDates("tomorrow, returning in 5 days", testNow)
	if m.Ambiguous {
		t.Fatal("compound relative dates should not be ambiguous")
	}
	wantDep := testNow.AddDate(0, 0, 1).Format("2006-01-02")
	wantRet := testNow.AddDate(0, 0, 6).Format("2006-01-02")
	if m.DepartureDate != wantDep {
		t.Errorf("departure: got %s, want %s", m.DepartureDate, wantDep)
	}
	if m.ReturnDate != wantRet {
		t.Errorf("return: got %s, want %s", m.ReturnDate, wantRet)
	}
	dep, _ := time.Parse("2006-01-02", m.DepartureDate)
	ret, _ := time.Parse("2006-01-02", m.ReturnDate)
	if !ret.After(dep) {
		t.Error("return date must be after departure")
	}
}

func TestExtractDatesExplicit(t *testing.T) {
	if m := ExtractDates("departing 2026-04-02", testNow); m.DepartureDate != "2026-04-02" {
		t.Errorf("ISO date: got %s", m.DepartureDate)
	}
	if m := ExtractDates("on March 20, 2026", testNow); m.DepartureDate != "2026-03-20" {
		t.Errorf("month-day-year: got %s", m.DepartureDate)
	}
	if m := ExtractDates("leaving 4/2/2026", testNow); m.DepartureDate != "2026-04-02" {
		t.Errorf("slash date with year: got %s", m.DepartureDate)
	}
}

func TestExtractDatesWithoutYearRollsForward(t *testing.T) {
	// testNow is 2026-03-10; January 5 has already passed this year.
	if m := ExtractDates("January 5", testNow); m.DepartureDate != "2027-01-05" {
		t.Errorf("past naive date should roll to next year, got %s", m.DepartureDate)
	}
	if m := ExtractDates("June 1st", testNow); m.DepartureDate != "2026-06-01" {
		t.Errorf("future naive date stays in-year, got %s", m.DepartureDate)
	}
}

func TestExtractDatesWeekday(t *testing.T) {
	// testNow (2026-03-10) is a Tuesday; next Friday is 2026-03-13.
	if m := ExtractDates("next Friday", testNow); m.DepartureDate != "2026-03-13" {
		t.Errorf("weekday: got %s, want 2026-03-13", m.DepartureDate)
	}
	// Same weekday as today resolves a week out, not today.
	if m := ExtractDates("next Tuesday", testNow); m.DepartureDate != "2026-03-17" {
		t.Errorf("same weekday: got %s, want 2026-03-17", m.DepartureDate)
	}
}

func TestExtractDatesNextMonthIsAmbiguous(t *testing.T) {
	m := ExtractDates("sometime next month", testNow)
	if !m.Ambiguous {
		t.Fatal("bare \"next month\" should be flagged ambiguous, not guessed")
	}
	if m.DepartureDate != "" || m.ReturnDate != "" {
		t.Errorf("ambiguous match must not commit dates, got %+v", m)
	}
}

func TestExtractPassengersForms(t *testing.T) {
	cases := []struct {
		utterance string
		want      int
	}{
		{"5 passengers", 5},
		{"there will be 8 people", 8},
		{"just me", 1},
		{"party of six", 6},
		{"family of 4", 4},
		{"for 3 people", 3},
		{"there are 7 of us", 7},
	}
	for _, tc := range cases {
		m := ExtractPassengers(tc.utterance)
		if m.Count != tc.want {
			t.Errorf("%q: got %d, want %d", tc.utterance, m.Count, tc.want)
		}
		if m.Confidence == 0 {
			t.Errorf("%q: expected nonzero confidence", tc.utterance)
		}
	}

	if m := ExtractPassengers("we love flying"); m.Confidence != 0 {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestExtractAircraft(t *testing.T) {
	cases := []struct {
		utterance string
		want      Category
	}{
		{"a light jet would be great", CategoryLight},
		{"super midsize preferred", CategorySuperMidsize},
		{"maybe a Gulfstream", CategoryUltraLongRange},
		{"a King Air is fine", CategoryTurboprop},
		{"something like a Citation", CategoryLight},
	}
	for _, tc := range cases {
		if m := ExtractAircraft(tc.utterance); m.Category != tc.want {
			t.Errorf("%q: got %s, want %s", tc.utterance, m.Category, tc.want)
		}
	}
}

func TestExtractAircraftNoPreferenceYieldsNothing(t *testing.T) {
	for _, u := range []string{"no preference", "any jet works", "doesn't matter"} {
		if m := ExtractAircraft(u); m.Confidence != 0 {
			t.Errorf("%q: should yield no extraction, got %+v", u, m)
		}
		if !HasNoPreference(u) {
			t.Errorf("%q: should read as an explicit no-preference", u)
		}
	}
}

func TestExtractBudget(t *testing.T) {
	cases := []struct {
		utterance string
		want      float64
	}{
		{"around 50k", 50000},
		{"budget is $45,000", 45000},
		{"up to 120000 total", 120000},
	}
	for _, tc := range cases {
		if m := ExtractBudget(tc.utterance); m.Amount != tc.want {
			t.Errorf("%q: got %.0f, want %.0f", tc.utterance, m.Amount, tc.want)
		}
	}

	// Small bare numbers must not read as budgets.
	if m := ExtractBudget("4 passengers on the 15th"); m.Confidence != 0 {
		t.Errorf("small numbers should not match, got %+v", m)
	}
}

func TestExtractRequirements(t *testing.T) {
	notes, conf := ExtractRequirements("we're bringing a dog and need wifi")
	if conf == 0 {
		t.Fatal("expected requirement extraction")
	}
	for _, want := range []string{"pet-friendly cabin", "wifi onboard"} {
		if !containsNote(notes, want) {
			t.Errorf("notes %q missing %q", notes, want)
		}
	}
}

func containsNote(notes, want string) bool {
	for _, n := range strings.Split(notes, "; ") {
		if n == want {
			return true
		}
	}
	return false
}
