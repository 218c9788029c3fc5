package rfp

import "testing"

func TestRecommendAircraftThresholds(t *testing.T) {
	cases := []struct {
		pax  int
		want Category
	}{
		{1, CategoryLight},
		{4, CategoryLight},
		{5, CategoryMidsize},
		{6, CategoryMidsize},
		{7, CategorySuperMidsize},
		{8, CategorySuperMidsize},
		{9, CategoryHeavy},
		{12, CategoryHeavy},
		{13, CategoryUltraLongRange},
		{19, CategoryUltraLongRange},
	}
	for _, tc := range cases {
		if got := RecommendAircraft(tc.pax).Category; got != tc.want {
			t.Errorf("pax=%d: got %s, want %s", tc.pax, got, tc.want)
		}
	}
}

func TestRecommendAircraftConfidence(t *testing.T) {
	// Inside the typical sub-range.
	if rec := RecommendAircraft(5); rec.Confidence != 0.95 {
		t.Errorf("pax=5: got confidence %.2f, want 0.95", rec.Confidence)
	}
	// Inside the certified range but outside typical: 17 is in the
	// ultra-long-range band (10-19) past its typical 12-16.
	if rec := RecommendAircraft(17); rec.Confidence != 0.85 {
		t.Errorf("pax=17: got confidence %.2f, want 0.85", rec.Confidence)
	}
}

func TestRecommendAircraftClamping(t *testing.T) {
	rec := RecommendAircraft(0)
	if rec.Confidence != 0.5 || rec.Note == "" {
		t.Errorf("pax=0 should clamp with confidence 0.5 and a note, got %+v", rec)
	}

	rec = RecommendAircraft(25)
	if rec.Category != CategoryUltraLongRange {
		t.Errorf("pax=25: got %s, want %s", rec.Category, CategoryUltraLongRange)
	}
	if rec.Confidence != 0.6 {
		t.Errorf("pax=25: got confidence %.2f, want 0.6", rec.Confidence)
	}
	if rec.Note == "" {
		t.Error("pax=25 should note multiple aircraft / commercial charter")
	}
}

func TestCanAccommodateCoversBand(t *testing.T) {
	for _, b := range Bands {
		for p := b.MinPax; p <= b.MaxPax; p++ {
			if !CanAccommodate(b.Category, p) {
				t.Errorf("%s should accommodate %d", b.Category, p)
			}
		}
		if CanAccommodate(b.Category, b.MinPax-1) {
			t.Errorf("%s should not accommodate %d", b.Category, b.MinPax-1)
		}
		if CanAccommodate(b.Category, b.MaxPax+1) {
			t.Errorf("%s should not accommodate %d", b.Category, b.MaxPax+1)
		}
	}
}

func TestCapableCategoriesNeverEmpty(t *testing.T) {
	for p := 1; p <= 30; p++ {
		if got := CapableCategories(p); len(got) == 0 {
			t.Errorf("pax=%d: capable categories should never be empty", p)
		}
	}
}

func TestAlternativesSortedAndCapped(t *testing.T) {
	for p := 1; p <= 19; p++ {
		rec := RecommendAircraft(p)
		if len(rec.Alternatives) > 3 {
			t.Errorf("pax=%d: %d alternatives, cap is 3", p, len(rec.Alternatives))
		}
		for i := 1; i < len(rec.Alternatives); i++ {
			if bandFor(rec.Alternatives[i-1]).MaxPax > bandFor(rec.Alternatives[i]).MaxPax {
				t.Errorf("pax=%d: alternatives not sorted by capacity: %v", p, rec.Alternatives)
			}
		}
		for _, alt := range rec.Alternatives {
			if alt == rec.Category {
				t.Errorf("pax=%d: primary category repeated in alternatives", p)
			}
		}
	}
}

func TestReasoningAlwaysPresent(t *testing.T) {
	for _, p := range []int{-1, 0, 1, 4, 9, 19, 40} {
		if rec := RecommendAircraft(p); rec.Reasoning == "" {
			t.Errorf("pax=%d: reasoning should never be empty", p)
		}
	}
}
