package rfp

import (
	"fmt"
	"strings"
	"time"
)

// ValidationResult is the outcome of one field-group check.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	Warning     string   `json:"warning,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// LargeGroupThreshold is the passenger count above which a request is
// still valid but flagged for special handling.
const LargeGroupThreshold = 19

const dateLayout = "2006-01-02"

// ValidateRoute checks that both endpoints are present and distinct.
// When one side is missing, the error and suggestions reference the side
// the caller already supplied so the next prompt can be targeted.
func ValidateRoute(d Data) ValidationResult {
	dep := strings.TrimSpace(d.Departure)
	arr := strings.TrimSpace(d.Arrival)

	switch {
	case dep == "" && arr == "":
		return ValidationResult{
			Error:       "departure and arrival locations are required",
			Suggestions: []string{"Where are you flying from, and where to?"},
		}
	case dep == "":
		return ValidationResult{
			Error: fmt.Sprintf("departure location is required for the trip to %s", arr),
			Suggestions: []string{
				fmt.Sprintf("Where will you depart from on the way to %s?", arr),
			},
		}
	case arr == "":
		return ValidationResult{
			Error: fmt.Sprintf("arrival location is required for the trip from %s", dep),
			Suggestions: []string{
				fmt.Sprintf("Where are you headed from %s?", dep),
			},
		}
	case strings.EqualFold(dep, arr):
		return ValidationResult{
			Error:       "departure and arrival must be different locations",
			Suggestions: []string{"Double-check the destination; it matches the departure city."},
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateDates checks the departure date against the start of today and
// the return date against the departure. A same-day departure is valid:
// the comparison is start-of-day, not instant.
func ValidateDates(d Data, now time.Time) ValidationResult {
	if d.DepartureDate == "" {
		return ValidationResult{
			Error:       "departure date is required",
			Suggestions: []string{"When would you like to depart?"},
		}
	}

	dep, err := time.Parse(dateLayout, d.DepartureDate)
	if err != nil {
		return ValidationResult{
			Error:       fmt.Sprintf("departure date %q is not a recognizable date", d.DepartureDate),
			Suggestions: []string{"Try a format like 2025-03-15, March 15, or \"next Friday\"."},
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if dep.Before(today) {
		return ValidationResult{
			Error:       "departure date is in the past",
			Suggestions: []string{"Pick today or a future date."},
		}
	}

	if d.ReturnDate != "" {
		ret, err := time.Parse(dateLayout, d.ReturnDate)
		if err != nil {
			return ValidationResult{
				Error:       fmt.Sprintf("return date %q is not a recognizable date", d.ReturnDate),
				Suggestions: []string{"Try a format like 2025-03-20 or \"returning in 5 days\"."},
			}
		}
		if !ret.After(dep) {
			return ValidationResult{
				Error:       "return date must be after the departure date",
				Suggestions: []string{"Choose a return date later than the departure."},
			}
		}
	}
	return ValidationResult{Valid: true}
}

// ValidatePassengers checks for a positive count. Counts above
// LargeGroupThreshold are valid with a warning; large-group routing may
// need multiple aircraft or commercial charter.
func ValidatePassengers(d Data) ValidationResult {
	if d.Passengers == 0 {
		return ValidationResult{
			Error:       "passenger count is required",
			Suggestions: []string{"How many people are traveling?"},
		}
	}
	if d.Passengers < 0 {
		return ValidationResult{
			Error:       "passenger count must be a positive number",
			Suggestions: []string{"How many people are traveling?"},
		}
	}
	if d.Passengers > LargeGroupThreshold {
		return ValidationResult{
			Valid: true,
			Warning: fmt.Sprintf(
				"%d passengers exceeds typical private jet capacity; the group may need multiple aircraft or a commercial charter",
				d.Passengers),
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateAll runs every field-group validator over a snapshot and
// returns the first failure, or a valid result when all groups pass.
// Used as the final pre-submission check before tasks are emitted.
func ValidateAll(d Data, now time.Time) ValidationResult {
	for _, r := range []ValidationResult{
		ValidateRoute(d),
		ValidateDates(d, now),
		ValidatePassengers(d),
	} {
		if !r.Valid {
			return r
		}
	}
	return ValidationResult{Valid: true}
}
