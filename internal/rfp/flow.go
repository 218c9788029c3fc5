package rfp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StateStore is the persistence contract the flow drives. A missing
// thread reads as (nil, nil); every other failure is a hard error.
type StateStore interface {
	Get(ctx context.Context, threadID string) (*State, error)
	Set(ctx context.Context, threadID string, state *State) error
	Delete(ctx context.Context, threadID string) error
}

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	State          *State `json:"state"`
	Reply          string `json:"reply"`
	Complete       bool   `json:"complete"`
	Disambiguation bool   `json:"disambiguation"`
}

// overwriteConfidence is the extraction confidence required to replace a
// field that already holds a value. A field captured in an earlier turn
// is never downgraded by a weaker guess in a later one.
const overwriteConfidence = 0.9

// Flow is the dialogue state machine. It composes the pure extractor,
// validators, and inferrer and owns all suspension points: one state
// read and one state write per turn. Turns for the same thread must be
// serialized by the caller.
type Flow struct {
	store  StateStore
	logger *zap.Logger
	now    func() time.Time
}

// NewFlow creates a dialogue flow over the given state store.
func NewFlow(store StateStore, logger *zap.Logger) *Flow {
	return &Flow{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the flow's time source. Used by tests.
func (f *Flow) SetClock(now func() time.Time) { f.now = now }

// HandleTurn processes one utterance: load or create state, extract,
// merge, validate, advance, persist.
func (f *Flow) HandleTurn(ctx context.Context, threadID, userID, utterance string) (*TurnResult, error) {
	now := f.now()

	state, err := f.store.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", threadID, err)
	}
	if state == nil {
		state = NewState(threadID, userID, now)
		f.logger.Info("conversation started",
			zap.String("thread", threadID),
			zap.String("user", userID))
	}
	state.AppendTurn("user", utterance, now)

	// Dates are extracted first because ambiguity there short-circuits
	// the whole turn: nothing is merged and no step advances.
	dates := ExtractDates(utterance, now)
	if dates.Ambiguous {
		reply := "Which dates in that month are you thinking of? A specific day, or early, mid, or late month works."
		state.Metadata["last_intent"] = "disambiguation"
		bumpClarificationRound(state)
		state.AppendTurn("assistant", reply, now)
		state.UpdatedAt = now
		if err := f.store.Set(ctx, threadID, state); err != nil {
			return nil, fmt.Errorf("persist state %s: %w", threadID, err)
		}
		return &TurnResult{State: state, Reply: reply, Disambiguation: true}, nil
	}

	f.merge(state, utterance, dates)

	state.Recompute(now)
	next := state.NextStep()
	if next != state.CurrentStep {
		state.CurrentStep = next
		state.History = append(state.History, next)
	}

	reply := f.reply(state, now)
	state.AppendTurn("assistant", reply, now)
	state.UpdatedAt = now
	if err := f.store.Set(ctx, threadID, state); err != nil {
		return nil, fmt.Errorf("persist state %s: %w", threadID, err)
	}

	f.logger.Debug("turn handled",
		zap.String("thread", threadID),
		zap.String("step", string(state.CurrentStep)),
		zap.Strings("missing", state.MissingFields))

	return &TurnResult{
		State:    state,
		Reply:    reply,
		Complete: state.CurrentStep == StepComplete,
	}, nil
}

// Reset hard-deletes a thread's persisted state.
func (f *Flow) Reset(ctx context.Context, threadID string) error {
	if err := f.store.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("reset thread %s: %w", threadID, err)
	}
	f.logger.Info("conversation reset", zap.String("thread", threadID))
	return nil
}

// merge folds every extractor group into the state. Extraction runs for
// all groups on every turn, not just the current step's, so a user
// volunteering several fields at once is not penalized. An existing
// value is only replaced by a high-confidence match.
func (f *Flow) merge(state *State, utterance string, dates DateMatch) {
	route := ExtractRoute(utterance)
	if route.Confidence > 0 {
		if route.Departure != "" && settable(state.Data.Departure, route.Confidence) {
			state.Data.Departure = route.Departure
		}
		if route.Arrival != "" && settable(state.Data.Arrival, route.Confidence) {
			state.Data.Arrival = route.Arrival
		}
	}

	if dates.DepartureDate != "" && settable(state.Data.DepartureDate, dates.Confidence) {
		state.Data.DepartureDate = dates.DepartureDate
	}
	if dates.ReturnDate != "" && settable(state.Data.ReturnDate, dates.Confidence) {
		state.Data.ReturnDate = dates.ReturnDate
	}

	if pax := ExtractPassengers(utterance); pax.Confidence > 0 {
		if state.Data.Passengers == 0 || pax.Confidence >= overwriteConfidence {
			state.Data.Passengers = pax.Count
		}
	}

	ac := ExtractAircraft(utterance)
	if ac.Confidence > 0 && settable(state.Data.AircraftType, ac.Confidence) {
		state.Data.AircraftType = string(ac.Category)
	}

	budget := ExtractBudget(utterance)
	if budget.Confidence > 0 && state.Data.Budget == 0 {
		state.Data.Budget = budget.Amount
	}

	if reqs, conf := ExtractRequirements(utterance); conf > 0 {
		state.Data.SpecialRequirements = appendNote(state.Data.SpecialRequirements, reqs)
	}

	// A stated preference (or an explicit "no preference") settles the
	// preferences step, whether or not it was prompted.
	if ac.Confidence > 0 || budget.Confidence > 0 || HasNoPreference(utterance) ||
		state.CurrentStep == StepPreferences {
		state.Metadata["preferences_prompted"] = "done"
	}
}

func settable(current string, confidence float64) bool {
	return current == "" || confidence >= overwriteConfidence
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	if strings.Contains(existing, note) {
		return existing
	}
	return existing + "; " + note
}

// reply builds the next prompt from the validator verdict for the
// current step, or a summary once the request is complete.
func (f *Flow) reply(state *State, now time.Time) string {
	switch state.CurrentStep {
	case StepRoute:
		v := ValidateRoute(state.Data)
		return promptFrom(v, "Where are you flying from, and where to?")
	case StepDates:
		v := ValidateDates(state.Data, now)
		return promptFrom(v, "When would you like to depart?")
	case StepPassengers:
		v := ValidatePassengers(state.Data)
		return promptFrom(v, "How many people are traveling?")
	case StepPreferences:
		state.Metadata["preferences_prompted"] = "asked"
		return "Any aircraft preference, budget, or special requirements? Say \"no preference\" to skip."
	case StepComplete:
		return f.summary(state)
	}
	return "Tell me about the trip you have in mind."
}

func promptFrom(v ValidationResult, fallback string) string {
	if len(v.Suggestions) > 0 {
		return v.Suggestions[0]
	}
	if v.Error != "" {
		return v.Error
	}
	return fallback
}

// summary formats the completed request, including the aircraft
// recommendation and any soft warnings.
func (f *Flow) summary(state *State) string {
	d := state.Data
	var sb strings.Builder
	fmt.Fprintf(&sb, "Got everything. %s to %s, departing %s", d.Departure, d.Arrival, d.DepartureDate)
	if d.ReturnDate != "" {
		fmt.Fprintf(&sb, ", returning %s", d.ReturnDate)
	}
	fmt.Fprintf(&sb, ", %d passenger", d.Passengers)
	if d.Passengers != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(".")

	if d.AircraftType == "" {
		rec := RecommendAircraft(d.Passengers)
		fmt.Fprintf(&sb, " Suggested aircraft: %s. %s",
			strings.ReplaceAll(string(rec.Category), "_", " "), rec.Reasoning)
	}
	if v := ValidatePassengers(d); v.Warning != "" {
		sb.WriteString(" Note: ")
		sb.WriteString(v.Warning)
		sb.WriteString(".")
	}
	sb.WriteString(" Searching the marketplace now.")
	return sb.String()
}

func bumpClarificationRound(state *State) {
	round := 1
	if state.Metadata["clarification_rounds"] != "" {
		fmt.Sscanf(state.Metadata["clarification_rounds"], "%d", &round)
		round++
	}
	state.Metadata["clarification_rounds"] = fmt.Sprintf("%d", round)
}
