package rfp

import "time"

// Step identifies the collection phase a conversation is in.
type Step string

const (
	StepRoute       Step = "collecting-route"
	StepDates       Step = "collecting-dates"
	StepPassengers  Step = "collecting-passengers"
	StepPreferences Step = "collecting-preferences"
	StepComplete    Step = "complete"
)

// Field names used in completed/missing tracking and prompts.
const (
	FieldDeparture     = "departure"
	FieldArrival       = "arrival"
	FieldDepartureDate = "departure_date"
	FieldPassengers    = "passengers"
)

// RequiredFields is the fixed set a request must carry before the
// conversation can reach StepComplete. Preferences (aircraft, budget,
// special requirements) are collected but never required.
var RequiredFields = []string{
	FieldDeparture,
	FieldArrival,
	FieldDepartureDate,
	FieldPassengers,
}

// stepFields maps each collection step to the required fields it gathers.
var stepFields = map[Step][]string{
	StepRoute:      {FieldDeparture, FieldArrival},
	StepDates:      {FieldDepartureDate},
	StepPassengers: {FieldPassengers},
}

// stepOrder is the progression of collection steps.
var stepOrder = []Step{StepRoute, StepDates, StepPassengers, StepPreferences}

// Data is the partial charter request assembled across turns.
// All fields are optional until validated; dates are ISO yyyy-mm-dd.
type Data struct {
	Departure           string  `json:"departure,omitempty"`
	Arrival             string  `json:"arrival,omitempty"`
	DepartureDate       string  `json:"departure_date,omitempty"`
	ReturnDate          string  `json:"return_date,omitempty"`
	Passengers          int     `json:"passengers,omitempty"`
	AircraftType        string  `json:"aircraft_type,omitempty"`
	Budget              float64 `json:"budget,omitempty"`
	SpecialRequirements string  `json:"special_requirements,omitempty"`
	ClientName          string  `json:"client_name,omitempty"`
}

// Turn is one entry in the conversation log.
type Turn struct {
	Role      string    `json:"role"` // user | assistant | system
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the persisted multi-turn conversation state for one thread.
type State struct {
	ThreadID            string            `json:"thread_id"`
	UserID              string            `json:"user_id"`
	CurrentStep         Step              `json:"current_step"`
	Data                Data              `json:"data"`
	CompletedFields     []string          `json:"completed_fields"`
	MissingFields       []string          `json:"missing_fields"`
	History             []Step            `json:"history"`
	ConversationHistory []Turn            `json:"conversation_history"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NewState creates an empty conversation state positioned at the first
// step, with every required field already tracked as missing.
func NewState(threadID, userID string, now time.Time) *State {
	s := &State{
		ThreadID:    threadID,
		UserID:      userID,
		CurrentStep: StepRoute,
		Metadata:    map[string]string{},
		History:     []Step{StepRoute},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Recompute(now)
	return s
}

// fieldPresent reports whether a required field holds a usable value.
// Validity beyond presence (date ordering, same-endpoint routes) is the
// validators' concern; Recompute folds their verdicts in.
func fieldPresent(d Data, field string) bool {
	switch field {
	case FieldDeparture:
		return d.Departure != ""
	case FieldArrival:
		return d.Arrival != ""
	case FieldDepartureDate:
		return d.DepartureDate != ""
	case FieldPassengers:
		return d.Passengers != 0
	}
	return false
}

// Recompute rebuilds CompletedFields and MissingFields from the current
// data snapshot. A field only counts as completed when its field group
// validates, so an invalid route leaves both endpoints missing-adjacent
// work even if text was captured for them.
func (s *State) Recompute(now time.Time) {
	groupValid := map[string]bool{
		FieldDeparture:     ValidateRoute(s.Data).Valid,
		FieldArrival:       ValidateRoute(s.Data).Valid,
		FieldDepartureDate: ValidateDates(s.Data, now).Valid,
		FieldPassengers:    ValidatePassengers(s.Data).Valid,
	}

	s.CompletedFields = s.CompletedFields[:0]
	s.MissingFields = s.MissingFields[:0]
	for _, f := range RequiredFields {
		if fieldPresent(s.Data, f) && groupValid[f] {
			s.CompletedFields = append(s.CompletedFields, f)
		} else {
			s.MissingFields = append(s.MissingFields, f)
		}
	}
}

// NextStep returns the earliest collection step that still has missing
// required fields, StepPreferences when all required fields are done but
// preferences have not been offered, and StepComplete otherwise.
func (s *State) NextStep() Step {
	missing := map[string]bool{}
	for _, f := range s.MissingFields {
		missing[f] = true
	}
	for _, step := range stepOrder {
		if step == StepPreferences {
			continue
		}
		for _, f := range stepFields[step] {
			if missing[f] {
				return step
			}
		}
	}
	if s.Metadata["preferences_prompted"] == "" {
		return StepPreferences
	}
	return StepComplete
}

// Complete reports whether every required field is present and valid.
// Both sets are consulted so a state whose tracking was never rebuilt
// reads as incomplete rather than complete.
func (s *State) Complete() bool {
	return len(s.MissingFields) == 0 && len(s.CompletedFields) == len(RequiredFields)
}

// AppendTurn records a conversation turn.
func (s *State) AppendTurn(role, content string, at time.Time) {
	s.ConversationHistory = append(s.ConversationHistory, Turn{
		Role:      role,
		Content:   content,
		Timestamp: at,
	})
}
