package errmon

import (
	"strings"
	"sync"
)

// Severity grades a failure.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorType buckets failures for recovery suggestions.
type ErrorType string

const (
	TypeNetwork        ErrorType = "network"
	TypeTimeout        ErrorType = "timeout"
	TypeValidation     ErrorType = "validation"
	TypeAuthentication ErrorType = "authentication"
	TypeDatabase       ErrorType = "database"
	TypeUnknown        ErrorType = "unknown"
)

// Failure is the raw input to classification.
type Failure struct {
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
	Source   string   `json:"source,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Analysis is the derived classification. It is computed fresh on every
// call and never persisted on its own.
type Analysis struct {
	Message     string    `json:"message"`
	Source      string    `json:"source"`
	Severity    Severity  `json:"severity"`
	IsTransient bool      `json:"is_transient"`
	Type        ErrorType `json:"error_type"`
}

// Counter tracks error-signature recurrence. The default implementation
// is in-memory and process-lifetime: a restart resets the counts, an
// accepted staleness tradeoff.
type Counter interface {
	Inc(key string) int
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCounter returns the default in-memory recurrence counter.
func NewCounter() Counter {
	return &memCounter{counts: make(map[string]int)}
}

func (c *memCounter) Inc(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key]
}

// alertRecurrence is the per-signature count at which recurring
// failures alert regardless of severity.
const alertRecurrence = 5

var criticalMarkers = []string{"database", "db", "fatal", "data loss", "corrupt"}

var highMarkers = []string{"auth", "permission", "forbidden", "unauthorized", "security"}

var lowMarkers = []string{"cache", "warning", "deprecated"}

// transientMarkers name failures expected to clear on retry.
var transientMarkers = []string{
	"timeout", "timed out", "network", "connection", "unavailable",
	"temporary", "econnreset", "econnrefused", "etimedout", "eai_again",
	"too many requests", "rate limit", "503", "429",
}

// permanentMarkers name failures a retry cannot fix.
var permanentMarkers = []string{
	"validation", "auth", "permission", "not_found", "not found",
	"invalid", "missing required", "missing_required", "unauthorized",
	"forbidden", "bad request", "400", "404",
}

var typeMarkers = []struct {
	typ     ErrorType
	markers []string
}{
	{TypeTimeout, []string{"timeout", "timed out", "etimedout", "deadline"}},
	{TypeNetwork, []string{"network", "connection", "econnreset", "econnrefused", "unreachable", "dns", "eai_again"}},
	{TypeValidation, []string{"validation", "invalid", "missing required", "missing_required", "bad request"}},
	{TypeAuthentication, []string{"auth", "unauthorized", "forbidden", "permission", "credential", "token"}},
	{TypeDatabase, []string{"database", "db", "sql", "postgres", "deadlock", "constraint"}},
}

// Classify derives severity, transience, and error type from a raw
// failure. Unknown failures default to transient: the policy is
// optimistic about retrying what it cannot name.
func Classify(f Failure) Analysis {
	haystack := strings.ToLower(f.Message + " " + f.Code)

	severity := f.Severity
	if severity == "" {
		switch {
		case containsAny(haystack, criticalMarkers):
			severity = SeverityCritical
		case containsAny(haystack, highMarkers):
			severity = SeverityHigh
		case containsAny(haystack, lowMarkers):
			severity = SeverityLow
		default:
			severity = SeverityMedium
		}
	}

	transient := true
	switch {
	case containsAny(haystack, transientMarkers):
		transient = true
	case containsAny(haystack, permanentMarkers):
		transient = false
	}

	return Analysis{
		Message:     f.Message,
		Source:      f.Source,
		Severity:    severity,
		IsTransient: transient,
		Type:        classifyType(haystack),
	}
}

func classifyType(haystack string) ErrorType {
	for _, tm := range typeMarkers {
		if containsAny(haystack, tm.markers) {
			return tm.typ
		}
	}
	return TypeUnknown
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
