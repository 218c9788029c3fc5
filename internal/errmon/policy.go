package errmon

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy holds the retry and alerting knobs.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy mirrors the pipeline defaults: three attempts, one
// second base delay, thirty second cap.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Decision is the monitor's verdict on one failure.
type Decision struct {
	Analysis      Analysis      `json:"analysis"`
	Retry         bool          `json:"retry"`
	RetryDelay    time.Duration `json:"retry_delay,omitempty"`
	AlertRequired bool          `json:"alert_required"`
	Suggestions   []string      `json:"suggestions"`
}

// Monitor classifies failures and decides retry, backoff, and alerting.
// The recurrence counter is injectable; the default is process-lifetime
// in-memory state keyed by source:code.
type Monitor struct {
	policy  Policy
	counter Counter
	logger  *zap.Logger
}

// NewMonitor creates an error monitor with the given policy.
func NewMonitor(policy Policy, counter Counter, logger *zap.Logger) *Monitor {
	if counter == nil {
		counter = NewCounter()
	}
	return &Monitor{policy: policy, counter: counter, logger: logger}
}

// ShouldRetry applies the retry gate: attempt below the limit AND the
// failure is transient AND severity is not critical. No exceptions.
func (m *Monitor) ShouldRetry(a Analysis, attempt int) bool {
	return attempt < m.policy.MaxRetries && a.IsTransient && a.Severity != SeverityCritical
}

// Delay computes capped exponential backoff for a 1-based attempt.
func (m *Monitor) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := m.policy.BaseDelay << (attempt - 1)
	if d > m.policy.MaxDelay || d < 0 {
		return m.policy.MaxDelay
	}
	return d
}

// Decide classifies one failure and returns the full verdict. attempt
// is 1-based: the count of executions already tried.
func (m *Monitor) Decide(f Failure, attempt int) Decision {
	a := Classify(f)

	recurrences := m.counter.Inc(signature(f))
	alert := a.Severity == SeverityCritical ||
		a.Severity == SeverityHigh ||
		recurrences >= alertRecurrence

	d := Decision{
		Analysis:      a,
		AlertRequired: alert,
	}
	if m.ShouldRetry(a, attempt) {
		d.Retry = true
		d.RetryDelay = m.Delay(attempt)
	}
	d.Suggestions = suggestions(a.Type, d.Retry, d.RetryDelay)

	m.logger.Info("failure classified",
		zap.String("source", f.Source),
		zap.String("severity", string(a.Severity)),
		zap.String("type", string(a.Type)),
		zap.Bool("transient", a.IsTransient),
		zap.Bool("retry", d.Retry),
		zap.Int("recurrences", recurrences))
	return d
}

func signature(f Failure) string {
	return f.Source + ":" + f.Code
}

// recoveryChecklist is the fixed per-type suggestion list.
var recoveryChecklist = map[ErrorType][]string{
	TypeNetwork: {
		"Check network connectivity to the upstream service.",
		"Verify the service endpoint and DNS resolution.",
	},
	TypeTimeout: {
		"Consider raising the operation timeout.",
		"Check upstream service performance and load.",
	},
	TypeValidation: {
		"Review the input data for missing or malformed fields.",
	},
	TypeAuthentication: {
		"Check credentials and API keys.",
		"Verify the token has not expired.",
	},
	TypeDatabase: {
		"Check the database connection and credentials.",
		"Review the failing query for constraint violations.",
	},
	TypeUnknown: {
		"Review recent logs around the failure.",
		"Escalate if the failure repeats.",
	},
}

func suggestions(t ErrorType, retry bool, delay time.Duration) []string {
	var out []string
	if retry {
		out = append(out, fmt.Sprintf("Retrying automatically in %s.", delay))
	}
	return append(out, recoveryChecklist[t]...)
}
