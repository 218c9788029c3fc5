package errmon

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/notify"
)

// WorkerType is the error monitor's pipeline tag.
const WorkerType = "error-monitor"

// Report is the payload an error-monitor task carries.
type Report struct {
	Failure Failure `json:"failure"`
	Attempt int     `json:"attempt"`
}

// Worker exposes the monitor as a pipeline worker and dispatches alerts
// through the notifier when a decision requires one.
type Worker struct {
	*agent.Base
	monitor  *Monitor
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewWorker wraps a Monitor in the worker contract.
func NewWorker(monitor *Monitor, notifier notify.Notifier, logger *zap.Logger) *Worker {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Worker{
		Base:     agent.NewBase(WorkerType, logger),
		monitor:  monitor,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute classifies the reported failure and returns the decision.
func (w *Worker) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return w.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		var report Report
		if err := json.Unmarshal(tc.Payload, &report); err != nil {
			return nil, &agent.TaskError{
				Message: "invalid error report payload: " + err.Error(),
				Code:    "validation",
				Source:  WorkerType,
			}
		}

		decision := w.monitor.Decide(report.Failure, report.Attempt)
		if decision.AlertRequired {
			w.alert(ctx, report.Failure, decision)
		}
		return decision, nil
	})
}

// alert sends the ops notification; a notifier failure is logged, never
// propagated, so alerting cannot fail the classification itself.
func (w *Worker) alert(ctx context.Context, f Failure, d Decision) {
	body := f.Message
	for _, s := range d.Suggestions {
		body += "\n- " + s
	}
	err := w.notifier.Send(ctx, &notify.Message{
		Title: fmt.Sprintf("[%s] %s failure", d.Analysis.Severity, f.Source),
		Body:  body,
		Level: string(d.Analysis.Severity),
	})
	if err != nil {
		w.logger.Warn("alert dispatch failed", zap.Error(err))
	}
}
