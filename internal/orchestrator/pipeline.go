package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/errmon"
	"github.com/kestrel-aero/charterdesk/internal/notify"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
	"github.com/kestrel-aero/charterdesk/internal/workers"
)

// Pipeline consumes tasks from the queue and runs them against the
// registered workers, applying the error monitor's retry and alerting
// decisions to every failure.
type Pipeline struct {
	queue    Queue
	registry *agent.Registry
	monitor  *errmon.Monitor
	notifier notify.Notifier
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewPipeline wires the consumers. A nil notifier disables alert
// delivery but never decision making.
func NewPipeline(queue Queue, registry *agent.Registry, monitor *errmon.Monitor, notifier notify.Notifier, logger *zap.Logger) *Pipeline {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Pipeline{
		queue:    queue,
		registry: registry,
		monitor:  monitor,
		notifier: notifier,
		logger:   logger,
	}
}

// Start launches one consumer per registered worker type. Cancel the
// context to stop; Wait blocks until all consumers drain.
func (p *Pipeline) Start(ctx context.Context) {
	for _, workerType := range p.registry.Types() {
		p.wg.Add(1)
		go func(tag string) {
			defer p.wg.Done()
			p.consume(ctx, tag)
		}(workerType)
	}
}

// Wait blocks until every consumer has exited.
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) consume(ctx context.Context, workerType string) {
	worker, ok := p.registry.Get(workerType)
	if !ok {
		return
	}
	p.logger.Info("pipeline consumer started", zap.String("worker", workerType))

	for task := range p.queue.Subscribe(ctx, workerType) {
		p.execute(ctx, worker, task)
	}
}

// execute runs one task and applies the failure policy: transient
// failures re-enter the queue after backoff, terminal ones are logged
// with recovery suggestions and alerted when required.
func (p *Pipeline) execute(ctx context.Context, worker agent.Worker, task *agent.Task) {
	task.Status = agent.TaskInFlight
	meta := map[string]string{"priority": string(task.Priority)}
	for k, v := range task.Metadata {
		meta[k] = v
	}
	result := worker.Execute(ctx, &agent.TaskContext{
		RequestID: task.ID,
		Payload:   task.Payload,
		Metadata:  meta,
	})

	if result.Success {
		task.Status = agent.TaskDone
		p.logger.Info("task done",
			zap.String("id", task.ID),
			zap.String("worker", task.TargetAgent),
			zap.Duration("took", result.Metadata.ExecutionTime))
		p.advance(ctx, task, result)
		return
	}

	attempt := task.Attempt + 1
	decision := p.monitor.Decide(errmon.Failure{
		Message: result.Error.Message,
		Code:    result.Error.Code,
		Source:  result.Error.Source,
	}, attempt)

	if decision.AlertRequired {
		p.alert(ctx, task, decision)
	}

	if decision.Retry {
		p.requeue(ctx, task, attempt, decision.RetryDelay)
		return
	}

	task.Status = agent.TaskFailed
	p.logger.Error("task failed terminally",
		zap.String("id", task.ID),
		zap.String("worker", task.TargetAgent),
		zap.Int("attempts", attempt),
		zap.String("error", result.Error.Message),
		zap.Strings("suggestions", decision.Suggestions))
}

// advance publishes the follow-on task for results that feed another
// worker: flight-search quotes feed proposal analysis, and a ranked
// proposal feeds communication. A chaining failure never fails the
// finished task; it is logged and the chain stops.
func (p *Pipeline) advance(ctx context.Context, task *agent.Task, result *agent.Result) {
	next, err := p.followUp(task, result)
	if err != nil {
		p.logger.Error("follow-on task build failed",
			zap.String("id", task.ID),
			zap.String("worker", task.TargetAgent),
			zap.Error(err))
		return
	}
	if next == nil {
		return
	}
	if err := p.queue.Publish(ctx, next); err != nil {
		p.logger.Error("follow-on publish failed",
			zap.String("id", next.ID),
			zap.String("worker", next.TargetAgent),
			zap.Error(err))
	}
}

func (p *Pipeline) followUp(task *agent.Task, result *agent.Result) (*agent.Task, error) {
	switch task.TargetAgent {
	case workers.FlightSearchType:
		var request rfp.Data
		if err := json.Unmarshal(task.Payload, &request); err != nil {
			return nil, fmt.Errorf("decode search request: %w", err)
		}
		var search workers.FlightSearchResult
		if err := json.Unmarshal(result.Data, &search); err != nil {
			return nil, fmt.Errorf("decode search result: %w", err)
		}
		if len(search.Quotes) == 0 {
			return nil, nil
		}
		return chainTask(task, workers.ProposalType,
			workers.ProposalRequest{Request: request, Quotes: search.Quotes})

	case workers.ProposalType:
		var req workers.ProposalRequest
		if err := json.Unmarshal(task.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode proposal request: %w", err)
		}
		var proposal workers.ProposalResult
		if err := json.Unmarshal(result.Data, &proposal); err != nil {
			return nil, fmt.Errorf("decode proposal result: %w", err)
		}
		recipient := task.Metadata["recipient"]
		if recipient == "" {
			return nil, fmt.Errorf("no recipient for proposal delivery")
		}
		return chainTask(task, workers.CommunicationType, workers.CommunicationRequest{
			Recipient: recipient,
			Request:   &req.Request,
			Proposal:  &proposal,
		})
	}
	return nil, nil
}

// chainTask addresses a fresh task to the next worker, inheriting the
// parent's priority and metadata.
func chainTask(parent *agent.Task, target string, payload any) (*agent.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", target, err)
	}
	return &agent.Task{
		ID:          uuid.New().String(),
		Type:        target,
		Payload:     raw,
		Priority:    parent.Priority,
		Status:      agent.TaskPending,
		TargetAgent: target,
		Metadata:    parent.Metadata,
		CreatedAt:   time.Now(),
	}, nil
}

// requeue re-publishes the task with a bumped attempt count after the
// backoff delay.
func (p *Pipeline) requeue(ctx context.Context, task *agent.Task, attempt int, delay time.Duration) {
	retry := *task
	retry.Attempt = attempt
	retry.Status = agent.TaskPending

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := p.queue.Publish(ctx, &retry); err != nil {
			p.logger.Error("retry publish failed",
				zap.String("id", retry.ID), zap.Error(err))
		}
	}()
}

func (p *Pipeline) alert(ctx context.Context, task *agent.Task, d errmon.Decision) {
	body := d.Analysis.Message
	for _, s := range d.Suggestions {
		body += "\n- " + s
	}
	err := p.notifier.Send(ctx, &notify.Message{
		Title: "[" + string(d.Analysis.Severity) + "] " + task.TargetAgent + " failure",
		Body:  body,
		Level: string(d.Analysis.Severity),
	})
	if err != nil {
		p.logger.Warn("alert dispatch failed", zap.Error(err))
	}
}
