package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker is the uniform lifecycle every pipeline worker implements.
// Execute never propagates a panic or raw error: the Base wrapper
// converts both into a failed Result.
type Worker interface {
	Type() string
	Initialize(ctx context.Context) error
	Execute(ctx context.Context, tc *TaskContext) *Result
	Metrics() Metrics
	Status() string
}

// Base provides the shared execution wrapper and metrics bookkeeping.
// Concrete workers embed it and run their work through Run.
type Base struct {
	workerType string
	logger     *zap.Logger

	mu      sync.Mutex
	status  string
	metrics Metrics
}

// NewBase creates the embedded worker core.
func NewBase(workerType string, logger *zap.Logger) *Base {
	return &Base{workerType: workerType, status: StatusIdle, logger: logger}
}

func (b *Base) Type() string { return b.workerType }

// Initialize is idempotent setup; workers with real setup override it.
func (b *Base) Initialize(context.Context) error { return nil }

func (b *Base) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Base) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// RecordToolCall bumps the worker's tool-call counter.
func (b *Base) RecordToolCall() {
	b.mu.Lock()
	b.metrics.ToolCalls++
	b.mu.Unlock()
}

// Run executes fn under the worker contract: timing, panic recovery,
// error-to-Result conversion, and metrics update. The returned Result
// is never nil.
func (b *Base) Run(ctx context.Context, tc *TaskContext, fn func(context.Context, *TaskContext) (any, error)) (result *Result) {
	start := time.Now()

	b.mu.Lock()
	b.status = StatusWorking
	b.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("worker panic recovered",
				zap.String("worker", b.workerType),
				zap.Any("panic", r))
			result = &Result{
				Success: false,
				Error: &TaskError{
					Message: fmt.Sprintf("panic: %v", r),
					Source:  b.workerType,
				},
			}
		}
		result.Metadata.ExecutionTime = time.Since(start)
		b.record(result)
	}()

	out, err := fn(ctx, tc)
	if err != nil {
		te, ok := err.(*TaskError)
		if !ok {
			te = &TaskError{Message: err.Error(), Source: b.workerType}
		}
		b.logger.Warn("worker execution failed",
			zap.String("worker", b.workerType),
			zap.String("error", te.Message))
		return &Result{Success: false, Error: te}
	}

	var data json.RawMessage
	if out != nil {
		data, err = json.Marshal(out)
		if err != nil {
			return &Result{
				Success: false,
				Error:   &TaskError{Message: "encode result: " + err.Error(), Source: b.workerType},
			}
		}
	}
	return &Result{Success: true, Data: data}
}

// record folds one execution into the running metrics, keeping a
// running-average latency.
func (b *Base) record(r *Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = StatusIdle
	n := b.metrics.Executions
	b.metrics.AvgLatency = time.Duration(
		(int64(b.metrics.AvgLatency)*int64(n) + int64(r.Metadata.ExecutionTime)) / int64(n+1))
	b.metrics.Executions++
	if r.Success {
		b.metrics.Successes++
	} else {
		b.metrics.Failures++
	}
	r.Metadata.ToolCalls = b.metrics.ToolCalls
}
