package agent

import (
	"encoding/json"
	"time"
)

// Priority orders task scheduling.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// TaskStatus tracks a task's execution state.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskInFlight TaskStatus = "in-flight"
	TaskDone     TaskStatus = "done"
	TaskFailed   TaskStatus = "failed"
)

// Task is one unit of work addressed to a worker by type tag. The
// payload is opaque to the pipeline; only the target worker reads it.
// Metadata carries request context (thread, user, recipient) across
// every task in a chain.
type Task struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Payload     json.RawMessage   `json:"payload"`
	Priority    Priority          `json:"priority"`
	Status      TaskStatus        `json:"status"`
	TargetAgent string            `json:"target_agent"`
	Attempt     int               `json:"attempt"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TaskContext carries the execution context handed to a worker.
type TaskContext struct {
	RequestID string            `json:"request_id"`
	SessionID string            `json:"session_id"`
	Message   string            `json:"message,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TaskError is a structured worker failure, shaped for the error
// monitor's classification call.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Source  string `json:"source,omitempty"`
}

func (e *TaskError) Error() string { return e.Message }

// Result is the uniform outcome of a worker execution. Failures are
// carried in Error; exceptions never cross the worker boundary.
type Result struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    *TaskError      `json:"error,omitempty"`
	Metadata ResultMetadata  `json:"metadata"`
}

// ResultMetadata holds side-channel execution counters.
type ResultMetadata struct {
	ExecutionTime time.Duration `json:"execution_time"`
	ToolCalls     int           `json:"tool_calls,omitempty"`
}

// Metrics aggregates a worker's lifetime execution counters.
type Metrics struct {
	Executions int           `json:"executions"`
	Successes  int           `json:"successes"`
	Failures   int           `json:"failures"`
	AvgLatency time.Duration `json:"avg_latency"`
	ToolCalls  int           `json:"tool_calls"`
}

// Worker status labels.
const (
	StatusIdle    = "idle"
	StatusWorking = "working"
)
