// Package orchestrator routes inbound messages: conversational turns go
// to the dialogue flow, completed requests fan out as tasks to the
// downstream workers over the queue.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/intent"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
	"github.com/kestrel-aero/charterdesk/internal/workers"
)

// WorkerType is the orchestrator's own pipeline tag.
const WorkerType = "task-orchestrator"

// Classifier labels an utterance given recent conversation turns.
type Classifier interface {
	Classify(ctx context.Context, utterance string, recent []rfp.Turn) intent.Classification
}

// Reply is the orchestrator's answer to one inbound message.
type Reply struct {
	Text     string         `json:"text"`
	Label    string         `json:"label"`
	Complete bool           `json:"complete"`
	Priority agent.Priority `json:"priority,omitempty"`
	Tasks    []*agent.Task  `json:"tasks,omitempty"`
}

// Orchestrator drives conversations and emits downstream tasks.
type Orchestrator struct {
	*agent.Base
	flow       *rfp.Flow
	store      rfp.StateStore
	classifier Classifier
	queue      Queue
	logger     *zap.Logger
	now        func() time.Time
}

// New wires the orchestrator. The queue may be nil in conversational
// only deployments; completed requests are then returned but not
// dispatched.
func New(flow *rfp.Flow, store rfp.StateStore, classifier Classifier, queue Queue, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Base:       agent.NewBase(WorkerType, logger),
		flow:       flow,
		store:      store,
		classifier: classifier,
		queue:      queue,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the time source for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Execute adapts HandleMessage to the worker contract so the
// orchestrator can sit in the same registry as the workers it feeds.
func (o *Orchestrator) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return o.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		userID := tc.Metadata["user_id"]
		return o.HandleMessage(ctx, tc.SessionID, userID, tc.Message)
	})
}

// HandleMessage classifies the message and routes it. Conversational
// labels drive the dialogue flow; a completed request additionally fans
// out downstream tasks.
func (o *Orchestrator) HandleMessage(ctx context.Context, threadID, userID, text string) (*Reply, error) {
	verdict := o.classifier.Classify(ctx, text, o.recentTurns(ctx, threadID))
	o.logger.Info("message classified",
		zap.String("thread", threadID),
		zap.String("label", verdict.Label),
		zap.Float64("confidence", verdict.Confidence))

	switch verdict.Label {
	case intent.LabelCancelRequest:
		if err := o.flow.Reset(ctx, threadID); err != nil {
			return nil, fmt.Errorf("reset thread: %w", err)
		}
		return &Reply{
			Text:  "No problem, I've cancelled that request. Let me know when you'd like to plan another trip.",
			Label: verdict.Label,
		}, nil

	case intent.LabelStatusInquiry:
		return o.status(ctx, threadID, verdict.Label)
	}

	turn, err := o.flow.HandleTurn(ctx, threadID, userID, text)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Text: turn.Reply, Label: verdict.Label, Complete: turn.Complete}
	if turn.Complete {
		priority := Urgency(turn.State.Data.DepartureDate, o.now())
		reply.Priority = priority
		reply.Tasks, err = o.dispatch(ctx, turn.State, priority)
		if err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// status reports where an in-flight request stands.
func (o *Orchestrator) status(ctx context.Context, threadID, label string) (*Reply, error) {
	state, err := o.store.Get(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		return &Reply{
			Text:  "I don't have an active request for this conversation yet. Tell me about the trip you'd like to charter.",
			Label: label,
		}, nil
	}
	if state.Complete() {
		return &Reply{
			Text:     "Your request is complete and out with our operators. We'll be in touch with options shortly.",
			Label:    label,
			Complete: true,
		}, nil
	}
	return &Reply{
		Text: fmt.Sprintf("We're still putting your request together. Collected so far: %v. Still needed: %v.",
			state.CompletedFields, state.MissingFields),
		Label: label,
	}, nil
}

// dispatch synthesizes one task per downstream concern. Client lookup
// only runs when a client name is known; flight search always runs.
// The metadata travels with every follow-on task the pipeline chains,
// so the communication worker knows who to deliver to.
func (o *Orchestrator) dispatch(ctx context.Context, state *rfp.State, priority agent.Priority) ([]*agent.Task, error) {
	var tasks []*agent.Task
	meta := map[string]string{
		"thread_id": state.ThreadID,
		"user_id":   state.UserID,
		"recipient": state.UserID,
	}

	if state.Data.ClientName != "" {
		task, err := o.newTask(workers.ClientLookupType, priority, meta,
			workers.ClientLookupRequest{ClientName: state.Data.ClientName})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	task, err := o.newTask(workers.FlightSearchType, priority, meta, state.Data)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, task)

	if o.queue == nil {
		return tasks, nil
	}
	for _, t := range tasks {
		if err := o.queue.Publish(ctx, t); err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", t.TargetAgent, err)
		}
	}
	return tasks, nil
}

func (o *Orchestrator) newTask(target string, priority agent.Priority, meta map[string]string, payload any) (*agent.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", target, err)
	}
	return &agent.Task{
		ID:          uuid.New().String(),
		Type:        target,
		Payload:     raw,
		Priority:    priority,
		Status:      agent.TaskPending,
		TargetAgent: target,
		Metadata:    meta,
		CreatedAt:   o.now(),
	}, nil
}

// recentTurns pulls conversation context for classification. A load
// failure degrades to no context rather than blocking the turn.
func (o *Orchestrator) recentTurns(ctx context.Context, threadID string) []rfp.Turn {
	state, err := o.store.Get(ctx, threadID)
	if err != nil || state == nil {
		return nil
	}
	return state.ConversationHistory
}

// Urgency derives scheduling priority from days until departure. The
// same value labels the request for users, so scheduling and messaging
// never disagree.
func Urgency(departureDate string, now time.Time) agent.Priority {
	d, err := time.Parse("2006-01-02", departureDate)
	if err != nil {
		return agent.PriorityNormal
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(d.Sub(today).Hours() / 24)
	switch {
	case days <= 1:
		return agent.PriorityUrgent
	case days <= 3:
		return agent.PriorityHigh
	case days <= 7:
		return agent.PriorityNormal
	default:
		return agent.PriorityLow
	}
}
