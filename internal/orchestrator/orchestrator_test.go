package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/intent"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
	"github.com/kestrel-aero/charterdesk/internal/workers"
)

var testNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

type memStore struct {
	mu     sync.Mutex
	states map[string]*rfp.State
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*rfp.State)}
}

func (s *memStore) Get(_ context.Context, threadID string) (*rfp.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[threadID], nil
}

func (s *memStore) Set(_ context.Context, threadID string, state *rfp.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[threadID] = state
	return nil
}

func (s *memStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, threadID)
	return nil
}

type fixedClassifier struct {
	label string
}

func (c fixedClassifier) Classify(context.Context, string, []rfp.Turn) intent.Classification {
	return intent.Classification{Label: c.label, Confidence: 0.9}
}

type recordQueue struct {
	mu        sync.Mutex
	published []*agent.Task
}

func (q *recordQueue) Publish(_ context.Context, task *agent.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, task)
	return nil
}

func (q *recordQueue) Subscribe(context.Context, string) <-chan *agent.Task {
	ch := make(chan *agent.Task)
	close(ch)
	return ch
}

func (q *recordQueue) Close() error { return nil }

func (q *recordQueue) tasks() []*agent.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*agent.Task(nil), q.published...)
}

func newTestOrchestrator(label string) (*Orchestrator, *memStore, *recordQueue) {
	store := newMemStore()
	queue := &recordQueue{}
	flow := rfp.NewFlow(store, zap.NewNop())
	flow.SetClock(func() time.Time { return testNow })
	o := New(flow, store, fixedClassifier{label: label}, queue, zap.NewNop())
	o.SetClock(func() time.Time { return testNow })
	return o, store, queue
}

func TestUrgencyLadder(t *testing.T) {
	cases := []struct {
		date string
		want agent.Priority
	}{
		{"2026-03-10", agent.PriorityUrgent},
		{"2026-03-11", agent.PriorityUrgent},
		{"2026-03-13", agent.PriorityHigh},
		{"2026-03-17", agent.PriorityNormal},
		{"2026-03-25", agent.PriorityLow},
		{"not-a-date", agent.PriorityNormal},
	}
	for _, tc := range cases {
		if got := Urgency(tc.date, testNow); got != tc.want {
			t.Errorf("Urgency(%q): got %s, want %s", tc.date, got, tc.want)
		}
	}
}

func TestCompletedRequestDispatchesFlightSearch(t *testing.T) {
	o, _, queue := newTestOrchestrator(intent.LabelCreateRequest)

	reply, err := o.HandleMessage(context.Background(), "t1", "u1",
		"LAX to SFO tomorrow for 3 people, no preference")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Complete {
		t.Fatalf("expected completion, got reply %q", reply.Text)
	}
	if reply.Priority != agent.PriorityUrgent {
		t.Errorf("departing tomorrow should be urgent, got %s", reply.Priority)
	}

	tasks := queue.tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected one task without a client name, got %d", len(tasks))
	}
	if tasks[0].TargetAgent != workers.FlightSearchType {
		t.Errorf("target: got %s", tasks[0].TargetAgent)
	}
	if tasks[0].Priority != agent.PriorityUrgent {
		t.Errorf("task priority: got %s", tasks[0].Priority)
	}
	if tasks[0].Status != agent.TaskPending || tasks[0].ID == "" {
		t.Errorf("task not initialized: %+v", tasks[0])
	}
	if tasks[0].Metadata["recipient"] != "u1" || tasks[0].Metadata["thread_id"] != "t1" {
		t.Errorf("task metadata should carry delivery context, got %v", tasks[0].Metadata)
	}
}

func TestKnownClientAddsLookupTask(t *testing.T) {
	o, store, queue := newTestOrchestrator(intent.LabelCreateRequest)

	seed := rfp.NewState("t1", "u1", testNow)
	seed.Data.ClientName = "Alexandra Reeves"
	if err := store.Set(context.Background(), "t1", seed); err != nil {
		t.Fatal(err)
	}

	reply, err := o.HandleMessage(context.Background(), "t1", "u1",
		"LAX to SFO tomorrow for 3 people, no preference")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Complete {
		t.Fatalf("expected completion, got %q", reply.Text)
	}

	tasks := queue.tasks()
	if len(tasks) != 2 {
		t.Fatalf("expected lookup + search, got %d tasks", len(tasks))
	}
	if tasks[0].TargetAgent != workers.ClientLookupType {
		t.Errorf("first task: got %s", tasks[0].TargetAgent)
	}
	if tasks[1].TargetAgent != workers.FlightSearchType {
		t.Errorf("second task: got %s", tasks[1].TargetAgent)
	}
}

func TestIncompleteTurnEmitsNoTasks(t *testing.T) {
	o, _, queue := newTestOrchestrator(intent.LabelCreateRequest)

	reply, err := o.HandleMessage(context.Background(), "t1", "u1", "JFK to LAX")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Complete {
		t.Fatal("route alone should not complete the request")
	}
	if len(queue.tasks()) != 0 {
		t.Errorf("no tasks should be published mid-conversation")
	}
}

func TestCancelResetsThread(t *testing.T) {
	o, store, _ := newTestOrchestrator(intent.LabelCreateRequest)
	if _, err := o.HandleMessage(context.Background(), "t1", "u1", "JFK to LAX"); err != nil {
		t.Fatal(err)
	}

	o.classifier = fixedClassifier{label: intent.LabelCancelRequest}
	reply, err := o.HandleMessage(context.Background(), "t1", "u1", "actually cancel that")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "cancelled") {
		t.Errorf("reply should confirm cancellation: %q", reply.Text)
	}

	state, err := store.Get(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Error("cancel should hard-delete the thread state")
	}
}

func TestStatusInquiry(t *testing.T) {
	o, _, _ := newTestOrchestrator(intent.LabelStatusInquiry)

	reply, err := o.HandleMessage(context.Background(), "fresh", "u1", "where's my quote?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "active request") {
		t.Errorf("no-state status reply: %q", reply.Text)
	}

	// Partial state reports progress instead of re-running the flow.
	o2, store, queue := newTestOrchestrator(intent.LabelCreateRequest)
	if _, err := o2.HandleMessage(context.Background(), "t2", "u1", "JFK to LAX"); err != nil {
		t.Fatal(err)
	}
	o2.classifier = fixedClassifier{label: intent.LabelStatusInquiry}
	reply, err = o2.HandleMessage(context.Background(), "t2", "u1", "status?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "Still needed") {
		t.Errorf("partial status reply: %q", reply.Text)
	}
	if len(queue.tasks()) != 0 {
		t.Error("status inquiry must not dispatch tasks")
	}
	state, _ := store.Get(context.Background(), "t2")
	turns := len(state.ConversationHistory)
	if turns != 2 {
		t.Errorf("status inquiry must not append turns, got %d", turns)
	}
}
