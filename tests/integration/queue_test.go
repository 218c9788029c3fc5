package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/orchestrator"
)

func TestRedisQueueRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url, cleanup, err := startRedis(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	queue, err := orchestrator.NewRedisQueue(url, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer queue.Close()

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	tasks := queue.Subscribe(subCtx, "flight-search")

	// The listener tails the stream from "now"; give it a beat to start
	// before publishing.
	time.Sleep(500 * time.Millisecond)

	payload, _ := json.Marshal(map[string]string{"departure": "JFK", "arrival": "LAX"})
	sent := &agent.Task{
		ID:          "task-42",
		Type:        "flight-search",
		Payload:     payload,
		Priority:    agent.PriorityHigh,
		Status:      agent.TaskPending,
		TargetAgent: "flight-search",
		Attempt:     0,
		CreatedAt:   time.Now().UTC(),
	}
	if err := queue.Publish(ctx, sent); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-tasks:
		if got.ID != sent.ID || got.TargetAgent != sent.TargetAgent {
			t.Errorf("got %+v", got)
		}
		if got.Priority != agent.PriorityHigh {
			t.Errorf("priority: got %s", got.Priority)
		}
		if string(got.Payload) != string(payload) {
			t.Errorf("payload: got %s", got.Payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("task never arrived")
	}
}

func TestRedisQueueTargetIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url, cleanup, err := startRedis(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	queue, err := orchestrator.NewRedisQueue(url, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer queue.Close()

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	lookups := queue.Subscribe(subCtx, "client-lookup")
	searches := queue.Subscribe(subCtx, "flight-search")
	time.Sleep(500 * time.Millisecond)

	if err := queue.Publish(ctx, &agent.Task{
		ID: "only-search", TargetAgent: "flight-search",
		Payload: json.RawMessage(`{}`), Priority: agent.PriorityNormal,
		Status: agent.TaskPending, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-searches:
		if got.ID != "only-search" {
			t.Errorf("got %s", got.ID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search task never arrived")
	}

	select {
	case got := <-lookups:
		t.Errorf("lookup stream should stay empty, got %+v", got)
	case <-time.After(2 * time.Second):
	}
}
