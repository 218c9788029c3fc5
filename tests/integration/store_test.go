package integration

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/rfp"
	pgstore "github.com/kestrel-aero/charterdesk/internal/store"
)

func TestConversationStateStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	dsn, cleanup, err := startPostgres(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	store, err := pgstore.New(dsn, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Truncate(time.Second)

	t.Run("missing thread reads as nil", func(t *testing.T) {
		state, err := store.Get(ctx, "nope")
		if err != nil {
			t.Fatal(err)
		}
		if state != nil {
			t.Errorf("got %+v", state)
		}
	})

	t.Run("set then get round trip", func(t *testing.T) {
		state := rfp.NewState("t1", "u1", now)
		state.Data.Departure = "JFK"
		state.Data.Arrival = "LAX"
		state.Data.Passengers = 3
		state.AppendTurn("user", "JFK to LAX for 3", now)

		if err := store.Set(ctx, "t1", state); err != nil {
			t.Fatal(err)
		}
		got, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Data != state.Data {
			t.Errorf("got %+v", got)
		}
		if len(got.ConversationHistory) != 1 {
			t.Errorf("history: %d turns", len(got.ConversationHistory))
		}
	})

	t.Run("whole state replacement", func(t *testing.T) {
		state, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		state.Data.Passengers = 5
		if err := store.Set(ctx, "t1", state); err != nil {
			t.Fatal(err)
		}
		got, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Data.Passengers != 5 {
			t.Errorf("passengers: got %d", got.Data.Passengers)
		}
	})

	t.Run("get by user most recent first", func(t *testing.T) {
		second := rfp.NewState("t2", "u1", now)
		if err := store.Set(ctx, "t2", second); err != nil {
			t.Fatal(err)
		}
		other := rfp.NewState("t3", "u2", now)
		if err := store.Set(ctx, "t3", other); err != nil {
			t.Fatal(err)
		}

		states, err := store.GetByUser(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if len(states) != 2 {
			t.Fatalf("got %d states", len(states))
		}
		if states[0].ThreadID != "t2" {
			t.Errorf("most recent first: got %s", states[0].ThreadID)
		}
	})

	t.Run("cleanup keeps fresh states", func(t *testing.T) {
		removed, err := store.Cleanup(ctx, 30)
		if err != nil {
			t.Fatal(err)
		}
		if removed != 0 {
			t.Errorf("fresh states removed: %d", removed)
		}
		if state, _ := store.Get(ctx, "t1"); state == nil {
			t.Error("t1 should survive the sweep")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(ctx, "t1"); err != nil {
			t.Fatal(err)
		}
		state, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if state != nil {
			t.Error("t1 should be gone")
		}
		// Deleting again is not an error.
		if err := store.Delete(ctx, "t1"); err != nil {
			t.Fatal(err)
		}
	})
}
