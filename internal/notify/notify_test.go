package notify

import (
	"context"
	"errors"
	"testing"
)

type recorder struct {
	sent []*Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg *Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestMultiFansOutToAll(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("down")}
	c := &recorder{}

	err := Multi{a, b, c}.Send(context.Background(), &Message{Title: "alert"})
	if err == nil || err.Error() != "down" {
		t.Errorf("expected first child error, got %v", err)
	}
	for i, r := range []*recorder{a, b, c} {
		if len(r.sent) != 1 {
			t.Errorf("child %d: got %d sends, want 1", i, len(r.sent))
		}
	}
}

func TestNopAcceptsEverything(t *testing.T) {
	if err := (Nop{}).Send(context.Background(), &Message{}); err != nil {
		t.Fatal(err)
	}
}
