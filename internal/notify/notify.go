// Package notify delivers outbound messages to ops and client channels.
// Adapters share one interface so callers never care which transport is
// configured.
package notify

import "context"

// Message is a transport-neutral notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Level string `json:"level,omitempty"`
}

// Notifier sends a message to one configured destination.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

// Nop discards every message. Used when no notifier is configured.
type Nop struct{}

func (Nop) Send(context.Context, *Message) error { return nil }

// Multi fans a message out to every child notifier. The first error is
// returned after all children have been attempted.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg *Message) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
