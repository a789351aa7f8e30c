package notify

import "context"

// Message defines a public type used by goIdentity APIs.
//
// Message instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages to account holders. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Func adapts a plain function to the [Notifier] interface.
type Func func(ctx context.Context, msg Message) error

func (f Func) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// NoOp discards every message.
type NoOp struct{}

func (NoOp) Send(context.Context, Message) error { return nil }
