package bridge

import "context"

// Listener receives every inbound message of a channel. Listeners filter by
// type themselves.
type Listener func(Message)

// Channel is one side of the view/host message pipe.
type Channel interface {
	// Send serializes msg and hands it to the other side. It does not wait
	// for the message to be handled.
	Send(ctx context.Context, msg Message) error

	// Subscribe registers l for all inbound messages. The returned function
	// removes the registration and is safe to call more than once.
	Subscribe(l Listener) (unsubscribe func())
}
