package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// HandlerFunc handles one inbound message.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandlerRegistration represents a handler registration for message types.
type HandlerRegistration struct {
	MessageTypes []string
	Handler      HandlerFunc
	Name         string // For logging/debugging
}

// Dispatcher routes inbound messages to the handlers registered for their
// type. Handlers for a type run in registration order, followed by wildcard
// handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError determines if dispatch should continue when a handler fails
	ContinueOnError bool
}

type namedHandler struct {
	name    string
	handler HandlerFunc
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]namedHandler),
	}
}

// Register registers a handler for specific message types.
func (d *Dispatcher) Register(reg HandlerRegistration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	nh := namedHandler{name: reg.Name, handler: reg.Handler}
	for _, msgType := range reg.MessageTypes {
		d.handlers[msgType] = append(d.handlers[msgType], nh)
	}
}

// RegisterHandler is a convenience method to register a single handler.
func (d *Dispatcher) RegisterHandler(name string, handler HandlerFunc, msgTypes ...string) {
	d.Register(HandlerRegistration{Name: name, Handler: handler, MessageTypes: msgTypes})
}

// RegisterWildcard registers a handler for every message ("*").
func (d *Dispatcher) RegisterWildcard(name string, handler HandlerFunc) {
	d.RegisterHandler(name, handler, "*")
}

// Dispatch runs the handlers for msg. Without ContinueOnError it stops at the
// first failure; otherwise failures are collected into a *DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.mu.RLock()
	msgType := msg.MessageType()
	var handlers []namedHandler
	handlers = append(handlers, d.handlers[msgType]...)
	handlers = append(handlers, d.handlers["*"]...)
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, msg); err != nil {
			handlerErr := fmt.Errorf("handler %s failed for message %s: %w", nh.name, msgType, err)
			if !d.ContinueOnError {
				return handlerErr
			}
			errs = append(errs, handlerErr)
		}
	}

	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// Attach subscribes the dispatcher to ch. Handler failures are logged; they
// never reach the channel.
func (d *Dispatcher) Attach(ctx context.Context, ch Channel, logger *slog.Logger) (detach func()) {
	if logger == nil {
		logger = slog.Default()
	}
	return ch.Subscribe(func(msg Message) {
		if !d.HasHandlers(msg.MessageType()) {
			logger.Debug("no handler for message", "type", msg.MessageType())
			return
		}
		if err := d.Dispatch(ctx, msg); err != nil {
			logger.Error("message handling failed", "type", msg.MessageType(), "error", err)
		}
	})
}

// HasHandlers returns true if a handler would run for msgType.
func (d *Dispatcher) HasHandlers(msgType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.handlers[msgType]) > 0 || len(d.handlers["*"]) > 0
}

// DispatchError contains multiple errors from dispatch.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap returns the first error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}
