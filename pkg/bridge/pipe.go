package bridge

import (
	"context"
	"log/slog"
	"sync"
)

const defaultPipeBuffer = 256

// Endpoint is one end of an in-process pipe. Outbound messages are encoded to
// JSON before they cross, so the two sides never share memory. Inbound
// messages are delivered on a single goroutine, in send order, to listeners
// in registration order.
type Endpoint struct {
	name   string
	logger *slog.Logger
	peer   *Endpoint
	inbox  chan []byte

	mu        sync.RWMutex
	listeners []listenerEntry
	nextID    uint64

	closeOnce sync.Once
	done      chan struct{}
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// NewPipe returns two connected endpoints, conventionally the view side and
// the host side.
func NewPipe(logger *slog.Logger) (view *Endpoint, host *Endpoint) {
	if logger == nil {
		logger = slog.Default()
	}
	view = newEndpoint("view", logger)
	host = newEndpoint("host", logger)
	view.peer = host
	host.peer = view

	go view.run()
	go host.run()
	return view, host
}

func newEndpoint(name string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:   name,
		logger: logger.With("endpoint", name),
		inbox:  make(chan []byte, defaultPipeBuffer),
		done:   make(chan struct{}),
	}
}

// Name identifies the endpoint in logs.
func (e *Endpoint) Name() string {
	return e.name
}

// Send implements Channel.
func (e *Endpoint) Send(ctx context.Context, msg Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-e.done:
		return ErrChannelClosed
	case <-e.peer.done:
		return ErrChannelClosed
	default:
	}

	select {
	case e.peer.inbox <- data:
		return nil
	case <-e.done:
		return ErrChannelClosed
	case <-e.peer.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe implements Channel.
func (e *Endpoint) Subscribe(l Listener) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, entry := range e.listeners {
				if entry.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SendRaw hands pre-encoded envelope JSON to the other side. The receiving
// endpoint validates it like any other frame.
func (e *Endpoint) SendRaw(ctx context.Context, data []byte) error {
	frame := append([]byte(nil), data...)
	select {
	case e.peer.inbox <- frame:
		return nil
	case <-e.done:
		return ErrChannelClosed
	case <-e.peer.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops delivery on this endpoint. Messages still queued may be dropped
// and further sends in either direction fail with ErrChannelClosed.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	return nil
}

func (e *Endpoint) run() {
	for {
		select {
		case <-e.done:
			return
		case data := <-e.inbox:
			e.deliver(data)
		}
	}
}

func (e *Endpoint) deliver(data []byte) {
	msg, err := Unmarshal(data)
	if err != nil {
		e.logger.Warn("dropping malformed message", "error", err)
		return
	}

	e.mu.RLock()
	listeners := make([]Listener, len(e.listeners))
	for i, entry := range e.listeners {
		listeners[i] = entry.fn
	}
	e.mu.RUnlock()

	for _, l := range listeners {
		l(msg)
	}
}
