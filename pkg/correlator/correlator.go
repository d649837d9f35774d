// Package correlator turns the fire-and-forget bridge channel into awaitable
// request/reply calls with a timeout.
package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eitatech/gatomia/pkg/bridge"
)

// Correlator pairs outbound requests with inbound replies by request id.
//
// Every request settles exactly once: by its reply, its timeout, a send
// failure, cancellation of its context, or Close. Settlement is decided by
// removal from the pending map, so the losing path always finds nothing to do.
type Correlator struct {
	channel        bridge.Channel
	clock          Clock
	newID          func() string
	defaultTimeout time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	pending     map[string]*pendingRequest
	closed      bool
	unsubscribe func()
}

type pendingRequest struct {
	msgType string
	timer   Timer
	settled chan outcome
}

type outcome struct {
	reply *bridge.Reply
	err   error
}

// New creates a Correlator listening for replies on ch.
func New(ch bridge.Channel, opts ...Option) *Correlator {
	c := &Correlator{
		channel:        ch,
		clock:          realClock{},
		newID:          newRequestID,
		defaultTimeout: DefaultTimeout,
		logger:         slog.Default(),
		pending:        make(map[string]*pendingRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = ch.Subscribe(c.handle)
	return c
}

// Correlate sends req tagged with a fresh request id and waits for the
// matching reply. A reply with status "error" is still returned as a reply;
// callers inspect Reply.Err.
func (c *Correlator) Correlate(ctx context.Context, req bridge.CorrelatedRequest, opts ...CallOption) (*bridge.Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := callConfig{timeout: c.defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := c.newID()
	msgType := req.MessageType()
	p := &pendingRequest{msgType: msgType, settled: make(chan outcome, 1)}

	// Register before sending so a fast reply always finds its waiter.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, dup := c.pending[id]; dup {
		c.mu.Unlock()
		return nil, fmt.Errorf("request id %s already in flight", id)
	}
	c.pending[id] = p
	p.timer = c.clock.AfterFunc(cfg.timeout, func() {
		if c.settle(id, outcome{err: &TimeoutError{RequestID: id, MessageType: msgType, After: cfg.timeout}}) {
			c.logger.Warn("correlated request timed out", "request_id", id, "type", msgType, "timeout", cfg.timeout)
		}
	})
	c.mu.Unlock()

	if err := c.channel.Send(ctx, req.WithRequestID(id)); err != nil {
		c.settle(id, outcome{err: fmt.Errorf("send %s: %w", msgType, err)})
	}

	select {
	case out := <-p.settled:
		return out.reply, out.err
	case <-ctx.Done():
		c.settle(id, outcome{err: ctx.Err()})
		out := <-p.settled
		return out.reply, out.err
	}
}

// settle resolves the request with id if it is still pending. It reports
// whether this call won.
func (c *Correlator) settle(id string, out outcome) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.settled <- out
	return true
}

func (c *Correlator) handle(msg bridge.Message) {
	reply, ok := msg.(bridge.Reply)
	if !ok {
		return
	}
	if !c.settle(reply.CorrelationID(), outcome{reply: &reply}) {
		// Duplicate or late delivery after timeout.
		c.logger.Debug("ignoring unmatched reply", "request_id", reply.CorrelationID())
	}
}

// Pending returns the number of requests awaiting a reply.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops listening for replies and fails every in-flight request with
// ErrClosed. It is safe to call more than once.
func (c *Correlator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	c.unsubscribe()
	for _, id := range ids {
		c.settle(id, outcome{err: ErrClosed})
	}
	return nil
}
