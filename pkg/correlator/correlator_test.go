package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/domain/review"
)

// fakeChannel records sends and lets the test deliver inbound messages.
type fakeChannel struct {
	mu        sync.Mutex
	listeners map[int]bridge.Listener
	nextID    int
	sendErr   error
	sent      chan bridge.Message
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{listeners: make(map[int]bridge.Listener), sent: make(chan bridge.Message, 64)}
}

func (f *fakeChannel) Send(ctx context.Context, msg bridge.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent <- msg
	return nil
}

func (f *fakeChannel) Subscribe(l bridge.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = l
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeChannel) deliver(msg bridge.Message) {
	f.mu.Lock()
	ls := make([]bridge.Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(msg)
	}
}

func (f *fakeChannel) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeChannel) nextSent(t *testing.T) bridge.Message {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("nothing was sent")
		return nil
	}
}

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock    *manualClock
	deadline time.Duration
	fn       func()
	stopped  bool
	fired    bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, deadline: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.deadline <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

func (c *manualClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type result struct {
	reply *bridge.Reply
	err   error
}

func correlateAsync(c *Correlator, req bridge.CorrelatedRequest, opts ...CallOption) <-chan result {
	done := make(chan result, 1)
	go func() {
		reply, err := c.Correlate(context.Background(), req, opts...)
		done <- result{reply, err}
	}()
	return done
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("correlated call did not settle")
		return result{}
	}
}

func TestCorrelate_ReplyResolves(t *testing.T) {
	ch := newFakeChannel()
	clock := &manualClock{}
	c := New(ch, WithClock(clock))

	done := correlateAsync(c, bridge.ArchiveRequest{SpecID: "s1"})
	sent := ch.nextSent(t).(bridge.ArchiveRequest)
	if sent.RequestID == "" {
		t.Fatal("request id was not embedded")
	}

	ch.deliver(bridge.Reply{RequestID: sent.RequestID, Status: bridge.ReplyStatusSuccess})

	r := await(t, done)
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if r.reply.RequestID != sent.RequestID {
		t.Errorf("reply id = %s, want %s", r.reply.RequestID, sent.RequestID)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after reply", c.Pending())
	}
	if clock.active() != 0 {
		t.Errorf("timer still active after reply")
	}
}

func TestCorrelate_TimeoutRejects(t *testing.T) {
	ch := newFakeChannel()
	clock := &manualClock{}
	c := New(ch, WithClock(clock))

	done := correlateAsync(c, bridge.ArchiveRequest{SpecID: "s1"})
	sent := ch.nextSent(t).(bridge.ArchiveRequest)

	clock.Advance(DefaultTimeout - time.Millisecond)
	select {
	case <-done:
		t.Fatal("settled before the timeout elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	r := await(t, done)
	if !errors.Is(r.err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", r.err)
	}
	var timeoutErr *TimeoutError
	if !errors.As(r.err, &timeoutErr) || timeoutErr.RequestID != sent.RequestID {
		t.Errorf("unexpected timeout error: %v", r.err)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after timeout", c.Pending())
	}

	// A late reply must neither resolve anything nor panic.
	ch.deliver(bridge.Reply{RequestID: sent.RequestID, Status: bridge.ReplyStatusSuccess})
	if c.Pending() != 0 {
		t.Errorf("late reply changed pending count")
	}
}

func TestCorrelate_PerCallTimeout(t *testing.T) {
	ch := newFakeChannel()
	clock := &manualClock{}
	c := New(ch, WithClock(clock), WithDefaultTimeout(time.Minute))

	done := correlateAsync(c, bridge.ArchiveRequest{SpecID: "s1"}, WithTimeout(50*time.Millisecond))
	ch.nextSent(t)

	clock.Advance(50 * time.Millisecond)
	if r := await(t, done); !errors.Is(r.err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", r.err)
	}
}

func TestCorrelate_EmptySubmissionNeverSends(t *testing.T) {
	ch := newFakeChannel()
	c := New(ch, WithClock(&manualClock{}))

	_, err := c.Correlate(context.Background(), bridge.SubmitChangesRequest{SpecID: "s1"})
	if !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}

	select {
	case m := <-ch.sent:
		t.Fatalf("message sent for empty submission: %#v", m)
	default:
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d", c.Pending())
	}
}

func TestCorrelate_OutOfOrderReplies(t *testing.T) {
	ch := newFakeChannel()
	c := New(ch, WithClock(&manualClock{}))

	first := correlateAsync(c, bridge.ArchiveRequest{SpecID: "a"})
	firstSent := ch.nextSent(t).(bridge.ArchiveRequest)
	second := correlateAsync(c, bridge.UnarchiveRequest{SpecID: "b"})
	secondSent := ch.nextSent(t).(bridge.UnarchiveRequest)

	ch.deliver(bridge.Reply{RequestID: secondSent.RequestID, Status: bridge.ReplyStatusSuccess, Message: "b"})
	ch.deliver(bridge.Reply{RequestID: firstSent.RequestID, Status: bridge.ReplyStatusError, Message: "a"})

	if r := await(t, second); r.err != nil || r.reply.Message != "b" {
		t.Errorf("second got %+v, %v", r.reply, r.err)
	}
	r := await(t, first)
	if r.err != nil || r.reply.Message != "a" {
		t.Fatalf("first got %+v, %v", r.reply, r.err)
	}
	if !errors.Is(r.reply.Err(), bridge.ErrHostFailure) {
		t.Errorf("error reply should surface as ErrHostFailure")
	}
}

func TestCorrelate_IgnoresUnmatchedReplies(t *testing.T) {
	ch := newFakeChannel()
	c := New(ch, WithClock(&manualClock{}))

	done := correlateAsync(c, bridge.ArchiveRequest{SpecID: "s1"})
	sent := ch.nextSent(t).(bridge.ArchiveRequest)

	ch.deliver(bridge.Reply{RequestID: "someone-else", Status: bridge.ReplyStatusSuccess})
	ch.deliver(bridge.ReviewSpecsUpdate{})
	if c.Pending() != 1 {
		t.Fatalf("pending = %d after unmatched reply", c.Pending())
	}

	ch.deliver(bridge.Reply{RequestID: sent.RequestID, Status: bridge.ReplyStatusSuccess})
	ch.deliver(bridge.Reply{RequestID: sent.RequestID, Status: bridge.ReplyStatusSuccess})
	if r := await(t, done); r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
}

func TestCorrelate_SendFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.sendErr = bridge.ErrChannelClosed
	clock := &manualClock{}
	c := New(ch, WithClock(clock))

	title := "x"
	_, err := c.Correlate(context.Background(), bridge.SubmitChangesRequest{SpecID: "s1", Changes: review.SpecPatch{Title: &title}})
	if !errors.Is(err, bridge.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
	if c.Pending() != 0 || clock.active() != 0 {
		t.Errorf("send failure leaked pending=%d timers=%d", c.Pending(), clock.active())
	}
}

func TestCorrelate_ContextCancel(t *testing.T) {
	ch := newFakeChannel()
	c := New(ch, WithClock(&manualClock{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Correlate(ctx, bridge.ArchiveRequest{SpecID: "s1"})
		done <- err
	}()
	ch.nextSent(t)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not settle the call")
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after cancel", c.Pending())
	}
}

func TestCorrelator_Close(t *testing.T) {
	ch := newFakeChannel()
	c := New(ch, WithClock(&manualClock{}))

	done := correlateAsync(c, bridge.ArchiveRequest{SpecID: "s1"})
	ch.nextSent(t)

	_ = c.Close()
	_ = c.Close()

	if r := await(t, done); !errors.Is(r.err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", r.err)
	}
	if ch.listenerCount() != 0 {
		t.Error("listener still registered after Close")
	}
	if _, err := c.Correlate(context.Background(), bridge.ArchiveRequest{SpecID: "s1"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

// Reply and timeout race for every request; each must settle exactly once.
func TestCorrelate_ReplyTimeoutRace(t *testing.T) {
	ch := newFakeChannel()
	clock := &manualClock{}
	var seq atomic.Int64
	c := New(ch, WithClock(clock), WithIDGenerator(func() string {
		return fmt.Sprintf("req-%d", seq.Add(1))
	}))

	const n = 50
	results := make([]<-chan result, n)
	for i := 0; i < n; i++ {
		results[i] = correlateAsync(c, bridge.ArchiveRequest{SpecID: "s"})
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, ch.nextSent(t).(bridge.ArchiveRequest).RequestID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, id := range ids {
			ch.deliver(bridge.Reply{RequestID: id, Status: bridge.ReplyStatusSuccess})
		}
	}()
	go func() {
		defer wg.Done()
		clock.Advance(DefaultTimeout)
	}()
	wg.Wait()

	for i, done := range results {
		r := await(t, done)
		resolved := r.err == nil && r.reply != nil
		timedOut := errors.Is(r.err, ErrTimeout) && r.reply == nil
		if resolved == timedOut {
			t.Fatalf("request %d settled ambiguously: %+v, %v", i, r.reply, r.err)
		}
		select {
		case extra := <-done:
			t.Fatalf("request %d settled twice: %+v", i, extra)
		default:
		}
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d", c.Pending())
	}
}

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}

	if a, b := fallbackRequestID(time.Unix(0, 1)), fallbackRequestID(time.Unix(0, 1)); a == b {
		t.Errorf("fallback ids collided: %s", a)
	}
}
