package client

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 10 * time.Second
)

// State is the subscriber's position in its connection lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Subscriber drives one transport against one view: connect, apply events
// while open, and on any drop reconnect after an exponentially growing
// delay. The backoff doubles from one second, caps at ten, and resets once
// a connection opens. It only stops when the context is cancelled.
type Subscriber struct {
	transport Transport
	view      *View
	clock     clockwork.Clock
	state     atomic.Int32
}

func NewSubscriber(transport Transport, view *View, clock clockwork.Clock) *Subscriber {
	return &Subscriber{
		transport: transport,
		view:      view,
		clock:     clock,
	}
}

// State reports the current lifecycle state.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Run blocks until ctx is cancelled, maintaining the live subscription and
// merging every received event into the view.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		s.state.Store(int32(StateConnecting))
		events, err := s.transport.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.state.Store(int32(StateClosed))
				return
			}
			slog.Debug("Subscription connect failed", "error", err, "retry_in", backoff)
			if !s.wait(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		s.state.Store(int32(StateOpen))
		backoff = initialBackoff

		for event := range events {
			if err := s.view.ApplyEvent(ctx, event); err != nil {
				// The store is temporarily unreachable; the next event or
				// reconnect repeats the catch-up.
				slog.Warn("Failed to apply event", "type", event.Type, "error", err)
			}
		}

		if ctx.Err() != nil {
			s.state.Store(int32(StateClosed))
			return
		}
		slog.Debug("Subscription dropped", "retry_in", backoff)
		if !s.wait(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}

// wait sleeps for d or until cancellation; returns false when cancelled.
func (s *Subscriber) wait(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		s.state.Store(int32(StateClosed))
		return false
	}
}
