// Package resilience implements an explicit circuit breaker: a named guard
// that stops sending calls to a failing dependency for a cool-down period
// once a failure-rate threshold is crossed within a rolling window.
//
// The breaker is a standalone component rather than middleware buried in a
// client, so its closed/open/half-open transitions can be unit-tested by
// driving Allow/RecordSuccess/RecordFailure directly.
package resilience

import (
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	// Closed: calls flow through; outcomes are recorded in the window.
	Closed State = iota
	// Open: calls fail fast without touching the dependency.
	Open
	// HalfOpen: the cool-down elapsed and a single probe call is in flight.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config tunes a breaker.
type Config struct {
	// Window is the number of most recent calls considered for the failure
	// rate.
	Window int
	// FailureThreshold opens the breaker when the failure rate over the
	// window reaches it (0..1].
	FailureThreshold float64
	// MinCalls is the minimum number of recorded calls before the rate is
	// evaluated, so one early failure cannot open an idle breaker.
	MinCalls int
	// OpenTimeout is the cool-down before a half-open probe is allowed.
	OpenTimeout time.Duration
}

// DefaultConfig mirrors the settings used for the shipping provider.
func DefaultConfig() Config {
	return Config{
		Window:           10,
		FailureThreshold: 0.5,
		MinCalls:         4,
		OpenTimeout:      10 * time.Second,
	}
}

// StateChange is invoked outside the breaker lock after every transition.
type StateChange func(name string, from, to State)

// Breaker tracks call outcomes for one named dependency. All methods are
// safe for concurrent use; callers never need external locking.
type Breaker struct {
	name     string
	cfg      Config
	now      func() time.Time
	onChange StateChange

	mu       sync.Mutex
	state    State
	window   []bool // true = failure
	idx      int
	filled   int
	openedAt time.Time
	probing  bool
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithClock injects a clock, used by tests to step through the cool-down.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange registers a transition callback, e.g. to publish breaker
// events to a monitoring topic.
func WithStateChange(fn StateChange) BreakerOption {
	return func(b *Breaker) { b.onChange = fn }
}

func NewBreaker(name string, cfg Config, opts ...BreakerOption) *Breaker {
	if cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		state:  Closed,
		window: make([]bool, cfg.Window),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// Allow reports whether a call may proceed. While open it returns false
// until the cool-down elapses, then admits exactly one half-open probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()

	switch b.state {
	case Closed:
		b.mu.Unlock()
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			b.mu.Unlock()
			return false
		}
		change := b.setStateLocked(HalfOpen)
		b.probing = true
		b.mu.Unlock()
		b.notify(change)
		return true
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return false
		}
		b.probing = true
		b.mu.Unlock()
		return true
	}
	b.mu.Unlock()
	return false
}

// RecordSuccess records a successful call. A half-open probe success closes
// the breaker and resets the window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var change *transition
	if b.state == HalfOpen {
		change = b.setStateLocked(Closed)
		b.resetWindowLocked()
	} else {
		b.recordLocked(false)
	}
	b.mu.Unlock()
	b.notify(change)
}

// RecordFailure records a failed call. A half-open probe failure reopens the
// breaker; in closed state the rolling failure rate is re-evaluated.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var change *transition
	switch b.state {
	case HalfOpen:
		change = b.setStateLocked(Open)
		b.openedAt = b.now()
	case Closed:
		b.recordLocked(true)
		if b.filled >= b.cfg.MinCalls && b.failureRateLocked() >= b.cfg.FailureThreshold {
			change = b.setStateLocked(Open)
			b.openedAt = b.now()
		}
	}
	b.mu.Unlock()
	b.notify(change)
}

// CurrentState returns the state without admitting a probe.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view for monitoring endpoints.
type Snapshot struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Calls       int       `json:"calls"`
	Failures    int       `json:"failures"`
	FailureRate float64   `json:"failureRate"`
	OpenedAt    time.Time `json:"openedAt,omitempty"`
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	s := Snapshot{
		Name:     b.name,
		State:    b.state.String(),
		Calls:    b.filled,
		Failures: failures,
	}
	if b.filled > 0 {
		s.FailureRate = float64(failures) / float64(b.filled)
	}
	if b.state == Open {
		s.OpenedAt = b.openedAt
	}
	return s
}

type transition struct{ from, to State }

func (b *Breaker) setStateLocked(to State) *transition {
	if b.state == to {
		return nil
	}
	tr := &transition{from: b.state, to: to}
	b.state = to
	if to != HalfOpen {
		b.probing = false
	}
	return tr
}

func (b *Breaker) notify(tr *transition) {
	if tr != nil && b.onChange != nil {
		b.onChange(b.name, tr.from, tr.to)
	}
}

func (b *Breaker) recordLocked(failure bool) {
	b.window[b.idx] = failure
	b.idx = (b.idx + 1) % b.cfg.Window
	if b.filled < b.cfg.Window {
		b.filled++
	}
}

func (b *Breaker) resetWindowLocked() {
	b.idx = 0
	b.filled = 0
}

func (b *Breaker) failureRateLocked() float64 {
	if b.filled == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	return float64(failures) / float64(b.filled)
}
