package sessionsync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
	StatusReconnecting
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Description is the human-facing connection indicator text.
func (s Status) Description() string {
	switch s {
	case StatusConnecting:
		return "Connecting…"
	case StatusConnected:
		return "Live"
	case StatusDisconnected:
		return "Connection lost, retrying"
	case StatusReconnecting:
		return "Reconnecting"
	case StatusError:
		return "Connection failed"
	default:
		return "Unknown"
	}
}

// statusTransitions is the allowed-transition table. Anything not listed is
// dropped rather than applied.
var statusTransitions = map[Status][]Status{
	StatusConnecting:   {StatusConnected, StatusDisconnected, StatusError},
	StatusConnected:    {StatusConnecting, StatusDisconnected, StatusError},
	StatusDisconnected: {StatusConnecting, StatusConnected, StatusReconnecting, StatusError},
	StatusReconnecting: {StatusConnecting, StatusConnected, StatusDisconnected, StatusError},
	StatusError:        {StatusConnecting, StatusConnected},
}

func canTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// statusDebouncer applies transitions through a single debounce window so a
// one-poll blip never flickers the indicator. StatusConnecting is applied
// immediately; everything else waits out the delay and is superseded by any
// newer target.
type statusDebouncer struct {
	clock clockwork.Clock
	delay time.Duration
	apply func(Status)

	mu      sync.Mutex
	current Status
	target  Status
	pending clockwork.Timer
	stopped bool
}

func newStatusDebouncer(clock clockwork.Clock, delay time.Duration, initial Status, apply func(Status)) *statusDebouncer {
	return &statusDebouncer{
		clock:   clock,
		delay:   delay,
		apply:   apply,
		current: initial,
		target:  initial,
	}
}

func (d *statusDebouncer) Current() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *statusDebouncer) Set(next Status) {
	d.mu.Lock()
	if d.stopped || next == d.current && d.pending == nil {
		d.mu.Unlock()
		return
	}
	if next == d.current {
		// A pending transition elsewhere is superseded by staying put.
		d.cancelPendingLocked()
		d.target = next
		d.mu.Unlock()
		return
	}
	if !canTransition(d.current, next) {
		d.mu.Unlock()
		return
	}
	d.cancelPendingLocked()
	d.target = next
	if next == StatusConnecting {
		d.current = next
		apply := d.apply
		d.mu.Unlock()
		if apply != nil {
			apply(next)
		}
		return
	}
	d.pending = d.clock.AfterFunc(d.delay, func() { d.fire(next) })
	d.mu.Unlock()
}

func (d *statusDebouncer) fire(next Status) {
	d.mu.Lock()
	if d.stopped || d.target != next || d.current == next {
		d.mu.Unlock()
		return
	}
	d.current = next
	d.pending = nil
	apply := d.apply
	d.mu.Unlock()
	if apply != nil {
		apply(next)
	}
}

func (d *statusDebouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelPendingLocked()
	d.mu.Unlock()
}

// callers hold d.mu
func (d *statusDebouncer) cancelPendingLocked() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
