package sessionsync

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type statusRecorder struct {
	mu      sync.Mutex
	applied []Status
}

func (r *statusRecorder) apply(s Status) {
	r.mu.Lock()
	r.applied = append(r.applied, s)
	r.mu.Unlock()
}

func (r *statusRecorder) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.applied...)
}

func (r *statusRecorder) waitLen(t *testing.T, n int) {
	t.Helper()
	waitFor(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.applied) >= n
	})
}

func TestStatusDescriptions(t *testing.T) {
	cases := map[Status]string{
		StatusConnecting:   "Connecting…",
		StatusConnected:    "Live",
		StatusDisconnected: "Connection lost, retrying",
		StatusReconnecting: "Reconnecting",
		StatusError:        "Connection failed",
	}
	for s, want := range cases {
		if got := s.Description(); got != want {
			t.Errorf("%s.Description() = %q, want %q", s, got, want)
		}
	}
}

func TestStatusDebouncerDelaysTransition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &statusRecorder{}
	d := newStatusDebouncer(clock, 300*time.Millisecond, StatusConnecting, rec.apply)

	d.Set(StatusConnected)
	if d.Current() != StatusConnecting {
		t.Fatal("transition applied before debounce window elapsed")
	}
	clock.Advance(300 * time.Millisecond)
	rec.waitLen(t, 1)
	if d.Current() != StatusConnected {
		t.Fatalf("current = %v after debounce, want connected", d.Current())
	}
}

func TestStatusDebouncerConnectingImmediate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &statusRecorder{}
	d := newStatusDebouncer(clock, 300*time.Millisecond, StatusConnected, rec.apply)

	d.Set(StatusConnecting)
	if d.Current() != StatusConnecting {
		t.Fatal("connecting was debounced, want immediate")
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != StatusConnecting {
		t.Fatalf("applied = %v", got)
	}
}

func TestStatusDebouncerSupersedesPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &statusRecorder{}
	d := newStatusDebouncer(clock, 300*time.Millisecond, StatusConnected, rec.apply)

	// A one-poll blip: disconnected, then connected again before the window
	// closes. Neither transition should surface.
	d.Set(StatusDisconnected)
	clock.Advance(100 * time.Millisecond)
	d.Set(StatusConnected)
	clock.Advance(time.Second)

	if d.Current() != StatusConnected {
		t.Fatalf("current = %v, want connected throughout", d.Current())
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("blip surfaced transitions %v", got)
	}
}

func TestStatusDebouncerRejectsInvalidTransition(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := newStatusDebouncer(clock, time.Millisecond, StatusConnecting, nil)

	// connecting -> reconnecting is not in the table.
	d.Set(StatusReconnecting)
	clock.Advance(time.Second)
	if d.Current() != StatusConnecting {
		t.Fatalf("invalid transition applied, current = %v", d.Current())
	}
}

func TestStatusDebouncerStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &statusRecorder{}
	d := newStatusDebouncer(clock, 300*time.Millisecond, StatusConnecting, rec.apply)

	d.Set(StatusConnected)
	d.Stop()
	clock.Advance(time.Second)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("transition applied after Stop: %v", got)
	}
	d.Set(StatusError)
	if d.Current() != StatusConnecting {
		t.Fatal("Set mutated state after Stop")
	}
}
