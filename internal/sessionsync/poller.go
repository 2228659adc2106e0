package sessionsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// PollingEngine repeatedly invokes an update func, waiting intervalFn
// between completions rather than on a fixed-rate timer, so a slow network
// can never stack overlapping requests. The first invocation happens
// immediately on Start.
type PollingEngine struct {
	clock      clockwork.Clock
	intervalFn func() time.Duration
	onUpdate   func(ctx context.Context) error
	onError    func(error)

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	cancel   context.CancelFunc
	kickCh   chan struct{}
	inFlight atomic.Bool
}

func NewPollingEngine(intervalFn func() time.Duration, onUpdate func(ctx context.Context) error, onError func(error), clock clockwork.Clock) *PollingEngine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PollingEngine{
		clock:      clock,
		intervalFn: intervalFn,
		onUpdate:   onUpdate,
		onError:    onError,
		kickCh:     make(chan struct{}, 1),
	}
}

func (e *PollingEngine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	stop := make(chan struct{})
	e.stopCh = stop
	e.mu.Unlock()

	go e.loop(ctx, stop)
}

// Stop cancels the pending timer and aborts any in-flight update context.
// Safe to call more than once.
func (e *PollingEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.cancel()
	e.mu.Unlock()
}

// Kick requests an out-of-cycle invocation before the current interval
// elapses. Coalesces when a kick is already pending.
func (e *PollingEngine) Kick() {
	select {
	case e.kickCh <- struct{}{}:
	default:
	}
}

func (e *PollingEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *PollingEngine) loop(ctx context.Context, stop <-chan struct{}) {
	for {
		e.runOnce(ctx)
		timer := e.clock.NewTimer(e.intervalFn())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-e.kickCh:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

func (e *PollingEngine) runOnce(ctx context.Context) {
	// In-flight guard: a cycle that is still settling suppresses the next.
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)
	if err := e.onUpdate(ctx); err != nil && e.onError != nil {
		e.onError(err)
	}
}
