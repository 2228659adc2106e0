package sessionsync

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
)

// ConnectionConfig parameterizes failure handling for one logical
// connection.
type ConnectionConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// OnError receives the failure and the new consecutive-error count.
	OnError func(err error, consecutive int)
	// OnReconnect fires on the first success after one or more failures.
	OnReconnect func()
}

// ConnectionManager counts consecutive failures, computes backoff delays,
// and trips a hard circuit breaker at the retry threshold. Once open, the
// breaker stays open until Reset, and callers must stop issuing requests.
type ConnectionManager struct {
	cfg   ConnectionConfig
	clock clockwork.Clock

	mu          sync.Mutex
	consecutive int
	lastErr     error
	open        bool
	retryTimer  clockwork.Timer
	rng         *rand.Rand
}

func NewConnectionManager(cfg ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		cfg:   cfg,
		clock: clock,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HandleError records one failure. Reaching MaxRetries opens the circuit.
func (m *ConnectionManager) HandleError(err error) {
	m.mu.Lock()
	m.consecutive++
	m.lastErr = err
	if m.consecutive >= m.cfg.MaxRetries {
		m.open = true
	}
	n := m.consecutive
	onError := m.cfg.OnError
	m.mu.Unlock()

	if onError != nil {
		onError(err, n)
	}
}

// HandleSuccess resets all error state and cancels any scheduled retry.
func (m *ConnectionManager) HandleSuccess() {
	m.mu.Lock()
	hadErrors := m.consecutive > 0 || m.open
	m.consecutive = 0
	m.lastErr = nil
	m.open = false
	m.stopRetryLocked()
	onReconnect := m.cfg.OnReconnect
	m.mu.Unlock()

	if hadErrors && onReconnect != nil {
		onReconnect()
	}
}

// Trip opens the circuit immediately, bypassing the retry budget. Used for
// failures that retrying cannot fix (authorization rejections).
func (m *ConnectionManager) Trip(err error) {
	m.mu.Lock()
	m.open = true
	m.lastErr = err
	if m.consecutive < m.cfg.MaxRetries {
		m.consecutive = m.cfg.MaxRetries
	}
	m.stopRetryLocked()
	m.mu.Unlock()
}

// CalculateDelay returns the backoff delay for the given attempt number:
// min(base*2^attempt, max) plus up to 10% jitter. The jitter spreads out
// retries from many clients that failed at the same instant.
func (m *ConnectionManager) CalculateDelay(attempt int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calculateDelayLocked(attempt)
}

func (m *ConnectionManager) calculateDelayLocked(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := m.cfg.BaseDelay << uint(attempt)
	if delay <= 0 || delay > m.cfg.MaxDelay {
		delay = m.cfg.MaxDelay
	}
	jitter := time.Duration(m.rng.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// ScheduleRetry runs fn after the current backoff delay. No-ops when the
// circuit is open or the retry budget is spent; returns whether a retry was
// scheduled.
func (m *ConnectionManager) ScheduleRetry(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open || m.consecutive >= m.cfg.MaxRetries {
		return false
	}
	m.stopRetryLocked()
	m.retryTimer = m.clock.AfterFunc(m.calculateDelayLocked(m.consecutive), fn)
	return true
}

// Reset force-clears all error state. This is the external escape hatch for
// an open circuit (visibility regained, session change, manual retry).
func (m *ConnectionManager) Reset() {
	m.mu.Lock()
	m.consecutive = 0
	m.lastErr = nil
	m.open = false
	m.stopRetryLocked()
	m.mu.Unlock()
}

func (m *ConnectionManager) ShouldRetry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.open && m.consecutive < m.cfg.MaxRetries
}

func (m *ConnectionManager) CircuitOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *ConnectionManager) ConsecutiveErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutive
}

func (m *ConnectionManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// callers hold m.mu
func (m *ConnectionManager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}
