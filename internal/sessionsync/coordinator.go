package sessionsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"scoresheet/internal/store"
	"scoresheet/internal/wire"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config parameterizes one Coordinator. Zero values get sensible defaults.
type Config struct {
	BaseURL   string
	SessionID int64
	GameSlug  string
	// UserID is the caller identity forwarded as X-User-ID; nil polls
	// anonymously.
	UserID *int64

	BaseInterval   time.Duration // default 2s
	LocalInterval  time.Duration // default 30s, sessions with no remote writers
	ErrorInterval  time.Duration // default 30s, circuit open
	IdleAfter      time.Duration // default 30s without recorded activity
	FetchTimeout   time.Duration // default 8s
	StatusDebounce time.Duration // default 300ms

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	HTTPClient *http.Client
	Clock      clockwork.Clock

	// OnChange fires whenever the exposed state changes: a new snapshot was
	// applied or the connection status moved. Never fires after Close.
	OnChange func(State)
}

// State is the coordinator's exposed view. Session keeps its identity
// across polls that return unchanged data, so consumers can use pointer
// equality to skip re-renders.
type State struct {
	Session       *wire.SessionSnapshot
	Events        []wire.SessionEvent
	CurrentUserID *int64
	Status        Status
	StatusText    string
	Connected     bool
	Err           error
	LastUpdate    time.Time
}

// Coordinator is the top-level sync orchestrator consumed by UI code. It
// owns a VisibilityTracker, a ConnectionManager, and a PollingEngine, and
// reconciles every poll response into one de-duplicated state view.
type Coordinator struct {
	cfg    Config
	clock  clockwork.Clock
	client *http.Client

	vis    *VisibilityTracker
	conn   *ConnectionManager
	engine *PollingEngine
	status *statusDebouncer

	rngMu sync.Mutex
	rng   *rand.Rand

	// cbMu serializes OnChange invocations against Close.
	cbMu sync.Mutex

	mu            sync.Mutex
	active        bool
	session       *wire.SessionSnapshot
	events        []wire.SessionEvent
	currentUserID *int64
	lastDigest    string
	lastUpdate    time.Time
	lastActivity  time.Time
	lastErr       error
	wasVisible    bool
	unsubVis      func()
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = 2 * time.Second
	}
	if cfg.LocalInterval <= 0 {
		cfg.LocalInterval = 30 * time.Second
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = 30 * time.Second
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 8 * time.Second
	}
	if cfg.StatusDebounce <= 0 {
		cfg.StatusDebounce = 300 * time.Millisecond
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	c := &Coordinator{
		cfg:        cfg,
		clock:      clock,
		client:     client,
		vis:        NewVisibilityTracker(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		wasVisible: true,
	}
	c.conn = NewConnectionManager(ConnectionConfig{
		MaxRetries:  cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		OnError:     c.onConnError,
		OnReconnect: c.onReconnect,
	}, clock)
	c.status = newStatusDebouncer(clock, cfg.StatusDebounce, StatusConnecting, c.onStatusApplied)
	c.engine = NewPollingEngine(c.effectiveInterval, c.poll, c.onPollError, clock)
	return c
}

// Start begins polling; the first fetch happens immediately.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.lastActivity = c.clock.Now()
	c.mu.Unlock()

	unsub := c.vis.Subscribe(c.onVisibilityChange)
	c.mu.Lock()
	c.unsubVis = unsub
	c.mu.Unlock()

	c.status.Set(StatusConnecting)
	c.engine.Start()
}

// Close tears the coordinator down: timers, debounce, visibility listener,
// and the in-flight fetch are all cancelled, and no state write or callback
// happens afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	unsub := c.unsubVis
	c.unsubVis = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.engine.Stop()
	c.conn.Reset()
	c.status.Stop()

	// An OnChange that observed active before the flip still holds cbMu.
	// Taking it here waits that callback out, so none runs after Close
	// returns.
	c.cbMu.Lock()
	c.cbMu.Unlock()
}

// State returns the current exposed view.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status.Current()
	return State{
		Session:       c.session,
		Events:        c.events,
		CurrentUserID: c.currentUserID,
		Status:        status,
		StatusText:    status.Description(),
		Connected:     status == StatusConnected,
		Err:           c.lastErr,
		LastUpdate:    c.lastUpdate,
	}
}

// Visibility exposes the tracker so the embedding environment can feed
// focus/blur signals in.
func (c *Coordinator) Visibility() *VisibilityTracker { return c.vis }

// RecordActivity marks the consumer as recently active, keeping the poll
// cadence at its fast setting.
func (c *Coordinator) RecordActivity() {
	c.mu.Lock()
	c.lastActivity = c.clock.Now()
	c.mu.Unlock()
}

// Refresh is the manual-retry escape hatch: clears backoff state (including
// an open circuit) and polls immediately.
func (c *Coordinator) Refresh() {
	c.conn.Reset()
	c.status.Set(StatusConnecting)
	c.engine.Kick()
}

// SetSession switches the coordinator to another session: all cached state
// and backoff state is dropped and a fetch is issued immediately.
func (c *Coordinator) SetSession(sessionID int64, gameSlug string) {
	c.mu.Lock()
	c.cfg.SessionID = sessionID
	c.cfg.GameSlug = gameSlug
	c.session = nil
	c.events = nil
	c.currentUserID = nil
	c.lastDigest = ""
	c.lastUpdate = time.Time{}
	c.lastErr = nil
	c.mu.Unlock()

	c.conn.Reset()
	c.status.Set(StatusConnecting)
	c.engine.Kick()
}

// AddRound submits one round of scores, then forces an out-of-cycle fetch
// so the submitter sees their own write without waiting for the schedule.
func (c *Coordinator) AddRound(ctx context.Context, scores []wire.PlayerScore, details map[string]any) error {
	if len(scores) == 0 {
		return errors.New("no scores to submit")
	}
	metricRoundSubmits.Add(1)
	body, err := json.Marshal(wire.RoundSubmission{Scores: scores, Details: details})
	if err != nil {
		return err
	}
	if err := c.post(ctx, c.roundsURL(), body); err != nil {
		return err
	}
	c.RecordActivity()
	c.engine.Kick()
	return nil
}

// SendEvent appends a side-channel event to the session log.
func (c *Coordinator) SendEvent(ctx context.Context, eventType string, data map[string]any) error {
	if eventType == "" {
		return errors.New("event type required")
	}
	body, err := json.Marshal(wire.EventSubmission{EventType: eventType, EventData: data, UserID: c.cfg.UserID})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/api/sessions/%d/events", c.baseURL(), c.sessionID())
	if err := c.post(ctx, u, body); err != nil {
		return err
	}
	c.engine.Kick()
	return nil
}

// poll is one scheduled cycle. With the circuit open it issues no request
// at all; only an external reset (Refresh, SetSession, visibility regain)
// resumes fetching.
func (c *Coordinator) poll(ctx context.Context) error {
	if !c.isActive() {
		return nil
	}
	if !c.conn.ShouldRetry() {
		return nil
	}
	metricPollTotal.Add(1)

	doc, err := c.fetchState(ctx)
	if err != nil {
		c.handleFetchFailure(err)
		return err
	}
	c.applyDocument(doc)
	c.conn.HandleSuccess()
	return nil
}

func (c *Coordinator) fetchState(ctx context.Context) (*wire.StateDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/api/sessions/%d/realtime", c.baseURL(), c.sessionID())
	if slug := c.gameSlug(); slug != "" {
		u += "?gameSlug=" + url.QueryEscape(slug)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Poll-ID", store.NewCode())
	if uid := c.cfg.UserID; uid != nil {
		req.Header.Set("X-User-ID", strconv.FormatInt(*uid, 10))
	}
	c.mu.Lock()
	lastUpdate := c.lastUpdate
	c.mu.Unlock()
	if !lastUpdate.IsZero() {
		req.Header.Set("X-Last-Update", lastUpdate.UTC().Format(time.RFC3339Nano))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeHTTPError(resp)
	}
	var doc wire.StateDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}
	return &doc, nil
}

func (c *Coordinator) applyDocument(doc *wire.StateDocument) {
	digest := Digest(doc)

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if digest == c.lastDigest {
		c.lastErr = nil
		c.mu.Unlock()
		metricPollDedupTotal.Add(1)
		c.status.Set(StatusConnected)
		return
	}
	c.session = &doc.Session
	c.events = doc.Events
	c.currentUserID = doc.CurrentUserID
	c.lastDigest = digest
	c.lastUpdate = c.clock.Now()
	c.lastErr = nil
	c.mu.Unlock()

	c.status.Set(StatusConnected)
	c.notifyChange()
}

// handleFetchFailure classifies a failed poll. Stale session data is kept
// on purpose: showing the last known standings beats blanking the sheet.
func (c *Coordinator) handleFetchFailure(err error) {
	metricPollFailedTotal.Add(1)

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.NonRetryable() {
		metricCircuitOpen.Add(1)
		c.conn.Trip(err)
		c.setError(err)
		c.status.Set(StatusError)
		return
	}
	c.setError(err)
	c.conn.HandleError(err)
}

func (c *Coordinator) onConnError(err error, consecutive int) {
	if !c.isActive() {
		return
	}
	if !c.conn.ShouldRetry() {
		metricCircuitOpen.Add(1)
		c.status.Set(StatusError)
	} else if consecutive == 1 {
		c.status.Set(StatusDisconnected)
	} else {
		c.status.Set(StatusReconnecting)
	}
	log.Debug().Err(err).Int("consecutive", consecutive).Msg("poll failed")
}

func (c *Coordinator) onReconnect() {
	log.Debug().Msg("connection restored")
}

func (c *Coordinator) onStatusApplied(s Status) {
	c.notifyChange()
}

func (c *Coordinator) onPollError(err error) {
	log.Debug().Err(err).Msg("poll cycle error")
}

func (c *Coordinator) onVisibilityChange(v Visibility) {
	c.mu.Lock()
	cameBack := v.Visible && !c.wasVisible
	c.wasVisible = v.Visible
	active := c.active
	c.mu.Unlock()
	if !active {
		return
	}
	if cameBack {
		// Visibility regain is one of the external circuit resets.
		c.conn.Reset()
		c.RecordActivity()
		c.engine.Kick()
	}
}

// effectiveInterval derives the next poll delay from circuit state,
// visibility, session locality, and activity recency. Never a fixed
// constant: every value carries ±5% jitter and a 1s floor.
func (c *Coordinator) effectiveInterval() time.Duration {
	base := c.cfg.BaseInterval
	var d time.Duration
	switch {
	case !c.conn.ShouldRetry():
		d = c.cfg.ErrorInterval
	case c.conn.ConsecutiveErrors() > 0:
		// Below the circuit threshold, failed polls back off exponentially
		// instead of hammering at the base cadence.
		d = c.conn.CalculateDelay(c.conn.ConsecutiveErrors())
	case c.vis.Class() == ClassBackground:
		d = base * BackgroundMultiplier
	case c.isLocalSession():
		d = c.cfg.LocalInterval
	case c.isIdle():
		d = base * 2
	default:
		d = base
	}
	d = c.jitter(d)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// isLocalSession reports whether every player belongs to the same (or no)
// user identity, meaning no remote party can be writing concurrently. The
// slow poll itself is what eventually detects a second user joining.
func (c *Coordinator) isLocalSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || len(c.session.Players) == 0 {
		return false
	}
	var owner *int64
	for _, p := range c.session.Players {
		if p.UserID == nil {
			continue
		}
		if owner == nil {
			owner = p.UserID
			continue
		}
		if *owner != *p.UserID {
			return false
		}
	}
	return true
}

func (c *Coordinator) isIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock.Now().Sub(c.lastActivity) > c.cfg.IdleAfter
}

func (c *Coordinator) jitter(d time.Duration) time.Duration {
	c.rngMu.Lock()
	f := c.rng.Float64()
	c.rngMu.Unlock()
	return d + time.Duration((f*2-1)*0.05*float64(d))
}

func (c *Coordinator) post(ctx context.Context, u string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid := c.cfg.UserID; uid != nil {
		req.Header.Set("X-User-ID", strconv.FormatInt(*uid, 10))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeHTTPError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Coordinator) roundsURL() string {
	if slug := c.gameSlug(); slug != "" {
		return fmt.Sprintf("%s/api/games/%s/sessions/%d/rounds", c.baseURL(), url.PathEscape(slug), c.sessionID())
	}
	return fmt.Sprintf("%s/api/sessions/%d/rounds", c.baseURL(), c.sessionID())
}

func (c *Coordinator) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

func (c *Coordinator) sessionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.SessionID
}

func (c *Coordinator) gameSlug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.GameSlug
}

func (c *Coordinator) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) setError(err error) {
	c.mu.Lock()
	if c.active {
		c.lastErr = err
	}
	c.mu.Unlock()
}

func (c *Coordinator) notifyChange() {
	if c.cfg.OnChange == nil {
		return
	}
	// The active check and the callback must stay under one lock: otherwise
	// a poll racing Close could pass the check and fire after teardown.
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if !c.isActive() {
		return
	}
	c.cfg.OnChange(c.State())
}

func decodeHTTPError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error}
}
