// Package sessionsync keeps a client's view of one shared game session
// fresh by polling the realtime endpoint with adaptive cadence: slower in
// the background, slower when nobody else can be writing, backed off and
// eventually circuit-broken under failure.
package sessionsync

import "sync"

// BackgroundMultiplier scales the base poll interval while the consumer is
// not visible.
const BackgroundMultiplier = 5

// Visibility is a point-in-time view of the consumer's foreground state.
// Visible tracks whether the surface is rendered at all; Active tracks
// input focus.
type Visibility struct {
	Visible bool
	Active  bool
}

type IntervalClass int

const (
	ClassForeground IntervalClass = iota
	ClassBackground
)

// VisibilityTracker fans visibility signals out to subscribers. The
// environment (browser bridge, TUI, test) feeds it via SetVisible/SetActive.
type VisibilityTracker struct {
	mu      sync.Mutex
	visible bool
	active  bool
	nextID  int
	subs    map[int]func(Visibility)
}

func NewVisibilityTracker() *VisibilityTracker {
	return &VisibilityTracker{
		visible: true,
		active:  true,
		subs:    make(map[int]func(Visibility)),
	}
}

func (t *VisibilityTracker) SetVisible(visible bool) {
	t.mu.Lock()
	changed := t.visible != visible
	t.visible = visible
	snap := Visibility{Visible: t.visible, Active: t.active}
	subs := t.snapshotSubs()
	t.mu.Unlock()
	if changed {
		for _, fn := range subs {
			fn(snap)
		}
	}
}

func (t *VisibilityTracker) SetActive(active bool) {
	t.mu.Lock()
	changed := t.active != active
	t.active = active
	snap := Visibility{Visible: t.visible, Active: t.active}
	subs := t.snapshotSubs()
	t.mu.Unlock()
	if changed {
		for _, fn := range subs {
			fn(snap)
		}
	}
}

func (t *VisibilityTracker) Snapshot() Visibility {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Visibility{Visible: t.visible, Active: t.active}
}

// Class maps the current state to an interval class; consumers multiply
// their base interval for ClassBackground.
func (t *VisibilityTracker) Class() IntervalClass {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.visible {
		return ClassBackground
	}
	return ClassForeground
}

// Subscribe registers fn for visibility changes and returns an unsubscribe
// func. Callers must unsubscribe on teardown so remounts do not leak
// listeners.
func (t *VisibilityTracker) Subscribe(fn func(Visibility)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// callers hold t.mu
func (t *VisibilityTracker) snapshotSubs() []func(Visibility) {
	out := make([]func(Visibility), 0, len(t.subs))
	for _, fn := range t.subs {
		out = append(out, fn)
	}
	return out
}
