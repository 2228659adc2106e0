package realtime

import (
	"scoresheet/internal/store"
	"scoresheet/internal/wire"
)

// Identity is the caller as resolved by the transport layer. A nil UserID
// means an anonymous (guest) caller.
type Identity struct {
	UserID *int64
}

func (id Identity) Known() bool { return id.UserID != nil }

// ResolveAccess classifies a caller against a session. Rules are checked in
// priority order; the first match wins.
func ResolveAccess(sess *store.Session, players []store.Player, caller Identity) wire.AccessLevel {
	if caller.Known() && sess.HostUserID != nil && *caller.UserID == *sess.HostUserID {
		return wire.AccessHost
	}
	if caller.Known() {
		for _, p := range players {
			if p.UserID != nil && *p.UserID == *caller.UserID {
				return wire.AccessPlayer
			}
		}
	}
	if sess.Status == string(wire.StatusWaiting) {
		return wire.AccessCanJoin
	}
	if !caller.Known() && hasAnonymousSlot(players) {
		return wire.AccessGuestAllowed
	}
	return wire.AccessDenied
}

func hasAnonymousSlot(players []store.Player) bool {
	for _, p := range players {
		if p.UserID == nil {
			return true
		}
	}
	return false
}
