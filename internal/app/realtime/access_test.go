package realtime

import (
	"testing"

	"scoresheet/internal/store"
	"scoresheet/internal/wire"
)

func ptr[T any](v T) *T { return &v }

func TestResolveAccess(t *testing.T) {
	host := int64(1)
	member := int64(2)
	stranger := int64(99)

	players := []store.Player{
		{ID: 10, UserID: &host, Name: "Alice"},
		{ID: 11, UserID: &member, Name: "Bob"},
		{ID: 12, Name: "Guest seat"},
	}
	noGuestPlayers := []store.Player{
		{ID: 10, UserID: &host},
		{ID: 11, UserID: &member},
	}

	cases := []struct {
		name    string
		status  string
		players []store.Player
		caller  Identity
		want    wire.AccessLevel
	}{
		{"host", "active", players, Identity{UserID: &host}, wire.AccessHost},
		{"player", "active", players, Identity{UserID: &member}, wire.AccessPlayer},
		{"stranger joins waiting session", "waiting", players, Identity{UserID: &stranger}, wire.AccessCanJoin},
		{"anonymous joins waiting session", "waiting", players, Identity{}, wire.AccessCanJoin},
		{"anonymous takes guest seat", "active", players, Identity{}, wire.AccessGuestAllowed},
		{"anonymous without guest seat", "active", noGuestPlayers, Identity{}, wire.AccessDenied},
		{"stranger on active session", "active", players, Identity{UserID: &stranger}, wire.AccessDenied},
		{"host outranks waiting status", "waiting", players, Identity{UserID: &host}, wire.AccessHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &store.Session{ID: 456, Status: tc.status, HostUserID: &host}
			if got := ResolveAccess(sess, tc.players, tc.caller); got != tc.want {
				t.Fatalf("ResolveAccess = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveAccessNoHostSet(t *testing.T) {
	uid := int64(5)
	sess := &store.Session{ID: 1, Status: "active"}
	players := []store.Player{{ID: 1, UserID: &uid}}
	if got := ResolveAccess(sess, players, Identity{UserID: &uid}); got != wire.AccessPlayer {
		t.Fatalf("got %v, want player when session has no host", got)
	}
}
