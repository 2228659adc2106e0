package store_test

import (
	"context"
	"testing"
	"time"

	"scoresheet/internal/store"
	"scoresheet/internal/testutil"
)

func seedSession(t *testing.T, st *store.Store) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	var sessionID int64
	err := st.Pool.QueryRow(ctx, `
		INSERT INTO sessions (name, status, game_slug, scoring_mode, host_user_id, current_round, code)
		VALUES ('Friday game', 'active', 'tarot', 'rounds', 1, 0, $1)
		RETURNING id`, store.NewCode()).Scan(&sessionID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	playerIDs := make([]int64, 0, 2)
	for i, name := range []string{"Alice", "Bob"} {
		var id int64
		err := st.Pool.QueryRow(ctx, `
			INSERT INTO session_players (session_id, user_id, name, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, sessionID, int64(i+1), name, i+1).Scan(&id)
		if err != nil {
			t.Fatalf("seed player %s: %v", name, err)
		}
		playerIDs = append(playerIDs, id)
	}
	return sessionID, playerIDs
}

func TestSessionRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sessionID, _ := seedSession(t, st)

	sess, err := st.GetSessionByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if sess.Name != "Friday game" || sess.GameSlug != "tarot" || sess.CurrentRound != 0 {
		t.Fatalf("session = %+v", sess)
	}

	got, err := st.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListPlayersBySession: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Alice" || got[1].Name != "Bob" {
		t.Fatalf("players = %+v", got)
	}

	if _, err := st.GetSessionByID(ctx, sessionID+999); err != store.ErrNotFound {
		t.Fatalf("missing session err = %v, want ErrNotFound", err)
	}
}

func TestInsertRoundTransaction(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sessionID, players := seedSession(t, st)
	uid := int64(1)

	scores := map[int64]int{players[0]: 80, players[1]: 70}
	if err := st.InsertRound(ctx, sessionID, 1, scores, []byte(`{"round_number":1}`), &uid); err != nil {
		t.Fatalf("InsertRound: %v", err)
	}

	sess, err := st.GetSessionByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if sess.CurrentRound != 1 {
		t.Fatalf("current_round = %d, want 1", sess.CurrentRound)
	}

	rows, err := st.ListScoresBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListScoresBySession: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("score rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.RoundNumber == nil || *r.RoundNumber != 1 {
			t.Fatalf("row = %+v", r)
		}
		if r.Score != scores[r.PlayerID] {
			t.Fatalf("player %d score = %d, want %d", r.PlayerID, r.Score, scores[r.PlayerID])
		}
	}

	events, err := st.ListRecentEvents(ctx, sessionID, 50)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "round_added" {
		t.Fatalf("events = %+v", events)
	}

	// A round for a missing session rolls back without writing anything.
	if err := st.InsertRound(ctx, sessionID+999, 1, scores, nil, nil); err != store.ErrNotFound {
		t.Fatalf("missing session err = %v, want ErrNotFound", err)
	}
}

func TestInsertRoundResubmitReplacesScores(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sessionID, players := seedSession(t, st)
	uid := int64(1)

	first := map[int64]int{players[0]: 40, players[1]: 30}
	if err := st.InsertRound(ctx, sessionID, 1, first, []byte(`{"round_number":1}`), &uid); err != nil {
		t.Fatalf("InsertRound: %v", err)
	}
	second := map[int64]int{players[0]: 50, players[1]: 35}
	if err := st.InsertRound(ctx, sessionID, 1, second, []byte(`{"round_number":1}`), &uid); err != nil {
		t.Fatalf("InsertRound resubmit: %v", err)
	}

	rows, err := st.ListScoresBySession(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListScoresBySession: %v", err)
	}
	// Last write wins: still one row per player, holding the second values.
	if len(rows) != 2 {
		t.Fatalf("score rows = %d, want 2", len(rows))
	}
	total := 0
	for _, r := range rows {
		if r.Score != second[r.PlayerID] {
			t.Fatalf("player %d score = %d, want %d", r.PlayerID, r.Score, second[r.PlayerID])
		}
		total += r.Score
	}
	if total != 85 {
		t.Fatalf("summed scores = %d, want 85", total)
	}
}

func TestEventLogOrderAndLimit(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sessionID, _ := seedSession(t, st)

	var lastID int64
	for i := 0; i < 5; i++ {
		id, createdAt, err := st.InsertEvent(ctx, sessionID, "reaction", []byte(`{"n":1}`), nil)
		if err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
		if id <= lastID {
			t.Fatalf("event ids not increasing: %d after %d", id, lastID)
		}
		if createdAt.IsZero() {
			t.Fatal("InsertEvent returned zero created_at")
		}
		lastID = id
	}

	events, err := st.ListRecentEvents(ctx, sessionID, 3)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].ID != lastID {
		t.Fatalf("first event id = %d, want newest %d", events[0].ID, lastID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].ID > events[i-1].ID {
			t.Fatal("events not newest-first")
		}
	}
}

func TestIdleSessionSweep(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sessionID, _ := seedSession(t, st)
	if _, err := st.Pool.Exec(ctx, `
		UPDATE sessions SET last_activity_at = now() - interval '3 hours' WHERE id = $1`, sessionID); err != nil {
		t.Fatalf("backdate activity: %v", err)
	}

	n, err := st.MarkIdleSessionsPaused(ctx, 2*time.Hour)
	if err != nil {
		t.Fatalf("MarkIdleSessionsPaused: %v", err)
	}
	if n != 1 {
		t.Fatalf("paused %d sessions, want 1", n)
	}
	sess, err := st.GetSessionByID(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if sess.Status != "paused" {
		t.Fatalf("status = %q, want paused", sess.Status)
	}

	// Touch revives the timestamp; a second sweep leaves it alone.
	if err := st.TouchSessionActivity(ctx, sessionID); err != nil {
		t.Fatalf("TouchSessionActivity: %v", err)
	}
	n, err = st.MarkIdleSessionsPaused(ctx, 2*time.Hour)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep paused %d, want 0", n)
	}
}
