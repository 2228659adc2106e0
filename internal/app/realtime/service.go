package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"scoresheet/internal/store"
	"scoresheet/internal/wire"

	"github.com/rs/zerolog/log"
)

// Storage is the slice of the store this service reads. Narrowed to an
// interface so tests can substitute fakes.
type Storage interface {
	GetSessionByID(ctx context.Context, id int64) (*store.Session, error)
	ListPlayersBySession(ctx context.Context, sessionID int64) ([]store.Player, error)
	ListTeamsBySession(ctx context.Context, sessionID int64) ([]store.Team, error)
	ListScoresBySession(ctx context.Context, sessionID int64) ([]store.ScoreRow, error)
	ListRecentEvents(ctx context.Context, sessionID int64, limit int) ([]store.SessionEvent, error)
	TouchSessionActivity(ctx context.Context, sessionID int64) error
	InsertEvent(ctx context.Context, sessionID int64, eventType string, eventData []byte, userID *int64) (int64, time.Time, error)
}

type Service struct {
	store       Storage
	eventsLimit int
}

func NewService(st Storage, eventsLimit int) *Service {
	if eventsLimit <= 0 {
		eventsLimit = 50
	}
	return &Service{store: st, eventsLimit: eventsLimit}
}

// SessionState reconstructs the full session view from normalized rows.
// Totals are always recomputed from raw score rows, never read from a cache.
func (s *Service) SessionState(ctx context.Context, sessionID int64, gameSlug string, caller Identity) (*wire.StateDocument, error) {
	sess, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	players, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	access := ResolveAccess(sess, players, caller)
	if access == wire.AccessDenied {
		if caller.Known() {
			return nil, ErrAccessDenied
		}
		return nil, ErrAuthRequired
	}

	slug := sess.GameSlug
	if gameSlug != "" {
		slug = gameSlug
	}
	rule := LookupGame(slug, sess.ScoringMode)

	scoreRows, err := s.store.ListScoresBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	scores := shapeScores(rule.Mode, scoreRows)
	totals := playerTotals(rule.Mode, scoreRows)

	snapshot := wire.SessionSnapshot{
		ID:           sess.ID,
		Name:         sess.Name,
		Status:       wire.SessionStatus(sess.Status),
		GameSlug:     sess.GameSlug,
		HostUserID:   sess.HostUserID,
		CurrentRound: sess.CurrentRound,
		ScoreTarget:  sess.ScoreTarget,
		AccessLevel:  access,
		Players:      make([]wire.Player, 0, len(players)),
		Scores:       scores,
	}
	for _, p := range players {
		snapshot.Players = append(snapshot.Players, wire.Player{
			ID:         p.ID,
			Name:       p.Name,
			UserID:     p.UserID,
			Position:   p.Position,
			TeamID:     p.TeamID,
			TotalScore: totals[p.ID],
		})
	}

	if rule.TeamBased {
		teams, err := s.store.ListTeamsBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			snapshot.Teams = append(snapshot.Teams, wire.Team{ID: t.ID, Name: t.Name})
		}
	}

	recent, err := s.store.ListRecentEvents(ctx, sessionID, s.eventsLimit)
	if err != nil {
		return nil, err
	}
	events := make([]wire.SessionEvent, 0, len(recent))
	// Storage order is newest-first; clients want chronological.
	for i := len(recent) - 1; i >= 0; i-- {
		ev := recent[i]
		events = append(events, wire.SessionEvent{
			ID:        ev.ID,
			EventType: ev.EventType,
			EventData: string(ev.EventData),
			UserID:    ev.UserID,
			CreatedAt: ev.CreatedAt,
		})
	}

	if err := s.store.TouchSessionActivity(ctx, sessionID); err != nil {
		log.Warn().Err(err).Int64("session_id", sessionID).Msg("touch session activity failed")
	}

	return &wire.StateDocument{
		Session:       snapshot,
		Events:        events,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		CurrentUserID: caller.UserID,
	}, nil
}

// AppendEvent records one side-channel event on the session log.
func (s *Service) AppendEvent(ctx context.Context, sessionID int64, caller Identity, sub wire.EventSubmission) (*wire.EventResult, error) {
	if sub.EventType == "" {
		return nil, ErrInvalidRequest
	}
	if _, err := s.store.GetSessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var data []byte
	if sub.EventData != nil {
		b, err := json.Marshal(sub.EventData)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		data = b
	}
	userID := sub.UserID
	if userID == nil {
		userID = caller.UserID
	}
	id, createdAt, err := s.store.InsertEvent(ctx, sessionID, sub.EventType, data, userID)
	if err != nil {
		return nil, err
	}
	return &wire.EventResult{
		Success:   true,
		EventID:   id,
		Timestamp: createdAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func shapeScores(mode wire.ScoringMode, rows []store.ScoreRow) wire.ScoreData {
	if mode == wire.ScoringCategories {
		cats := make(map[string]map[int64]int)
		for _, r := range rows {
			if r.CategoryID == nil {
				continue
			}
			m := cats[*r.CategoryID]
			if m == nil {
				m = make(map[int64]int)
				cats[*r.CategoryID] = m
			}
			m[r.PlayerID] = r.Score
		}
		return wire.ScoreData{Mode: mode, Categories: cats}
	}

	byRound := make(map[int]map[int64]int)
	for _, r := range rows {
		if r.RoundNumber == nil {
			continue
		}
		m := byRound[*r.RoundNumber]
		if m == nil {
			m = make(map[int64]int)
			byRound[*r.RoundNumber] = m
		}
		m[r.PlayerID] = r.Score
	}
	numbers := make([]int, 0, len(byRound))
	for n := range byRound {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	rounds := make([]wire.Round, 0, len(numbers))
	for _, n := range numbers {
		rounds = append(rounds, wire.Round{RoundNumber: n, Scores: byRound[n]})
	}
	return wire.ScoreData{Mode: wire.ScoringRounds, Rounds: rounds}
}

func playerTotals(mode wire.ScoringMode, rows []store.ScoreRow) map[int64]int {
	totals := make(map[int64]int)
	for _, r := range rows {
		switch mode {
		case wire.ScoringCategories:
			if r.CategoryID == nil {
				continue
			}
		default:
			if r.RoundNumber == nil {
				continue
			}
		}
		totals[r.PlayerID] += r.Score
	}
	return totals
}
