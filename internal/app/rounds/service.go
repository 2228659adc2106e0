package rounds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scoresheet/internal/store"
	"scoresheet/internal/wire"
)

type Storage interface {
	GetSessionByID(ctx context.Context, id int64) (*store.Session, error)
	ListPlayersBySession(ctx context.Context, sessionID int64) ([]store.Player, error)
	InsertRound(ctx context.Context, sessionID int64, roundNumber int, scores map[int64]int, eventData []byte, userID *int64) error
}

type Service struct {
	store Storage
}

func NewService(st Storage) *Service {
	return &Service{store: st}
}

// Submit writes one complete round for the session. The round number is the
// session counter plus one; concurrent submitters race at the database and
// the last write wins, which is the accepted model here.
func (s *Service) Submit(ctx context.Context, sessionID int64, userID *int64, sub wire.RoundSubmission) (*wire.RoundResult, error) {
	if len(sub.Scores) == 0 {
		return nil, ErrInvalidRequest
	}
	sess, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	switch sess.Status {
	case string(wire.StatusCompleted), string(wire.StatusCancelled):
		return nil, ErrSessionClosed
	}

	players, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(players))
	for _, p := range players {
		known[p.ID] = true
	}
	scores := make(map[int64]int, len(sub.Scores))
	for _, ps := range sub.Scores {
		if !known[ps.PlayerID] {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, ps.PlayerID)
		}
		scores[ps.PlayerID] = ps.Score
	}

	roundNumber := sess.CurrentRound + 1
	eventData, err := json.Marshal(map[string]any{
		"round_number": roundNumber,
		"scores":       scores,
		"details":      sub.Details,
	})
	if err != nil {
		return nil, ErrInvalidRequest
	}
	if err := s.store.InsertRound(ctx, sessionID, roundNumber, scores, eventData, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &wire.RoundResult{
		Message:     "Round added",
		RoundNumber: roundNumber,
		NextRound:   roundNumber + 1,
	}, nil
}
