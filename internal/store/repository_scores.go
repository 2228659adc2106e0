package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListScoresBySession(ctx context.Context, sessionID int64) ([]ScoreRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT sc.player_id, sc.round_number, sc.category_id, sc.score
		FROM scores sc
		JOIN session_players sp ON sp.id = sc.player_id
		WHERE sp.session_id = $1
		ORDER BY sc.round_number NULLS LAST, sc.category_id NULLS LAST, sc.player_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	out := make([]ScoreRow, 0, 16)
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.PlayerID, &r.RoundNumber, &r.CategoryID, &r.Score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRound writes one round's score rows, bumps the session round
// counter, and appends the round_added event in a single transaction.
// Score rows upsert on (player, round), so a resubmission of the same
// round replaces the cells instead of accumulating duplicates.
func (s *Store) InsertRound(ctx context.Context, sessionID int64, roundNumber int, scores map[int64]int, eventData []byte, userID *int64) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for playerID, score := range scores {
		if _, err := tx.Exec(ctx, `
			INSERT INTO scores (player_id, round_number, score)
			VALUES ($1, $2, $3)
			ON CONFLICT (player_id, round_number) WHERE round_number IS NOT NULL
			DO UPDATE SET score = EXCLUDED.score`, playerID, roundNumber, score); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, `
		UPDATE sessions
		SET current_round = $2, status = 'active', last_activity_at = now()
		WHERE id = $1`, sessionID, roundNumber)
	if err != nil {
		return fmt.Errorf("bump round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO session_events (session_id, event_type, event_data, user_id)
		VALUES ($1, 'round_added', $2, $3)`, sessionID, eventData, userID); err != nil {
		return fmt.Errorf("append round event: %w", err)
	}
	return tx.Commit(ctx)
}
