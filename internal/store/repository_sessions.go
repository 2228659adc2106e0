package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetSessionByID(ctx context.Context, id int64) (*Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, status, game_slug, scoring_mode, host_user_id,
		       current_round, score_target, code, last_activity_at, created_at
		FROM sessions
		WHERE id = $1`, id)
	var sess Session
	err := row.Scan(&sess.ID, &sess.Name, &sess.Status, &sess.GameSlug, &sess.ScoringMode,
		&sess.HostUserID, &sess.CurrentRound, &sess.ScoreTarget, &sess.Code,
		&sess.LastActivityAt, &sess.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &sess, nil
}

func (s *Store) ListPlayersBySession(ctx context.Context, sessionID int64) ([]Player, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, user_id, name, position, team_id
		FROM session_players
		WHERE session_id = $1
		ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	out := make([]Player, 0, 8)
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Name, &p.Position, &p.TeamID); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListTeamsBySession(ctx context.Context, sessionID int64) ([]Team, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, name
		FROM teams
		WHERE session_id = $1
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	out := make([]Team, 0, 2)
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TouchSessionActivity is best-effort from the caller's point of view: the
// read path logs and ignores a failure here.
func (s *Store) TouchSessionActivity(ctx context.Context, sessionID int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE sessions SET last_activity_at = now() WHERE id = $1`, sessionID)
	return err
}

// MarkIdleSessionsPaused pauses active sessions with no activity for the
// given duration. Returns how many rows changed.
func (s *Store) MarkIdleSessionsPaused(ctx context.Context, idleFor time.Duration) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE sessions
		SET status = 'paused'
		WHERE status = 'active' AND last_activity_at < now() - $1::interval`,
		idleFor.String())
	if err != nil {
		return 0, fmt.Errorf("pause idle sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
