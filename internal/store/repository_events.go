package store

import (
	"context"
	"fmt"
	"time"
)

// ListRecentEvents returns at most limit events, newest first. Callers that
// want chronological order reverse the slice themselves.
func (s *Store) ListRecentEvents(ctx context.Context, sessionID int64, limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, event_type, event_data, user_id, created_at
		FROM session_events
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]SessionEvent, 0, limit)
	for rows.Next() {
		var ev SessionEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.EventData, &ev.UserID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, sessionID int64, eventType string, eventData []byte, userID *int64) (int64, time.Time, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO session_events (session_id, event_type, event_data, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, sessionID, eventType, eventData, userID)
	var id int64
	var createdAt time.Time
	if err := row.Scan(&id, &createdAt); err != nil {
		return 0, time.Time{}, fmt.Errorf("insert event: %w", err)
	}
	return id, createdAt, nil
}
