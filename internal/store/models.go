package store

import "time"

type Session struct {
	ID             int64
	Name           string
	Status         string
	GameSlug       string
	ScoringMode    string
	HostUserID     *int64
	CurrentRound   int
	ScoreTarget    *int
	Code           string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

type Player struct {
	ID        int64
	SessionID int64
	UserID    *int64
	Name      string
	Position  int
	TeamID    *int64
}

type Team struct {
	ID        int64
	SessionID int64
	Name      string
}

// ScoreRow is one raw score cell. Exactly one of RoundNumber or CategoryID
// is set, depending on the session's scoring mode.
type ScoreRow struct {
	PlayerID    int64
	RoundNumber *int
	CategoryID  *string
	Score       int
}

type SessionEvent struct {
	ID        int64
	SessionID int64
	EventType string
	EventData []byte
	UserID    *int64
	CreatedAt time.Time
}
