// Package wire defines the JSON documents exchanged between the realtime
// endpoint and its polling clients. Both sides of the repo decode/encode
// these types, so field tags here are the contract.
package wire

import "time"

type ScoringMode string

const (
	ScoringRounds     ScoringMode = "rounds"
	ScoringCategories ScoringMode = "categories"
)

type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

type AccessLevel string

const (
	AccessHost         AccessLevel = "host"
	AccessPlayer       AccessLevel = "player"
	AccessCanJoin      AccessLevel = "can_join"
	AccessGuestAllowed AccessLevel = "guest_allowed"
	AccessDenied       AccessLevel = "denied"
)

// StateDocument is the full per-poll response body. Timestamp changes on
// every call and is excluded from client-side change detection.
type StateDocument struct {
	Session       SessionSnapshot `json:"session"`
	Events        []SessionEvent  `json:"events"`
	Timestamp     string          `json:"timestamp"`
	CurrentUserID *int64          `json:"currentUserId"`
}

type SessionSnapshot struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Status       SessionStatus `json:"status"`
	GameSlug     string        `json:"game_slug"`
	HostUserID   *int64        `json:"host_user_id"`
	CurrentRound int           `json:"current_round"`
	ScoreTarget  *int          `json:"score_target,omitempty"`
	AccessLevel  AccessLevel   `json:"access_level"`
	Players      []Player      `json:"players"`
	Scores       ScoreData     `json:"scores"`
	Teams        []Team        `json:"teams,omitempty"`
}

type Player struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	UserID     *int64 `json:"user_id"`
	Position   int    `json:"position"`
	TeamID     *int64 `json:"team_id,omitempty"`
	TotalScore int    `json:"total_score"`
}

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ScoreData is shaped by the session's scoring mode: exactly one of Rounds
// or Categories is populated.
type ScoreData struct {
	Mode       ScoringMode              `json:"mode"`
	Rounds     []Round                  `json:"rounds,omitempty"`
	Categories map[string]map[int64]int `json:"categories,omitempty"`
}

type Round struct {
	RoundNumber int           `json:"round_number"`
	Scores      map[int64]int `json:"scores"`
}

type SessionEvent struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	EventData string    `json:"event_data,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerScore is one player's score for a round submission.
type PlayerScore struct {
	PlayerID int64 `json:"playerId"`
	Score    int   `json:"score"`
}

type RoundSubmission struct {
	Scores  []PlayerScore  `json:"scores"`
	Details map[string]any `json:"details,omitempty"`
}

type RoundResult struct {
	Message     string `json:"message"`
	RoundNumber int    `json:"roundNumber"`
	NextRound   int    `json:"nextRound"`
}

type EventSubmission struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data,omitempty"`
	UserID    *int64         `json:"user_id,omitempty"`
}

type EventResult struct {
	Success   bool   `json:"success"`
	EventID   int64  `json:"event_id"`
	Timestamp string `json:"timestamp"`
}
