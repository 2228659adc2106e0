package realtime

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrAuthRequired    = errors.New("authentication required")
	ErrInvalidRequest  = errors.New("invalid request")
)
