package rounds

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session not accepting rounds")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnknownPlayer   = errors.New("unknown player")
)
