package suggestion

import "errors"

var (
	ErrSessionNotFound     = errors.New("suggestion session not found or expired")
	ErrSessionExpired      = errors.New("suggestion session has expired")
	ErrNotOwner            = errors.New("suggestion session does not belong to caller")
	ErrSuggestionNotActive = errors.New("suggestion is not in the active set")
	ErrInvalidMultiplier   = errors.New("portion multiplier must be an integer in [1, 4]")
	ErrVersionConflict     = errors.New("suggestion session was concurrently modified")
	ErrTooManyActive       = errors.New("active suggestion set cannot exceed 3 entries")
)
