package timeline

import "errors"

// Sentinel kinds for timeline errors.
var (
	ErrInvalidSettings = errors.New("invalid timeline settings")
	ErrRosterTooSmall  = errors.New("battle needs at least two participants")
	ErrUnknownPlayer   = errors.New("player is not in the roster")
	ErrAlreadyStarted  = errors.New("battle already started")
)
