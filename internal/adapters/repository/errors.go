package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("battle not found")
	ErrInvalidLimit = errors.New("invalid record limit")
	ErrMissingID    = errors.New("missing state id")
)
