package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrUnknownSkill     = errors.New("unknown skill")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrInvalidCatalog   = errors.New("invalid catalog")
)
