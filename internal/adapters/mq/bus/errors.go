package bus

import "errors"

// Sentinel kinds for bus errors.
var (
	ErrDestroyed = errors.New("bus client destroyed")
)
