package enrollment

import "errors"

// Sentinel errors for enrollment.
var (
	ErrInsufficientSamples = errors.New("insufficient enrollment samples")
	ErrInvalidUser         = errors.New("invalid user")
)
