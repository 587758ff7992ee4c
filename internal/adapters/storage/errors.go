package storage

import "errors"

// Sentinel errors for persistence.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformed          = errors.New("malformed persisted data")
)
