package service

import "errors"

// Sentinel errors for the service.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrSessionCancelled = errors.New("session cancelled")
	ErrInvalidDate      = errors.New("invalid date")
)
