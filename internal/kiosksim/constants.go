package kiosksim

import "time"

// HTTP status code constants.
const (
	StatusOK            = 200
	StatusCreated       = 201
	StatusConflict      = 409
	StatusUnprocessable = 422
)

// Defaults applied to a zero Config.
const (
	DefaultDim           = 128
	DefaultEnrollFrames  = 8
	DefaultPunchFrames   = 6
	DefaultJitter        = 0.01
	DefaultTimeout       = 30 * time.Second
	PercentageMultiplier = 100
)
