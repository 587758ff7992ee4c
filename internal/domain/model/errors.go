package model

import "errors"

// ErrInvalidAction is returned by ParseAction for anything but punch_in/punch_out.
var ErrInvalidAction = errors.New("invalid action")
