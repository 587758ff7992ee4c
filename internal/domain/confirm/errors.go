package confirm

import "errors"

// ErrTerminal is returned when a frame is observed after confirmation or cancellation.
var ErrTerminal = errors.New("confirmation already finished")
