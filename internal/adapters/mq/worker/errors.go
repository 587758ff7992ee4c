package worker

import "errors"

// ErrSourceExhausted reports that a finite camera delivered its last frame.
var ErrSourceExhausted = errors.New("frame source exhausted")
