package dedupe

import "time"

// DefaultWindow is the period during which a repeated action by the same user is suppressed.
const DefaultWindow = 60 * time.Second

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithWindow sets the lookback window. Zero disables suppression; negative values are ignored.
func WithWindow(window time.Duration) Option {
	return func(g *Guard) {
		if window >= 0 {
			g.window = window
		}
	}
}

// WithMaxScan caps how many of the newest records are inspected.
// If n > 0: at most n records are examined, even if older ones are still inside the window.
// If n <= 0: the scan is bounded only by the window.
func WithMaxScan(n int) Option {
	return func(g *Guard) {
		g.maxScan = n
	}
}
