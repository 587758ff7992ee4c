package confirm

// DefaultRequiredStreak is the number of consecutive agreeing frames needed to confirm.
const DefaultRequiredStreak = 3

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithRequiredStreak sets the confirmation threshold. Values below 1 are ignored.
func WithRequiredStreak(n int) Option {
	return func(m *Machine) {
		if n >= 1 {
			m.required = n
		}
	}
}
