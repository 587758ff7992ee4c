package enrollment

// DefaultMinSamples is the number of single-face samples averaged into a reference.
const DefaultMinSamples = 5

// Option applies a configuration option to the Accumulator.
type Option func(*Accumulator)

// WithMinSamples sets how many samples are required. Values below 1 are ignored.
func WithMinSamples(n int) Option {
	return func(a *Accumulator) {
		if n >= 1 {
			a.required = n
		}
	}
}

// WithDimension rejects samples whose length differs from dim.
// If dim <= 0 the first accepted sample fixes the dimension.
func WithDimension(dim int) Option {
	return func(a *Accumulator) {
		if dim > 0 {
			a.dim = dim
		}
	}
}
