package formula

// DefaultMaxDepth bounds tree depth for validation and evaluation.
const DefaultMaxDepth = 64

type options struct {
	maxDepth int
}

// Option configures Validate and Evaluate.
type Option func(*options)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
