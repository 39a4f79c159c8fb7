package deps

const (
	DefaultMaxDepth = 50   // Default maximum dependency depth
	DefaultMaxNodes = 5000 // Default maximum resolved crates
	DefaultWorkers  = 16   // Default concurrent locate calls per wave
)

// Options configures dependency resolution behavior.
type Options struct {
	MaxDepth        int                  // Maximum depth to traverse (default: 50)
	MaxNodes        int                  // Maximum crates to resolve (default: 5000)
	Workers         int                  // Concurrent locate calls per wave (default: 16)
	IncludeOptional bool                 // Follow optional deps even when not pinned
	Logger          func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}
