package engine

// ============================================================================
// TABLE OPTIONS — Functional options for BuildTable()
// ============================================================================

// Option configures table building via functional options pattern.
type Option func(*config)

type config struct {
	Title string
	Limit int // display cap; 0 = all rows
}

// WithTitle sets the table title.
func WithTitle(title string) Option {
	return func(c *config) {
		c.Title = title
	}
}

// WithLimit caps the number of rendered rows. The view itself is not touched.
func WithLimit(n int) Option {
	return func(c *config) {
		c.Limit = n
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
