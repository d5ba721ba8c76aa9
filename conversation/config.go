package conversation

import "time"

// Defaults sized for one process serving a modest chat surface.
const (
	DefaultCapacity    = 1000
	DefaultTTL         = 24 * time.Hour
	DefaultMaxMessages = 50
	DefaultTokenBudget = 8000
)

// Config holds conversation store tuning.
type Config struct {
	// Capacity is the maximum number of live conversations; the least
	// recently active is evicted when it is exceeded.
	Capacity int

	// TTL is how long an idle conversation survives.
	TTL time.Duration

	// MaxMessages caps the stored history length per conversation.
	MaxMessages int

	// TokenBudget caps the estimated token size of the stored history.
	TokenBudget int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithCapacity sets the conversation capacity.
func WithCapacity(n int) ConfigOption {
	return func(c *Config) {
		c.Capacity = n
	}
}

// WithTTL sets the idle expiry.
func WithTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// WithMaxMessages sets the per-conversation message cap.
func WithMaxMessages(n int) ConfigOption {
	return func(c *Config) {
		c.MaxMessages = n
	}
}

// WithTokenBudget sets the per-conversation token budget.
func WithTokenBudget(n int) ConfigOption {
	return func(c *Config) {
		c.TokenBudget = n
	}
}

// DefaultConfig returns a Config with the default limits.
func DefaultConfig() *Config {
	return &Config{
		Capacity:    DefaultCapacity,
		TTL:         DefaultTTL,
		MaxMessages: DefaultMaxMessages,
		TokenBudget: DefaultTokenBudget,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return ErrInvalidConfig
	}
	if c.TTL <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxMessages <= 0 {
		return ErrInvalidConfig
	}
	if c.TokenBudget <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
