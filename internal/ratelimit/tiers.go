package ratelimit

import "time"

// Tiers holds the per-caller-shape limiter configs. Business callers get a
// higher ceiling on a shorter window; anything unclassified gets the
// strictest default.
type Tiers struct {
	Individual Config
	Business   Config
	Default    Config
}

// DefaultTiers returns the stock tier configuration.
func DefaultTiers() Tiers {
	return Tiers{
		Individual: Config{Ceiling: 10, Window: 5 * time.Minute},
		Business:   Config{Ceiling: 30, Window: time.Minute},
		Default:    Config{Ceiling: 5, Window: 5 * time.Minute},
	}
}

// ForKind selects the config for an account kind string.
func (t Tiers) ForKind(kind string) Config {
	switch kind {
	case "individual":
		return t.Individual
	case "business":
		return t.Business
	default:
		return t.Default
	}
}
