package evaluation

import (
	"errors"
	"fmt"
)

// ErrInvalidOrderRange is returned when a Config's order range is empty or
// starts below 1.
var ErrInvalidOrderRange = errors.New("invalid n-gram order range")

// Config holds the options of an evaluation run.
type Config struct {
	// MinOrder is the lowest n-gram order scored, at least 1.
	MinOrder int `json:"min_order" yaml:"min_order"`

	// MaxOrder is the highest n-gram order scored.
	MaxOrder int `json:"max_order" yaml:"max_order"`

	// Smoothed scores with floor-smoothed tables instead of raw counts.
	Smoothed bool `json:"smoothed" yaml:"smoothed"`
}

// DefaultConfig returns a Config scoring orders 1 through 4 without
// smoothing.
func DefaultConfig() Config {
	return Config{
		MinOrder: 1,
		MaxOrder: 4,
		Smoothed: false,
	}
}

// Validate checks the order range.
func (c Config) Validate() error {
	if c.MinOrder < 1 || c.MaxOrder < c.MinOrder {
		return fmt.Errorf("%w: %d..%d", ErrInvalidOrderRange, c.MinOrder, c.MaxOrder)
	}
	return nil
}
