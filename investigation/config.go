package investigation

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultConcurrency = 5
	MaxConcurrency     = 50
	DefaultTimeout     = 30 * time.Second
	MinTimeout         = time.Second
	MaxTimeout         = 120 * time.Second
	DefaultRetries     = 2
	DefaultMinMatches  = 10
)

var ErrInvalidConfig = errors.New("invalid run config")

// RunConfig is the validated input of a run. Total fetch attempts per name
// are Retries + 1.
type RunConfig struct {
	Names       []string
	Concurrency int
	Timeout     time.Duration
	Retries     int
	MinMatches  int
}

func DefaultRunConfig(names []string) RunConfig {
	return RunConfig{
		Names:       names,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		MinMatches:  DefaultMinMatches,
	}
}

func (c RunConfig) MaxAttempts() int { return c.Retries + 1 }

// Validate reports every violated constraint. An empty name list is valid and
// yields an empty run.
func (c RunConfig) Validate() error {
	var errs []error
	for i, n := range c.Names {
		if n == "" {
			errs = append(errs, fmt.Errorf("names[%d] is empty", i))
		}
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency))
	}
	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		errs = append(errs, fmt.Errorf("timeout must be between %s and %s, got %s", MinTimeout, MaxTimeout, c.Timeout))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries cannot be negative, got %d", c.Retries))
	}
	if c.MinMatches < 1 {
		errs = append(errs, fmt.Errorf("minMatches must be at least 1, got %d", c.MinMatches))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
