package resilience

import (
	"fmt"
	"time"
)

// CircuitBreakerConfig is the zero-value-disabled breaker setup for one
// upstream. Unset numeric fields fall back to the package defaults.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 15 * time.Second
	defaultHalfOpenMaxReq   = 2
)

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaultHalfOpenMaxReq
	}
	return c
}

// String renders the effective settings for startup logs.
func (c CircuitBreakerConfig) String() string {
	if !c.Enabled {
		return "disabled"
	}
	c = c.withDefaults()
	return fmt.Sprintf("failures=%d open=%s half_open=%d", c.FailureThreshold, c.OpenTimeout, c.HalfOpenMaxReq)
}
