package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/voicecap/resilience"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 4 << 20
)

// Config is one HTTP client. remote builds two: a short-timeout one for
// schedule reads and triggers, and a longer one for uploads.
type Config struct {
	// BaseURL prefixes relative request paths.
	BaseURL string            `mapstructure:"base_url"`
	Timeout time.Duration     `mapstructure:"timeout"` // whole request, 30s by default
	Headers map[string]string `mapstructure:"headers"`
	// MaxResponseBytes truncates bodies beyond 4 MiB by default.
	MaxResponseBytes int64 `mapstructure:"max_response_bytes"`

	// Nil Retry or CircuitBreaker disables that layer.
	Retry          *resilience.RetryConfig          `mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("httpclient: retry max_attempts must be >= 1")
	}
	return nil
}

// DefaultRetryConfig retries timeouts, connection failures, 429 and 5xx
// only.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig is resilience.DefaultCircuitBreakerConfig as a pointer.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
