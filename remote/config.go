package remote

import "time"

// DefaultBaseURL is the monitoring API served by the scheduling backend.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// Config configures the API client.
type Config struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=1s"`
	// RetryAttempts bounds attempts for idempotent reads and triggers.
	// Uploads are never retried by the client.
	RetryAttempts int `mapstructure:"retry_attempts" validate:"gte=1,lte=10"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
}
