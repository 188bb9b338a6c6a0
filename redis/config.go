package redis

import (
	"errors"
	"time"
)

// Config is the redis section of the agent config. It is only read when
// schedule.ledger is "redis".
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"` // host:port
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix namespaces every key, so several labs can share one server.
	KeyPrefix string `mapstructure:"key_prefix"`

	PoolSize     int           `mapstructure:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ApplyDefaults sizes the pool for one agent polling once per tick.
func (c *Config) ApplyDefaults() {
	setString(&c.Addr, "localhost:6379")
	setString(&c.KeyPrefix, "voicecap")
	setInt(&c.PoolSize, 4)
	setInt(&c.MaxRetries, 3)
	setDuration(&c.DialTimeout, 5*time.Second)
	setDuration(&c.ReadTimeout, 3*time.Second)
	setDuration(&c.WriteTimeout, 3*time.Second)
}

// Validate only checks an enabled config.
func (c *Config) Validate() error {
	switch {
	case !c.Enabled:
		return nil
	case c.Addr == "":
		return errors.New("redis addr is required")
	case c.DB < 0:
		return errors.New("redis db must be >= 0")
	}
	return nil
}

func setString(p *string, v string) {
	if *p == "" {
		*p = v
	}
}

func setInt(p *int, v int) {
	if *p <= 0 {
		*p = v
	}
}

func setDuration(p *time.Duration, v time.Duration) {
	if *p <= 0 {
		*p = v
	}
}
