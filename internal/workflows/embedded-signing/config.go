package embeddedsigning

import (
	"fmt"
	"time"

	"esign-workflows/internal/envelope"
)

type Config struct {
	Enabled              bool          `mapstructure:"enabled"`
	MaxJobsActive        int           `mapstructure:"max_jobs_active"`
	Timeout              time.Duration `mapstructure:"timeout"`
	ReturnURL            string        `mapstructure:"return_url"`
	ReturnState          string        `mapstructure:"return_state"`
	PingURL              string        `mapstructure:"ping_url"`
	PingInterval         int           `mapstructure:"ping_interval"` // seconds
	AuthenticationMethod string        `mapstructure:"authentication_method"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:              true,
		MaxJobsActive:        5,
		Timeout:              30 * time.Second,
		PingInterval:         envelope.DefaultPingInterval,
		AuthenticationMethod: envelope.DefaultAuthenticationMethod,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ReturnURL == "" {
		return fmt.Errorf("return_url is required")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive")
	}
	return nil
}
