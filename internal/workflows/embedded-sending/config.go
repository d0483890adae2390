package embeddedsending

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxJobsActive   int           `mapstructure:"max_jobs_active"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExpireAfterDays int           `mapstructure:"expire_after_days"`
	ExpireWarnDays  int           `mapstructure:"expire_warn_days"`
	ReturnURL       string        `mapstructure:"return_url"`
	ReturnState     string        `mapstructure:"return_state"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   5,
		Timeout:         30 * time.Second,
		ExpireAfterDays: 60,
		ExpireWarnDays:  10,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ExpireAfterDays <= 0 {
		return fmt.Errorf("expire_after_days must be positive")
	}
	if c.ExpireWarnDays < 0 || c.ExpireWarnDays >= c.ExpireAfterDays {
		return fmt.Errorf("expire_warn_days must be below expire_after_days")
	}
	if c.ReturnURL == "" {
		return fmt.Errorf("return_url is required")
	}
	return nil
}
