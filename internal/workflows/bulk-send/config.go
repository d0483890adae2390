package bulksend

import (
	"fmt"
	"time"

	"esign-workflows/internal/orchestrator"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ListName      string        `mapstructure:"list_name"`
	WarnDays      int           `mapstructure:"warn_days"`
	MaxFormBytes  int64         `mapstructure:"max_form_bytes"`

	// PollBudget is the longest the batch status wait can take. A run has to
	// outlive it, or the deadline cuts off a bulk send that was already submitted.
	PollBudget time.Duration `mapstructure:"-"`
	// TokenBuffer is how much lifetime a job's access token must have left.
	TokenBuffer time.Duration `mapstructure:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		ListName:      "Send to students",
		WarnDays:      5,
		MaxFormBytes:  32 << 20,
		PollBudget:    orchestrator.DefaultPollPolicy().Budget(),
		TokenBuffer:   3 * time.Minute,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Timeout <= c.PollBudget {
		return fmt.Errorf("timeout %s must exceed the batch status poll budget %s", c.Timeout, c.PollBudget)
	}
	if c.TokenBuffer < 0 {
		return fmt.Errorf("token buffer must not be negative")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.WarnDays < 0 {
		return fmt.Errorf("warn_days must not be negative")
	}
	if c.ListName == "" {
		return fmt.Errorf("list_name is required")
	}
	return nil
}
