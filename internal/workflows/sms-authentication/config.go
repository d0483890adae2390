package smsauthentication

import (
	"fmt"
	"path"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// Document is the library file sent for signature. It must contain the /sn1/ anchor.
	Document string `mapstructure:"document"`
	Subject  string `mapstructure:"subject"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Document:      "World_Wide_Corp_lorem.html",
		Subject:       "Please sign this document set",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Document == "" {
		return fmt.Errorf("document is required")
	}
	if path.Ext(c.Document) == "" {
		return fmt.Errorf("document %q needs a file extension", c.Document)
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}
