package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// docusign.app_url -> DOCUSIGN_APP_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the first go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets and endpoints that are conventionally passed as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	if cfg.DocuSign.AppURL == "" {
		if val := os.Getenv("DS_APP_URL"); val != "" {
			cfg.DocuSign.AppURL = val
		}
	}
	if cfg.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Redis.Password = val
		}
	}
	if cfg.Notifications.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.Notifications.AWS.Region = val
		}
	}
	if cfg.Documents.S3.Region == "" {
		cfg.Documents.S3.Region = cfg.Notifications.AWS.Region
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		if val := os.Getenv("ORPHAN_TOPIC_ARN"); val != "" {
			cfg.Notifications.SNS.TopicARN = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "esign-portal"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	ds := &cfg.DocuSign
	ds.AppURL = strings.TrimRight(ds.AppURL, "/")
	if ds.MustAuthenticatePath == "" {
		ds.MustAuthenticatePath = "/ds/mustAuthenticate"
	}
	if ds.ReturnPath == "" {
		ds.ReturnPath = "/ds-return"
	}
	if ds.ReturnState == "" {
		ds.ReturnState = "123"
	}
	if ds.PingPath == "" {
		ds.PingPath = "/"
	}
	if ds.RequestTimeout == 0 {
		ds.RequestTimeout = 30000
	}
	if ds.FormTokenBufferMin == 0 {
		ds.FormTokenBufferMin = 10
	}
	if ds.SubmitTokenBufferMin == 0 {
		ds.SubmitTokenBufferMin = 3
	}

	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "esign_session"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "session:"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 480
	}

	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 60000
		}
		cfg.Workers[key] = worker
	}

	if cfg.Workflow.BulkListName == "" {
		cfg.Workflow.BulkListName = "Send to students"
	}
	if cfg.Workflow.ExpireWarnDays == 0 {
		cfg.Workflow.ExpireWarnDays = 5
	}
	poll := &cfg.Workflow.Poll
	if poll.InitialDelay == 0 {
		poll.InitialDelay = 10000
	}
	if poll.MaxAttempts == 0 {
		poll.MaxAttempts = 1
	}
	if poll.Multiplier == 0 {
		poll.Multiplier = 2
	}
	if poll.MaxDelay == 0 {
		poll.MaxDelay = 60000
	}

	if cfg.Documents.Source == "" {
		cfg.Documents.Source = "local"
	}
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = "demo_documents"
	}
	if cfg.Documents.SMSDocument == "" {
		cfg.Documents.SMSDocument = "World_Wide_Corp_lorem.html"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.DocuSign.AppURL == "" {
		return fmt.Errorf("docusign.app_url is required")
	}
	if cfg.DocuSign.SubmitTokenBufferMin > cfg.DocuSign.FormTokenBufferMin {
		return fmt.Errorf("docusign.submit_token_buffer_min must not exceed docusign.form_token_buffer_min")
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Workflow.Poll.MaxAttempts < 1 {
		return fmt.Errorf("workflow.poll.max_attempts must be at least 1")
	}
	if cfg.Workflow.Poll.Multiplier < 1 {
		return fmt.Errorf("workflow.poll.multiplier must be >= 1")
	}
	if cfg.Workflow.Poll.InitialDelay < 0 {
		return fmt.Errorf("workflow.poll.initial_delay must not be negative")
	}

	switch cfg.Documents.Source {
	case "local":
	case "s3":
		if cfg.Documents.S3.Bucket == "" {
			return fmt.Errorf("documents.s3.bucket is required for the s3 document source")
		}
	default:
		return fmt.Errorf("documents.source must be local or s3, got %q", cfg.Documents.Source)
	}

	if cfg.Notifications.Email.Enabled {
		if cfg.Notifications.Email.FromEmail == "" || len(cfg.Notifications.Email.ToAddresses) == 0 {
			return fmt.Errorf("notifications.email requires from_email and to_addresses")
		}
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves workflow-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, name string) WorkerConfig {
	if cfg != nil {
		if worker, exists := cfg.Workers[name]; exists {
			return worker
		}
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60000,
	}
}

// IsWorkerEnabled checks if a specific workflow is enabled
func IsWorkerEnabled(cfg *Config, name string) bool {
	return GetWorkerConfig(cfg, name).Enabled
}
