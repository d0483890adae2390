package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	DocuSign      DocuSignConfig          `mapstructure:"docusign"`
	Session       SessionConfig           `mapstructure:"session"`
	Redis         RedisConfig             `mapstructure:"redis"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Workflow      WorkflowConfig          `mapstructure:"workflow"`
	Documents     DocumentsConfig         `mapstructure:"documents"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	RegistryPath string `mapstructure:"registry_path"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// DocuSignConfig describes how the portal talks to the eSignature API and where
// the external authentication service lives. Tokens themselves come from the session.
type DocuSignConfig struct {
	AppURL               string `mapstructure:"app_url"`
	MustAuthenticatePath string `mapstructure:"must_authenticate_path"`
	ReturnPath           string `mapstructure:"return_path"`
	ReturnState          string `mapstructure:"return_state"`
	PingPath             string `mapstructure:"ping_path"`
	PingEnabled          bool   `mapstructure:"ping_enabled"`
	RequestTimeout       int    `mapstructure:"request_timeout"` // milliseconds
	FormTokenBufferMin   int    `mapstructure:"form_token_buffer_min"`
	SubmitTokenBufferMin int    `mapstructure:"submit_token_buffer_min"`
}

// ReturnURL is where DocuSign sends the browser after a view completes.
func (d DocuSignConfig) ReturnURL() string {
	return d.AppURL + d.ReturnPath
}

// PingURL is empty unless pinging is enabled.
func (d DocuSignConfig) PingURL() string {
	if !d.PingEnabled {
		return ""
	}
	return d.AppURL + d.PingPath
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTL        int    `mapstructure:"ttl"` // minutes
	Secure     bool   `mapstructure:"secure"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the settings shared by every workflow, whether it runs behind a form or a job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type WorkflowConfig struct {
	BulkListName   string     `mapstructure:"bulk_list_name"`
	ExpireWarnDays int        `mapstructure:"expire_warn_days"`
	Poll           PollConfig `mapstructure:"poll"`
}

// PollConfig controls how the bulk send batch status is read back.
type PollConfig struct {
	InitialDelay int     `mapstructure:"initial_delay"` // milliseconds
	MaxAttempts  int     `mapstructure:"max_attempts"`
	Multiplier   float64 `mapstructure:"multiplier"`
	MaxDelay     int     `mapstructure:"max_delay"` // milliseconds
}

type DocumentsConfig struct {
	Source      string `mapstructure:"source"` // "local" or "s3"
	Dir         string `mapstructure:"dir"`
	SMSDocument string `mapstructure:"sms_document"`
	S3          struct {
		Bucket   string `mapstructure:"bucket"`
		Prefix   string `mapstructure:"prefix"`
		Region   string `mapstructure:"region"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"s3"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotificationConfig controls where orphaned envelope reports go.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled     bool     `mapstructure:"enabled"`
		FromEmail   string   `mapstructure:"from_email"`
		ToAddresses []string `mapstructure:"to_addresses"`
	} `mapstructure:"email"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
