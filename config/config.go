package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.4"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Tracing     TracingConfig
	SMTP        SMTPConfig
	DevInbox    DevInboxConfig
	Editor      EditorConfig
	Export      ExportConfig
	Storage     StorageConfig
	Webhook     WebhookConfig
	Share       ShareConfig
	Environment string
	APIEndpoint string
	LogLevel    string
	LogPretty   bool
	Version     string
}

type ServerConfig struct {
	Port            int
	Host            string
	SSL             SSLConfig
	ShutdownTimeout time.Duration
	CORSOrigin      string
}

type SSLConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig selects the template store. Driver is "postgres" or "sqlite";
// Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string

	MaxOpenConns int
	MaxIdleConns int
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	// "jaeger", "zipkin", "stackdriver", "datadog", "xray" or "none"
	TraceExporter string

	JaegerEndpoint       string
	ZipkinEndpoint       string
	StackdriverProjectID string
	DatadogAgentAddress  string
	XRayRegion           string

	// "prometheus", "stackdriver", "datadog", "none" or a comma-separated list
	MetricsExporter string
	PrometheusPort  int
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string

	// test sends allowed per recipient within TestEmailWindow
	TestEmailLimit  int
	TestEmailWindow time.Duration
}

// DevInboxConfig runs a local SMTP sink that captures test emails
type DevInboxConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Username     string
	PasswordHash string // bcrypt; empty disables AUTH
	// Password is what the designer's own mailer authenticates with
	Password string
	Capacity int
}

type EditorConfig struct {
	HistoryLimit     int
	AutoSaveInterval time.Duration
	SessionIdleTTL   time.Duration
}

type ExportConfig struct {
	MaxWidth        int
	Breakpoint      int
	CacheTTL        time.Duration
	CacheMaxEntries int
	MergeTagTimeout time.Duration
}

// StorageConfig is the S3 compatible bucket used by export.publish
type StorageConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	PublicURL      string
	ForcePathStyle bool
}

type WebhookConfig struct {
	URL    string
	Secret string
}

type ShareConfig struct {
	Secret string
	TTL    time.Duration
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("CORS_ALLOW_ORIGIN", "*")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "designer")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_PATH", "designer.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "Email Designer")
	v.SetDefault("SMTP_FROM_EMAIL", "designer@localhost")
	v.SetDefault("TEST_EMAIL_LIMIT", 5)
	v.SetDefault("TEST_EMAIL_WINDOW", "10m")

	v.SetDefault("DEV_INBOX_ENABLED", false)
	v.SetDefault("DEV_INBOX_HOST", "127.0.0.1")
	v.SetDefault("DEV_INBOX_PORT", 2525)
	v.SetDefault("DEV_INBOX_CAPACITY", 50)

	v.SetDefault("EDITOR_HISTORY_LIMIT", 50)
	v.SetDefault("EDITOR_AUTOSAVE_INTERVAL", "30s")
	v.SetDefault("EDITOR_SESSION_IDLE_TTL", "2h")

	v.SetDefault("EXPORT_MAX_WIDTH", 600)
	v.SetDefault("EXPORT_BREAKPOINT", 600)
	v.SetDefault("EXPORT_CACHE_TTL", "10m")
	v.SetDefault("EXPORT_CACHE_MAX_ENTRIES", 500)
	v.SetDefault("EXPORT_MERGE_TAG_TIMEOUT", "5s")

	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("SHARE_TTL", "168h")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "designer-api")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_XRAY_REGION", "us-west-2")
	v.SetDefault("TRACING_METRICS_EXPORTER", "none")
	v.SetDefault("TRACING_PROMETHEUS_PORT", 9464)
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}
		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
			Host: v.GetString("SERVER_HOST"),
			SSL: SSLConfig{
				Enabled:  v.GetBool("SSL_ENABLED"),
				CertFile: v.GetString("SSL_CERT_FILE"),
				KeyFile:  v.GetString("SSL_KEY_FILE"),
			},
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			CORSOrigin:      v.GetString("CORS_ALLOW_ORIGIN"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			Path:         v.GetString("DB_PATH"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		SMTP: SMTPConfig{
			Host:            v.GetString("SMTP_HOST"),
			Port:            v.GetInt("SMTP_PORT"),
			Username:        v.GetString("SMTP_USERNAME"),
			Password:        v.GetString("SMTP_PASSWORD"),
			FromEmail:       v.GetString("SMTP_FROM_EMAIL"),
			FromName:        v.GetString("SMTP_FROM_NAME"),
			TestEmailLimit:  v.GetInt("TEST_EMAIL_LIMIT"),
			TestEmailWindow: v.GetDuration("TEST_EMAIL_WINDOW"),
		},
		DevInbox: DevInboxConfig{
			Enabled:      v.GetBool("DEV_INBOX_ENABLED"),
			Host:         v.GetString("DEV_INBOX_HOST"),
			Port:         v.GetInt("DEV_INBOX_PORT"),
			Username:     v.GetString("DEV_INBOX_USERNAME"),
			PasswordHash: v.GetString("DEV_INBOX_PASSWORD_HASH"),
			Password:     v.GetString("DEV_INBOX_PASSWORD"),
			Capacity:     v.GetInt("DEV_INBOX_CAPACITY"),
		},
		Editor: EditorConfig{
			HistoryLimit:     v.GetInt("EDITOR_HISTORY_LIMIT"),
			AutoSaveInterval: v.GetDuration("EDITOR_AUTOSAVE_INTERVAL"),
			SessionIdleTTL:   v.GetDuration("EDITOR_SESSION_IDLE_TTL"),
		},
		Export: ExportConfig{
			MaxWidth:        v.GetInt("EXPORT_MAX_WIDTH"),
			Breakpoint:      v.GetInt("EXPORT_BREAKPOINT"),
			CacheTTL:        v.GetDuration("EXPORT_CACHE_TTL"),
			CacheMaxEntries: v.GetInt("EXPORT_CACHE_MAX_ENTRIES"),
			MergeTagTimeout: v.GetDuration("EXPORT_MERGE_TAG_TIMEOUT"),
		},
		Storage: StorageConfig{
			Bucket:         v.GetString("STORAGE_BUCKET"),
			Region:         v.GetString("STORAGE_REGION"),
			Endpoint:       v.GetString("STORAGE_ENDPOINT"),
			AccessKey:      v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:      v.GetString("STORAGE_SECRET_KEY"),
			PublicURL:      v.GetString("STORAGE_PUBLIC_URL"),
			ForcePathStyle: v.GetBool("STORAGE_FORCE_PATH_STYLE"),
		},
		Webhook: WebhookConfig{
			URL:    v.GetString("WEBHOOK_URL"),
			Secret: v.GetString("WEBHOOK_SECRET"),
		},
		Share: ShareConfig{
			Secret: v.GetString("SHARE_SECRET"),
			TTL:    v.GetDuration("SHARE_TTL"),
		},
		Tracing: TracingConfig{
			Enabled:              v.GetBool("TRACING_ENABLED"),
			ServiceName:          v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability:  v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
			TraceExporter:        v.GetString("TRACING_TRACE_EXPORTER"),
			JaegerEndpoint:       v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:       v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			StackdriverProjectID: v.GetString("TRACING_STACKDRIVER_PROJECT_ID"),
			DatadogAgentAddress:  v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			XRayRegion:           v.GetString("TRACING_XRAY_REGION"),
			MetricsExporter:      v.GetString("TRACING_METRICS_EXPORTER"),
			PrometheusPort:       v.GetInt("TRACING_PROMETHEUS_PORT"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		APIEndpoint: v.GetString("API_ENDPOINT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogPretty:   v.GetBool("LOG_PRETTY"),
		Version:     v.GetString("VERSION"),
	}

	if config.APIEndpoint == "" {
		config.APIEndpoint = fmt.Sprintf("http://localhost:%d", config.Server.Port)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %q (expected postgres or sqlite)", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required for the sqlite driver")
	}
	if c.Server.SSL.Enabled && (c.Server.SSL.CertFile == "" || c.Server.SSL.KeyFile == "") {
		return fmt.Errorf("SSL_CERT_FILE and SSL_KEY_FILE are required when SSL is enabled")
	}
	if c.Editor.AutoSaveInterval < time.Second {
		return fmt.Errorf("EDITOR_AUTOSAVE_INTERVAL must be at least 1s, got %v", c.Editor.AutoSaveInterval)
	}
	if c.DevInbox.Enabled && c.DevInbox.PasswordHash != "" && c.DevInbox.Password == "" {
		return fmt.Errorf("DEV_INBOX_PASSWORD is required when DEV_INBOX_PASSWORD_HASH is set")
	}
	if c.Webhook.URL != "" && c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PublishEnabled reports whether export.publish has a bucket to write to
func (c *Config) PublishEnabled() bool {
	return c.Storage.Bucket != ""
}
