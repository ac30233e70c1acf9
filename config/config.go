package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.0"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Security    SecurityConfig
	Tracing     TracingConfig
	SMTP        SMTPConfig
	Export      ExportConfig
	RateLimit   RateLimitConfig
	Environment string
	LogLevel    string
	Version     string
}

type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	SSL             SSLConfig
}

type SSLConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SecurityConfig struct {
	// HMAC secret used to sign and verify bearer tokens
	JWTSecret   []byte
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	// "jaeger", "stackdriver", "zipkin", "datadog", "xray", "none"
	TraceExporter string

	JaegerEndpoint       string
	ZipkinEndpoint       string
	StackdriverProjectID string
	DatadogAgentAddress  string
	XRayRegion           string

	// Agent endpoint shared by exporters that talk to a local agent
	AgentEndpoint string

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
	UseTLS    bool
}

// ExportConfig holds the server-side defaults applied to export requests
type ExportConfig struct {
	ContainerMaxWidth        string
	ContainerPadding         string
	ContainerBackgroundColor string
	EmailClients             []string
	MaxConcurrentCompiles    int64
	CompileTimeout           time.Duration
	// Compiled HTML is cached by MJML digest; a zero TTL disables the cache
	CompileCacheTTL          time.Duration
	CompileCacheSize         int
}

// RateLimitConfig bounds per user attempts. Zero disables a limit.
type RateLimitConfig struct {
	SendTestPerHour  int
	CompilePerMinute int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mailblocks")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("JWT_ISSUER", "mailblocks")
	v.SetDefault("JWT_AUDIENCE", "mailblocks-api")
	v.SetDefault("JWT_TTL", "24h")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "Mailblocks")
	v.SetDefault("SMTP_USE_TLS", true)

	v.SetDefault("EXPORT_CONTAINER_MAX_WIDTH", "600px")
	v.SetDefault("EXPORT_CONTAINER_PADDING", "20px")
	v.SetDefault("EXPORT_CONTAINER_BACKGROUND_COLOR", "#ffffff")
	v.SetDefault("EXPORT_EMAIL_CLIENTS", "")
	v.SetDefault("EXPORT_MAX_CONCURRENT_COMPILES", 4)
	v.SetDefault("EXPORT_COMPILE_TIMEOUT", "10s")
	v.SetDefault("EXPORT_COMPILE_CACHE_TTL", "10m")
	v.SetDefault("EXPORT_COMPILE_CACHE_SIZE", 256)

	v.SetDefault("RATE_LIMIT_SEND_TEST_PER_HOUR", 20)
	v.SetDefault("RATE_LIMIT_COMPILE_PER_MINUTE", 30)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "mailblocks-api")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_STACKDRIVER_PROJECT_ID", "")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_XRAY_REGION", "us-west-2")
	v.SetDefault("TRACING_AGENT_ENDPOINT", "localhost:8126")
	v.SetDefault("TRACING_METRICS_EXPORTER", "none")
	v.SetDefault("TRACING_PROMETHEUS_PORT", 9464)

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

	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	maxCompiles := v.GetInt64("EXPORT_MAX_CONCURRENT_COMPILES")
	if maxCompiles < 1 {
		return nil, fmt.Errorf("EXPORT_MAX_CONCURRENT_COMPILES must be at least 1")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
			SSL: SSLConfig{
				Enabled:  v.GetBool("SSL_ENABLED"),
				CertFile: v.GetString("SSL_CERT_FILE"),
				KeyFile:  v.GetString("SSL_KEY_FILE"),
			},
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Security: SecurityConfig{
			JWTSecret:   []byte(secret),
			JWTIssuer:   v.GetString("JWT_ISSUER"),
			JWTAudience: v.GetString("JWT_AUDIENCE"),
			TokenTTL:    v.GetDuration("JWT_TTL"),
		},
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_HOST"),
			Port:      v.GetInt("SMTP_PORT"),
			Username:  v.GetString("SMTP_USERNAME"),
			Password:  v.GetString("SMTP_PASSWORD"),
			FromEmail: v.GetString("SMTP_FROM_EMAIL"),
			FromName:  v.GetString("SMTP_FROM_NAME"),
			UseTLS:    v.GetBool("SMTP_USE_TLS"),
		},
		Export: ExportConfig{
			ContainerMaxWidth:        v.GetString("EXPORT_CONTAINER_MAX_WIDTH"),
			ContainerPadding:         v.GetString("EXPORT_CONTAINER_PADDING"),
			ContainerBackgroundColor: v.GetString("EXPORT_CONTAINER_BACKGROUND_COLOR"),
			EmailClients:             splitList(v.GetString("EXPORT_EMAIL_CLIENTS")),
			MaxConcurrentCompiles:    maxCompiles,
			CompileTimeout:           v.GetDuration("EXPORT_COMPILE_TIMEOUT"),
			CompileCacheTTL:          v.GetDuration("EXPORT_COMPILE_CACHE_TTL"),
			CompileCacheSize:         v.GetInt("EXPORT_COMPILE_CACHE_SIZE"),
		},
		RateLimit: RateLimitConfig{
			SendTestPerHour:  v.GetInt("RATE_LIMIT_SEND_TEST_PER_HOUR"),
			CompilePerMinute: v.GetInt("RATE_LIMIT_COMPILE_PER_MINUTE"),
		},
		Tracing: TracingConfig{
			Enabled:             v.GetBool("TRACING_ENABLED"),
			ServiceName:         v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability: v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),

			TraceExporter: v.GetString("TRACING_TRACE_EXPORTER"),

			JaegerEndpoint:       v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:       v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			StackdriverProjectID: v.GetString("TRACING_STACKDRIVER_PROJECT_ID"),
			DatadogAgentAddress:  v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			XRayRegion:           v.GetString("TRACING_XRAY_REGION"),
			AgentEndpoint:        v.GetString("TRACING_AGENT_ENDPOINT"),

			MetricsExporter: v.GetString("TRACING_METRICS_EXPORTER"),
			PrometheusPort:  v.GetInt("TRACING_PROMETHEUS_PORT"),
		},

		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	return config, nil
}

// splitList parses a comma-separated env value, dropping blanks
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
