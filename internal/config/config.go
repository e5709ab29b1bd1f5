// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Buda       BudaConfig       `mapstructure:"buda"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Health     HealthConfig     `mapstructure:"health"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFile     LogFileConfig `mapstructure:"log_file"`
}

// LogFileConfig configures the optional rotating log file.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig holds the public HTTP API settings.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// BudaConfig holds Buda.com API configuration.
type BudaConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"` // per provider call
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig holds circuit breaker thresholds for the Buda client.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	Interval         time.Duration `mapstructure:"interval"`
}

// ConversionConfig holds path search settings.
type ConversionConfig struct {
	SupportedCurrencies []string `mapstructure:"supported_currencies"`
	Workers             int      `mapstructure:"workers"`
}

// HealthConfig holds the health probe server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	TraceProvider  string            `mapstructure:"trace_provider"` // zipkin, otlp-grpc, otlp-http, console, none
	OTLPEndpoint   string            `mapstructure:"otlp_endpoint"`
	OTLPHeaders    map[string]string `mapstructure:"otlp_headers"`
	OTLPInsecure   bool              `mapstructure:"otlp_insecure"`
	OTLPMetrics    bool              `mapstructure:"otlp_metrics"` // also push metrics to the collector
	PrometheusPort int               `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FXB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FXB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FXB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FXB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file.path", "FXB_LOG_FILE")

	// Server
	v.BindEnv("server.port", "FXB_PORT", "PORT")
	v.BindEnv("server.cors_origins", "FXB_CORS_ORIGINS")

	// Buda
	v.BindEnv("buda.base_url", "FXB_BUDA_BASE_URL", "BUDA_BASE_URL")
	v.BindEnv("buda.timeout", "FXB_BUDA_TIMEOUT")
	v.BindEnv("buda.requests_per_minute", "FXB_BUDA_RPM")

	// Conversion
	v.BindEnv("conversion.supported_currencies", "FXB_SUPPORTED_CURRENCIES")
	v.BindEnv("conversion.workers", "FXB_WORKERS")

	// Health
	v.BindEnv("health.port", "FXB_HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FXB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FXB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_provider", "FXB_OTEL_TRACE_PROVIDER")
	v.BindEnv("telemetry.otlp_endpoint", "FXB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_insecure", "FXB_OTEL_INSECURE")
	v.BindEnv("telemetry.otlp_metrics", "FXB_OTEL_METRICS")
	v.BindEnv("telemetry.prometheus_port", "FXB_PROMETHEUS_PORT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fxbridge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file.max_size_mb", 10)
	v.SetDefault("app.log_file.max_backups", 3)
	v.SetDefault("app.log_file.max_age_days", 28)
	v.SetDefault("app.log_file.compress", true)

	// Server defaults
	v.SetDefault("server.port", 4567)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "55s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Buda defaults
	v.SetDefault("buda.base_url", "https://www.buda.com/api/v2")
	v.SetDefault("buda.timeout", "10s")
	v.SetDefault("buda.requests_per_minute", 0) // unlimited
	v.SetDefault("buda.breaker.failure_threshold", 5)
	v.SetDefault("buda.breaker.open_timeout", "30s")
	v.SetDefault("buda.breaker.interval", "60s")

	// Conversion defaults
	v.SetDefault("conversion.supported_currencies", []string{"CLP", "PEN", "COP"})
	v.SetDefault("conversion.workers", 4)

	// Health defaults
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "fxbridge")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Buda.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid buda.base_url: %q", c.Buda.BaseURL)
	}
	if c.Buda.Timeout <= 0 {
		return fmt.Errorf("buda.timeout must be positive")
	}
	if len(c.Conversion.SupportedCurrencies) == 0 {
		return fmt.Errorf("conversion.supported_currencies cannot be empty")
	}
	if c.Conversion.Workers < 1 {
		return fmt.Errorf("conversion.workers must be at least 1, got %d", c.Conversion.Workers)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.TraceProvider {
		case "zipkin", "otlp-grpc", "otlp-http", "console", "none", "":
		default:
			return fmt.Errorf("unknown telemetry.trace_provider: %q", c.Telemetry.TraceProvider)
		}
	}
	return nil
}
