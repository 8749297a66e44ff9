// Package config loads the user management service settings.
//
// Values are resolved in this order, later sources winning:
//  1. built-in defaults
//  2. a .env file in the working directory (local development, via godotenv)
//  3. process environment variables
//
// Every variable is optional. An empty environment yields a configuration
// that passes Validate and points at a local PostgreSQL instance.
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var (
	validEnvs       = []string{"development", "dev", "test", "staging", "stage", "production", "prod"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
	validBackends   = []string{BackendPostgres, BackendMemory}
)

// Config is the complete service configuration.
type Config struct {
	Service   ServiceConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Database  DatabaseConfig
	CORS      CORSConfig

	// ShutdownTimeout bounds graceful shutdown. SHUTDOWN_TIMEOUT, default 10s, max 60s.
	ShutdownTimeout time.Duration
	// ReadinessDrainDelay is how long /ready reports 503 before the HTTP
	// server stops. READINESS_DRAIN_DELAY, default 0, max 30s.
	ReadinessDrainDelay time.Duration
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name    string // SERVICE_NAME, default "user-service"
	Port    string // PORT, default "5000"
	Version string // VERSION, default "1.0.0"
	Env     string // ENV, default "development"
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled            bool    // TRACING_ENABLED
	Endpoint           string  // OTEL_COLLECTOR_ENDPOINT, host:port of the OTLP/HTTP receiver
	SampleRate         float64 // OTEL_SAMPLE_RATE, 0.0-1.0
	MaxExportBatchSize int     // OTEL_BATCH_SIZE
}

// ProfilingConfig configures Pyroscope.
type ProfilingConfig struct {
	Enabled  bool   // PROFILING_ENABLED
	Endpoint string // PYROSCOPE_ENDPOINT
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string // LOG_LEVEL: debug, info, warn, error
	Format string // LOG_FORMAT: json, console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // METRICS_ENABLED, default true
	Path    string // METRICS_PATH, default "/metrics"
}

// CORSConfig defines which browser origins may call the API.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated, default "*"
}

// AllowAll reports whether any origin is accepted.
func (c CORSConfig) AllowAll() bool {
	return slices.Contains(c.AllowedOrigins, "*")
}

// DatabaseConfig configures the users store.
type DatabaseConfig struct {
	Backend        string // STORAGE_BACKEND: postgres, memory
	Host           string // DB_HOST
	Port           string // DB_PORT
	Name           string // DB_NAME
	User           string // DB_USER
	Password       string // DB_PASSWORD
	SSLMode        string // DB_SSLMODE
	MaxConnections int    // DB_POOL_MAX_CONNECTIONS
	InitSchema     bool   // DB_INIT_SCHEMA, create the users table when missing
}

// BuildDSN returns a postgresql:// URL with user and password escaped.
func (c *DatabaseConfig) BuildDSN() string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Load reads the configuration. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "user-service"),
			Port:    getEnv("PORT", "5000"),
			Version: getEnv("VERSION", "1.0.0"),
			Env:     getEnv("ENV", "development"),
		},
		Tracing: TracingConfig{
			Enabled:            getEnvBool("TRACING_ENABLED", false),
			Endpoint:           getEnv("OTEL_COLLECTOR_ENDPOINT", "localhost:4318"),
			SampleRate:         getEnvParsed("OTEL_SAMPLE_RATE", 0.1, parseFloat),
			MaxExportBatchSize: getEnvParsed("OTEL_BATCH_SIZE", 512, strconv.Atoi),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PYROSCOPE_ENDPOINT", "http://localhost:4040"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Database: DatabaseConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			Name:           getEnv("DB_NAME", "users_db"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvParsed("DB_POOL_MAX_CONNECTIONS", 10, strconv.Atoi),
			InitSchema:     getEnvBool("DB_INIT_SCHEMA", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, time.Minute),
		ReadinessDrainDelay: getEnvDuration("READINESS_DRAIN_DELAY", 0, 30*time.Second),
	}
}

// problems accumulates validation failures so they can be reported at once.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) oneOf(name, value string, allowed []string) {
	if !slices.Contains(allowed, strings.ToLower(value)) {
		p.addf("%s must be one of %v, got: %q", name, allowed, value)
	}
}

func (p *problems) number(name, value string) {
	if _, err := strconv.Atoi(value); err != nil {
		p.addf("%s must be a valid number, got: %q", name, value)
	}
}

// Validate checks every field and reports all problems in a single error.
func (c *Config) Validate() error {
	var p problems

	if c.Service.Name == "" {
		p.addf("SERVICE_NAME must not be empty")
	}
	p.number("PORT", c.Service.Port)
	p.oneOf("ENV", c.Service.Env, validEnvs)

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			p.addf("OTEL_COLLECTOR_ENDPOINT is required when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			p.addf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got: %.2f", c.Tracing.SampleRate)
		}
	}
	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		p.addf("PYROSCOPE_ENDPOINT is required when profiling is enabled")
	}

	p.oneOf("LOG_LEVEL", c.Logging.Level, validLogLevels)
	p.oneOf("LOG_FORMAT", c.Logging.Format, validLogFormats)
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		p.addf("METRICS_PATH must start with /, got: %q", c.Metrics.Path)
	}

	p.oneOf("STORAGE_BACKEND", c.Database.Backend, validBackends)
	if c.Database.Backend == BackendPostgres {
		if c.Database.Host == "" {
			p.addf("DB_HOST must not be empty")
		}
		if c.Database.Name == "" {
			p.addf("DB_NAME must not be empty")
		}
		p.number("DB_PORT", c.Database.Port)
		if c.Database.MaxConnections <= 0 {
			p.addf("DB_POOL_MAX_CONNECTIONS must be positive, got: %d", c.Database.MaxConnections)
		}
	}

	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

// IsDevelopment reports ENV=development or dev.
func (c *Config) IsDevelopment() bool {
	return slices.Contains([]string{"development", "dev"}, strings.ToLower(c.Service.Env))
}

// IsProduction reports ENV=production or prod.
func (c *Config) IsProduction() bool {
	return slices.Contains([]string{"production", "prod"}, strings.ToLower(c.Service.Env))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvBool treats "true", "1" and "yes" as true.
func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// getEnvParsed returns fallback when the variable is unset or does not parse.
func getEnvParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string, fallback []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// getEnvDuration parses a Go duration ("5s", "1m"). Values that do not parse
// or fall outside [0, limit] yield fallback, so a typo never blocks startup.
func getEnvDuration(key string, fallback, limit time.Duration) time.Duration {
	d := getEnvParsed(key, fallback, time.ParseDuration)
	if d < 0 || d > limit {
		return fallback
	}
	return d
}
