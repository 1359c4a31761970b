// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Definitions   DefinitionsConfig   `yaml:"definitions"`
	OpenFisca     OpenFiscaConfig     `yaml:"openfisca"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// AuthConfig describes bearer token verification. When Enabled is false the
// journey API is open; health and metrics endpoints are always open.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// SecretEnv names the environment variable holding the HS256 shared
	// secret, so the secret itself never lives in the config file.
	SecretEnv string `yaml:"secret_env"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// Secret resolves the shared secret from the environment.
func (a AuthConfig) Secret() []byte {
	if a.SecretEnv == "" {
		return nil
	}
	return []byte(os.Getenv(a.SecretEnv))
}

// DefinitionsConfig describes where to find journey definition YAML files.
type DefinitionsConfig struct {
	Directories []string `yaml:"directories"`
}

// OpenFiscaConfig describes the OpenFisca instance and how to talk to it.
type OpenFiscaConfig struct {
	BaseURI string `yaml:"base_uri"`

	// AuthorizationEnv names the environment variable holding the
	// Authorization header value sent to the instance, if any.
	AuthorizationEnv string        `yaml:"authorization_env"`
	Timeout          time.Duration `yaml:"timeout"`

	// ProbeSpec enables the startup probe of /spec and /variables.
	ProbeSpec      bool                 `yaml:"probe_spec"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// Authorization resolves the instance Authorization header from the
// environment.
func (o OpenFiscaConfig) Authorization() string {
	if o.AuthorizationEnv == "" {
		return ""
	}
	return os.Getenv(o.AuthorizationEnv)
}

// CircuitBreakerConfig describes circuit breaker settings for the
// calculation service.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Definitions: DefinitionsConfig{
			Directories: []string{"/definitions"},
		},
		OpenFisca: OpenFiscaConfig{
			Timeout:   10 * time.Second,
			ProbeSpec: true,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Cooldown:         30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.OpenFisca.BaseURI == "" {
		errs = append(errs, "openfisca.base_uri is required")
	}
	if len(c.Definitions.Directories) == 0 {
		errs = append(errs, "definitions.directories must list at least one directory")
	}
	if c.Auth.Enabled && c.Auth.SecretEnv == "" {
		errs = append(errs, "auth.secret_env is required when auth is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads JOURNEY_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNEY_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("JOURNEY_OPENFISCA_BASE_URI"); v != "" {
		cfg.OpenFisca.BaseURI = v
	}
	if v := os.Getenv("JOURNEY_DEFINITIONS_DIRECTORIES"); v != "" {
		cfg.Definitions.Directories = strings.Split(v, ",")
	}
	if v := os.Getenv("JOURNEY_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("JOURNEY_AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = v == "true" || v == "1"
	}
}
