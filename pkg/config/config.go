package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/froyo-provider/pkg/telemetry"
)

// Config is the provider host configuration.
type Config struct {
	// Plugin identifies the provider plugin being hosted.
	Plugin PluginConfig `yaml:"plugin" validate:"required"`

	// Listen configures the RPC listener.
	Listen ListenConfig `yaml:"listen"`

	// State configures the resource checkpoint store.
	State StateConfig `yaml:"state"`

	// Telemetry configures logging, tracing, and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PluginConfig names the hosted plugin.
type PluginConfig struct {
	// Name is the provider package name (e.g. "kv").
	Name string `yaml:"name" validate:"required"`

	// Version is the plugin version reported to the engine.
	Version string `yaml:"version"`
}

// ListenConfig configures the RPC listener.
type ListenConfig struct {
	// Address is the TCP address to bind. Port 0 picks an ephemeral port,
	// which the host announces on stdout.
	Address string `yaml:"address" validate:"omitempty,hostname_port"`
}

// StateConfig configures the checkpoint store.
type StateConfig struct {
	// Path is the SQLite database file. ":memory:" keeps state in memory.
	Path string `yaml:"path"`
}

// TelemetryConfig is the YAML shape of the telemetry settings.
type TelemetryConfig struct {
	// Environment is the deployment environment (development, production).
	Environment string `yaml:"environment" validate:"omitempty,oneof=development staging production"`

	// LogLevel sets the minimum log level.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`

	// LogFormat selects console or json output.
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=console json"`

	// TracingEnabled turns on distributed tracing.
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingEndpoint is the OTLP collector endpoint.
	TracingEndpoint string `yaml:"tracing_endpoint"`

	// MetricsEnabled turns on the metrics HTTP endpoint.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// MetricsAddress is the metrics listen address.
	MetricsAddress string `yaml:"metrics_address" validate:"omitempty,hostname_port"`
}

// Default returns the host configuration used when no file is given.
func Default() *Config {
	return &Config{
		Plugin: PluginConfig{
			Name:    "provider",
			Version: "0.0.0",
		},
		Listen: ListenConfig{
			Address: "127.0.0.1:0",
		},
		State: StateConfig{
			Path: ":memory:",
		},
		Telemetry: TelemetryConfig{
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "console",
		},
	}
}

// Load reads and validates a configuration file. Fields the file omits keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// TelemetryConfig builds the runtime telemetry configuration from the host
// settings.
func (c *Config) TelemetryConfig() *telemetry.Config {
	var tcfg *telemetry.Config
	if c.Telemetry.Environment == "production" {
		tcfg = telemetry.ProductionConfig()
	} else {
		tcfg = telemetry.DefaultConfig()
	}

	tcfg.ServiceName = "froyo-provider"
	tcfg.ServiceVersion = c.Plugin.Version
	tcfg.ResourceAttributes["plugin.name"] = c.Plugin.Name

	if c.Telemetry.LogLevel != "" {
		tcfg.Logging.Level = c.Telemetry.LogLevel
	}
	if c.Telemetry.LogFormat != "" {
		tcfg.Logging.Format = c.Telemetry.LogFormat
	}
	tcfg.Tracing.Enabled = c.Telemetry.TracingEnabled
	if c.Telemetry.TracingEnabled {
		tcfg.Tracing.Exporter = "otlp"
		tcfg.Tracing.Endpoint = c.Telemetry.TracingEndpoint
	}
	tcfg.Metrics.Enabled = c.Telemetry.MetricsEnabled
	if c.Telemetry.MetricsAddress != "" {
		tcfg.Metrics.ListenAddress = c.Telemetry.MetricsAddress
	}
	return tcfg
}
