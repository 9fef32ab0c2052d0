// Package config provides configuration types and defaults for regform.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/registration"
)

// Config holds all configuration options for regform.
type Config struct {
	Debounce DebounceConfig `mapstructure:"debounce"`
	UI       UIConfig       `mapstructure:"ui"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DebounceConfig holds the quiet period of each validation stage.
type DebounceConfig struct {
	// Disabled turns every stage into a pass-through regardless of the
	// durations below.
	Disabled         bool          `mapstructure:"disabled"`
	Username         time.Duration `mapstructure:"username"`
	PasswordEmpty    time.Duration `mapstructure:"password_empty"`
	PasswordEquality time.Duration `mapstructure:"password_equality"`
	Strength         time.Duration `mapstructure:"strength"`
}

// Registration converts the debounce settings to a session configuration.
func (d DebounceConfig) Registration() registration.Config {
	if d.Disabled {
		return registration.NoDebounce()
	}
	return registration.Config{
		Username:         d.Username,
		PasswordEmpty:    d.PasswordEmpty,
		PasswordEquality: d.PasswordEquality,
		Strength:         d.Strength,
	}
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowLevel    bool `mapstructure:"show_level"`    // Show the strength line under the password
	MaskPassword bool `mapstructure:"mask_password"` // Echo password fields as bullets
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/regform/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the server.
	Addr string `mapstructure:"addr"`
}

// DefaultTracesFilePath returns the default path for trace files.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "regform", "traces", "traces.jsonl")
}

// ValidateDebounce checks debounce configuration for errors.
func ValidateDebounce(d DebounceConfig) error {
	stages := []struct {
		name string
		dur  time.Duration
	}{
		{"username", d.Username},
		{"password_empty", d.PasswordEmpty},
		{"password_equality", d.PasswordEquality},
		{"strength", d.Strength},
	}
	for _, st := range stages {
		if st.dur < 0 {
			return fmt.Errorf("debounce.%s must not be negative, got %s", st.name, st.dur)
		}
		if st.dur > time.Minute {
			return fmt.Errorf("debounce.%s must be at most 1m, got %s", st.name, st.dur)
		}
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateDebounce(c.Debounce); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	reg := registration.DefaultConfig()
	return Config{
		Debounce: DebounceConfig{
			Username:         reg.Username,
			PasswordEmpty:    reg.PasswordEmpty,
			PasswordEquality: reg.PasswordEquality,
			Strength:         reg.Strength,
		},
		UI: UIConfig{
			ShowLevel:    true,
			MaskPassword: true,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# regform configuration

# Quiet periods before a validation stage reacts to an edit.
# Set a stage to 0s, or disabled: true, to validate on every keystroke.
debounce:
  disabled: false
  username: 500ms           # username length check
  password_empty: 500ms     # password emptiness check
  password_equality: 200ms  # password / confirmation match
  strength: 200ms           # strength classification

# UI settings
ui:
  show_level: true     # Show the password strength line
  mask_password: true  # Echo passwords as bullets

# Distributed tracing (OpenTelemetry)
tracing:
  enabled: false
  exporter: file  # none, file, stdout, otlp
  # file_path: ~/.config/regform/traces/traces.jsonl
  # otlp_endpoint: localhost:4317
  sample_rate: 1.0

# Prometheus metrics endpoint (empty disables)
metrics:
  # addr: 127.0.0.1:9464
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	// Create parent directory if needed
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write the template
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
