// Package config provides configuration management for asset-pipeline.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (ASSET_PIPELINE_ prefix)
//  3. Config file (.asset-pipeline.yaml)
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultEmbedLimit is the largest rendition, in bytes, embedded into events
// as a data URI.
const DefaultEmbedLimit = 32 * 1024

// DefaultCleanupExitCode is the process exit code used when work directory
// cleanup fails and kill-on-cleanup-failure is enabled.
const DefaultCleanupExitCode = 101

// Config represents the global configuration for asset-pipeline.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// BaseDirectory is the root under which per-step work directories are
	// created. Empty means the engine picks a temporary directory.
	BaseDirectory string `mapstructure:"base-directory" json:"baseDirectory"`

	// CatalogPaths are transformer catalog files or directories.
	CatalogPaths []string `mapstructure:"catalog" json:"catalog"`

	// ProbeSource enables metadata probing of local sources before planning.
	ProbeSource bool `mapstructure:"probe-source" json:"probeSource"`

	// EmbedLimit is the largest rendition, in bytes, embedded into events as
	// a data URI. Zero disables embedding.
	EmbedLimit int64 `mapstructure:"embed-limit" json:"embedLimit"`

	// MemoryLimit caps download buffering, expressed as a Kubernetes
	// quantity such as "512Mi". Empty means the limit is detected from
	// cgroups.
	MemoryLimit string `mapstructure:"memory-limit" json:"memoryLimit"`

	// KeepWorkDirs disables removal of per-step work directories after a
	// run, which helps when debugging transformers.
	KeepWorkDirs bool `mapstructure:"keep-work-dirs" json:"keepWorkDirs"`

	// KillOnCleanupFailure exits the process when work directory cleanup
	// fails, so orchestrators replace the container instead of reusing a
	// dirty one.
	KillOnCleanupFailure bool `mapstructure:"kill-on-cleanup-failure" json:"killOnCleanupFailure"`

	// CleanupExitCode is the exit code used by KillOnCleanupFailure.
	CleanupExitCode int `mapstructure:"cleanup-exit-code" json:"cleanupExitCode"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load() — not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:        LogLevelInfo,
		LogFormat:       LogFormatText,
		ProbeSource:     true,
		EmbedLimit:      DefaultEmbedLimit,
		CleanupExitCode: DefaultCleanupExitCode,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.EmbedLimit < 0 {
		return fmt.Errorf("invalid embed limit %d: must not be negative", c.EmbedLimit)
	}

	if c.CleanupExitCode < 1 || c.CleanupExitCode > 255 {
		return fmt.Errorf("invalid cleanup exit code %d: must be between 1 and 255", c.CleanupExitCode)
	}

	if c.MemoryLimit != "" {
		if _, err := resource.ParseQuantity(c.MemoryLimit); err != nil {
			return fmt.Errorf("invalid memory limit %q: %w", c.MemoryLimit, err)
		}
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", LogLevelInfo)
	v.SetDefault("log-format", LogFormatText)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("base-directory", "")
	v.SetDefault("catalog", []string{})
	v.SetDefault("probe-source", true)
	v.SetDefault("embed-limit", DefaultEmbedLimit)
	v.SetDefault("memory-limit", "")
	v.SetDefault("keep-work-dirs", false)
	v.SetDefault("kill-on-cleanup-failure", false)
	v.SetDefault("cleanup-exit-code", DefaultCleanupExitCode)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("ASSET_PIPELINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".asset-pipeline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "asset-pipeline"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}
type ctxFileKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}

// NewContextWithConfigFile returns a child context carrying the resolved
// config file path. This allows downstream code to locate the config file
// without re-discovering it.
func NewContextWithConfigFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ctxFileKey{}, path)
}

// ConfigFileFromContext extracts the config file path from ctx.
// Returns empty string if no config file was resolved.
func ConfigFileFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(ctxFileKey{}).(string); ok {
		return p
	}

	return ""
}
