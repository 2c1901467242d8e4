// Package config loads passcheck settings from defaults, a YAML file,
// PASSCHECK_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/exploopio/passcheck/pkg/errors"
	"github.com/exploopio/passcheck/pkg/logging"
)

const (
	appName   = "passcheck"
	envPrefix = "PASSCHECK"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
	Log     logging.Config `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Audit   AuditConfig    `mapstructure:"audit" yaml:"audit"`
	Health  HealthConfig   `mapstructure:"health" yaml:"health"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	Compression     bool          `mapstructure:"compression" yaml:"compression"`
	CompressMinSize int           `mapstructure:"compression_min_bytes" yaml:"compression_min_bytes"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	File          string        `mapstructure:"file" yaml:"file"`
	Verbose       bool          `mapstructure:"verbose" yaml:"verbose"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// HealthConfig configures the health checks.
type HealthConfig struct {
	Timeout              time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxHeapMB            uint64        `mapstructure:"max_heap_mb" yaml:"max_heap_mb"`
	MaxHostMemoryPercent float64       `mapstructure:"max_host_memory_percent" yaml:"max_host_memory_percent"`
	HideDetails          bool          `mapstructure:"hide_details" yaml:"hide_details"`
}

// Defaults returns the value of every key before file, env and flags.
func Defaults() map[string]any {
	return map[string]any{
		"server.address":                 ":5000",
		"server.read_timeout":            "10s",
		"server.write_timeout":           "10s",
		"server.shutdown_timeout":        "15s",
		"server.max_body_bytes":          64 << 10,
		"server.compression":             true,
		"server.compression_min_bytes":   256,
		"log.level":                      "info",
		"log.format":                     logging.FormatJSON,
		"metrics.enabled":                true,
		"metrics.path":                   "/metrics",
		"audit.enabled":                  false,
		"audit.file":                     defaultAuditFile(),
		"audit.verbose":                  false,
		"audit.flush_interval":           "5s",
		"health.timeout":                 "5s",
		"health.max_heap_mb":             0,
		"health.max_host_memory_percent": 0,
		"health.hide_details":            false,
	}
}

func defaultAuditFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, "."+appName, "audit.log")
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"address":     "server.address",
	"compression": "server.compression",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"metrics":     "metrics.enabled",
	"audit":       "audit.enabled",
	"audit-file":  "audit.file",
}

// RegisterFlags adds the flags that can override configuration keys.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("address", d["server.address"].(string), "address to listen on")
	fs.Bool("compression", d["server.compression"].(bool), "compress responses when the client accepts zstd or gzip")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("log-format", d["log.format"].(string), "log format (json, console)")
	fs.Bool("metrics", d["metrics.enabled"].(bool), "expose Prometheus metrics")
	fs.Bool("audit", d["audit.enabled"].(bool), "write an audit trail of lifecycle events")
	fs.String("audit-file", d["audit.file"].(string), "audit trail location")
}

func configDirs() []string {
	var dirs []string
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, appName))
	}
	if runtime.GOOS == "windows" {
		dirs = append(dirs, filepath.Join(os.Getenv("ProgramData"), appName))
	} else {
		dirs = append(dirs, filepath.Join("/etc", appName))
	}
	return append(dirs, ".")
}

// Load builds the configuration. An explicit configFile must exist; without
// one, passcheck.yaml is looked up in the user config dir, the system
// config dir and the working directory, and may be absent.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	for _, dir := range configDirs() {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	const op = "config.Validate"
	invalid := func(msg string) error {
		return errors.E(errors.KindInvalidInput, op, msg, errors.ErrInvalidConfig)
	}

	switch {
	case strings.TrimSpace(c.Server.Address) == "":
		return invalid("server.address must not be empty")
	case c.Server.ReadTimeout <= 0:
		return invalid("server.read_timeout must be positive")
	case c.Server.WriteTimeout <= 0:
		return invalid("server.write_timeout must be positive")
	case c.Server.ShutdownTimeout <= 0:
		return invalid("server.shutdown_timeout must be positive")
	case c.Server.MaxBodyBytes <= 0:
		return invalid("server.max_body_bytes must be positive")
	case c.Server.CompressMinSize < 0:
		return invalid("server.compression_min_bytes must not be negative")
	case c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/"):
		return invalid("metrics.path must start with /")
	case c.Metrics.Enabled && c.Metrics.Path == "/check":
		return invalid("metrics.path must not shadow /check")
	case c.Audit.Enabled && strings.TrimSpace(c.Audit.File) == "":
		return invalid("audit.file must be set when audit is enabled")
	case c.Health.Timeout <= 0:
		return invalid("health.timeout must be positive")
	case c.Health.MaxHostMemoryPercent < 0 || c.Health.MaxHostMemoryPercent > 100:
		return invalid("health.max_host_memory_percent must be between 0 and 100")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.E(errors.KindInvalidInput, op, err.Error(), errors.ErrInvalidConfig)
	}
	return nil
}
