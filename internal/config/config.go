package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Detection defaults
	Threshold   float64  `mapstructure:"threshold" yaml:"threshold"`
	Normalize   bool     `mapstructure:"normalize" yaml:"normalize"`
	Formula     string   `mapstructure:"formula" yaml:"formula"`
	MainEffects bool     `mapstructure:"main_effects" yaml:"main_effects"`
	Columns     []string `mapstructure:"columns" yaml:"columns"`

	// Input/output
	Format    string `mapstructure:"format" yaml:"format"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows   int    `mapstructure:"max_rows" yaml:"max_rows"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		Threshold:   2.576,
		Normalize:   true,
		Formula:     "literal",
		MainEffects: true,
		Columns:     []string{},
		Format:      "table",
		MaxRows:     100000,
		LogLevel:    "info",
	}
}

// Dir returns ~/.exval.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".exval"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.exval/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EXVAL")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("normalize", d.Normalize)
	v.SetDefault("formula", d.Formula)
	v.SetDefault("main_effects", d.MainEffects)
	v.SetDefault("columns", d.Columns)
	v.SetDefault("format", d.Format)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("log_level", d.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated settings.
func (c *Global) Validate() error {
	switch strings.ToLower(c.Formula) {
	case "literal", "standardized":
	default:
		return fmt.Errorf("invalid formula: %s (use literal|standardized)", c.Formula)
	}
	switch strings.ToLower(c.Format) {
	case "table", "html", "csv", "md", "markdown", "json":
	default:
		return fmt.Errorf("invalid format: %s (use table|html|csv|markdown|json)", c.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("invalid max_rows: %d", c.MaxRows)
	}
	return nil
}

// ParseLevel maps a log_level value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", s)
	}
}
