// Package config loads tablepad settings from defaults, an optional config
// file, a .env file, TABLEPAD_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nao1215/tablepad/internal/logging"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TABLEPAD"

// ConfigFileName is the config file name searched for, without extension.
const ConfigFileName = "tablepad"

// Config holds all application configuration.
type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Query  QueryConfig  `mapstructure:"query"`
}

// StoreConfig holds the location of the persistent store.
type StoreConfig struct {
	// Path is the fixed store file (default: tablepad.db)
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `mapstructure:"addr"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxUploadBytes limits the size of an uploaded file (default: 256MiB)
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`

	// Format is json or console (default: console)
	Format string `mapstructure:"format"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	// DefaultSQL runs when the user submits blank SQL (default: SHOW TABLES;)
	DefaultSQL string `mapstructure:"default_sql"`

	// ReadOnly opens query and export sessions read-only (default: false)
	ReadOnly bool `mapstructure:"read_only"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "tablepad.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(256<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)

	v.SetDefault("query.default_sql", "SHOW TABLES;")
	v.SetDefault("query.read_only", false)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// skipped. With no arguments ".env" is used.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration into a Config. Priority from highest: flags bound
// to v, environment, config file, defaults. An explicit cfgFile must exist;
// otherwise tablepad.yaml is searched in the working directory and
// $HOME/.tablepad and may be absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tablepad")
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all configuration values are sensible.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, "store.path is required")
	}
	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "server.max_upload_bytes must be positive")
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatConsole, "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
