// Package config loads server settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the server settings.
type Config struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	LevelsDir      string `mapstructure:"levels_dir"`
	LevelSchema    string `mapstructure:"level_schema"`
	StoreBackend   string `mapstructure:"store_backend"`
	DataDir        string `mapstructure:"data_dir"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	LogLevel       string `mapstructure:"log_level"`
}

// keys maps config keys to their flag names. Env vars are the upper-cased keys.
var keys = map[string]string{
	"host":            "host",
	"port":            "port",
	"levels_dir":      "levels-dir",
	"level_schema":    "level-schema",
	"store_backend":   "store",
	"data_dir":        "data-dir",
	"allowed_origins": "allowed-origins",
	"log_level":       "log-level",
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           5000,
		LevelsDir:      "./levels",
		StoreBackend:   "memory",
		DataDir:        "./data",
		AllowedOrigins: "*",
		LogLevel:       "info",
	}
}

// RegisterFlags adds one flag per config key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a config file (json, yaml, toml)")
	fs.String("host", d.Host, "interface to listen on")
	fs.Int("port", d.Port, "port to listen on")
	fs.String("levels-dir", d.LevelsDir, "directory containing level<N>.json files")
	fs.String("level-schema", d.LevelSchema, "optional JSON Schema every level must satisfy")
	fs.String("store", d.StoreBackend, "highscore backend: memory, json or sqlite")
	fs.String("data-dir", d.DataDir, "directory for the json and sqlite backends")
	fs.String("allowed-origins", d.AllowedOrigins, "comma separated CORS origins")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
}

// Load resolves settings with precedence flags > env > config file > defaults.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("levels_dir", d.LevelsDir)
	v.SetDefault("level_schema", d.LevelSchema)
	v.SetDefault("store_backend", d.StoreBackend)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("log_level", d.LogLevel)

	for key, flag := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Field: "port", Message: fmt.Sprintf("%d is not a valid port", c.Port)}
	}
	switch c.StoreBackend {
	case "memory", "json", "sqlite":
	default:
		return &ConfigError{Field: "store_backend", Message: fmt.Sprintf("unknown backend %q", c.StoreBackend)}
	}
	if c.LevelsDir == "" {
		return &ConfigError{Field: "levels_dir", Message: "must not be empty"}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Origins splits AllowedOrigins into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
