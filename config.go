package gantry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the environment.
const EnvPrefix = "GANTRY"

const configName = "config"

// Config is the gantry configuration, read from config.yaml in the config
// directory and overridden by GANTRY_* environment variables.
type Config struct {
	viper             *viper.Viper
	ConfigDir         string        `mapstructure:"config_dir"`
	APIURL            string        `mapstructure:"api_url"`            // Catalog base URL
	LaunchpadLimit    int           `mapstructure:"launchpad_limit"`    // Launchpads per batch
	LaunchLimit       int           `mapstructure:"launch_limit"`       // Launches per batch
	PageSize          int           `mapstructure:"page_size"`          // Initial page size of every table
	PageSizeOptions   []int         `mapstructure:"page_size_options"`  // Page sizes offered to the user
	Timeout           time.Duration `mapstructure:"timeout"`            // Per request timeout
	RateLimit         float64       `mapstructure:"rate_limit"`         // Catalog requests per second, 0 disables
	RateBurst         int           `mapstructure:"rate_burst"`
	ChromeFingerprint bool          `mapstructure:"chrome_fingerprint"` // Mimic Chrome's TLS handshake
	Trace             bool          `mapstructure:"trace"`              // Log request and response dumps
	Offline           bool          `mapstructure:"offline"`            // Read the snapshot store instead of the catalog
	DBPath            string        `mapstructure:"db_path"`
	ListenAddr        string        `mapstructure:"listen_addr"`
	TLSCert           string        `mapstructure:"tls_cert"`
	TLSKey            string        `mapstructure:"tls_key"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"` // text or json
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("config_dir", configDir)
	v.SetDefault("api_url", "https://api.spacexdata.com")
	v.SetDefault("launchpad_limit", 10)
	v.SetDefault("launch_limit", 200)
	v.SetDefault("page_size", 5)
	v.SetDefault("page_size_options", []int{5, 10, 20})
	v.SetDefault("timeout", "30s")
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("rate_burst", 5)
	v.SetDefault("chrome_fingerprint", false)
	v.SetDefault("trace", false)
	v.SetDefault("offline", false)
	v.SetDefault("db_path", filepath.Join(configDir, "gantry.db"))
	v.SetDefault("listen_addr", "127.0.0.1:8090")
	v.SetDefault("tls_cert", "")
	v.SetDefault("tls_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, configDir)
	return v
}

// DefaultConfig returns the defaults without touching the filesystem or the
// environment. The database lives in the working directory.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v, ".")
	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		// defaults are static and always decode
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return cfg
}

// LoadConfig reads config.yaml from configDir, creating the directory and a
// config file holding the defaults on first run.
func LoadConfig(configDir string) (*Config, error) {
	if _, err := os.ReadDir(configDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking if directory exists %s: %w", configDir, err)
		}
		if err := os.MkdirAll(configDir, 0700); err != nil {
			return nil, fmt.Errorf("creating config dir %s: %w", configDir, err)
		}
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file : %w", err)
		}
		if err := v.SafeWriteConfig(); err != nil {
			return nil, fmt.Errorf("writing config file : %w", err)
		}
	}

	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	cfg.ConfigDir = configDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (cfg *Config) Validate() error {
	switch {
	case strings.TrimSpace(cfg.APIURL) == "":
		return errors.New("api_url cannot be empty")
	case cfg.LaunchpadLimit <= 0 || cfg.LaunchLimit <= 0:
		return fmt.Errorf("batch limits must be positive, got %d and %d", cfg.LaunchpadLimit, cfg.LaunchLimit)
	case cfg.PageSize <= 0:
		return fmt.Errorf("page_size must be positive, got %d", cfg.PageSize)
	case cfg.RateLimit < 0:
		return fmt.Errorf("rate_limit cannot be negative, got %v", cfg.RateLimit)
	case cfg.LogFormat != "text" && cfg.LogFormat != "json":
		return fmt.Errorf("log_format should be text or json, got %q", cfg.LogFormat)
	}
	if slices.ContainsFunc(cfg.PageSizeOptions, func(size int) bool { return size <= 0 }) {
		return fmt.Errorf("page_size_options must be positive, got %v", cfg.PageSizeOptions)
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (cfg *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return level, fmt.Errorf("parsing log_level %q: %w", cfg.LogLevel, err)
	}
	return level, nil
}

// Set stores value under key, writes the config file and reloads the struct.
func (cfg *Config) Set(key string, value any) error {
	if !slices.Contains(cfg.viper.AllKeys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	previous := cfg.viper.Get(key)
	cfg.viper.Set(key, value)
	if err := cfg.viper.Unmarshal(cfg); err != nil {
		cfg.viper.Set(key, previous)
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	if err := cfg.Validate(); err != nil {
		cfg.viper.Set(key, previous)
		cfg.viper.Unmarshal(cfg)
		return err
	}
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// Get returns the raw value of key.
func (cfg *Config) Get(key string) any {
	return cfg.viper.Get(key)
}

// Keys lists every known configuration key, sorted.
func (cfg *Config) Keys() []string {
	keys := cfg.viper.AllKeys()
	slices.Sort(keys)
	return keys
}
