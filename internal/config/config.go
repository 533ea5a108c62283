package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Storage StorageConfig `mapstructure:"storage"`
	Media   MediaConfig   `mapstructure:"media"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig holds content provider configuration
type SourceConfig struct {
	Mode string `mapstructure:"mode"` // "api" or "static"
	URL  string `mapstructure:"url"`  // Provider base URL
}

// StorageConfig holds local store configuration
type StorageConfig struct {
	Dir string `mapstructure:"dir"` // Directory for the bbolt database
}

// MediaConfig holds media cache configuration
type MediaConfig struct {
	Dir string `mapstructure:"dir"` // Directory for cached media files
}

// SyncConfig holds sync behavior configuration
type SyncConfig struct {
	RecentWindowDays int `mapstructure:"recent_window_days"` // "my boxes" recency window
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`    // Remote fetch timeout
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Mode: "api",
			URL:  "",
		},
		Storage: StorageConfig{
			Dir: defaultDataPath("store"),
		},
		Media: MediaConfig{
			Dir: defaultDataPath("media"),
		},
		Sync: SyncConfig{
			RecentWindowDays: 30,
			TimeoutSeconds:   10,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// IsConfigured returns true if the provider URL is set
func (c *Config) IsConfigured() bool {
	return c.Source.URL != ""
}

// defaultDataPath returns a data subdirectory path for the current OS
func defaultDataPath(sub string) string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "boxiii", sub)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "boxiii", sub)
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "boxiii", "boxiii.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "boxiii", "boxiii.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "boxiii")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "boxiii")
	}
}

// setDefaults registers every key with viper. Unmarshal only sees keys viper
// knows about, so an env-only override like BOXIII_SOURCE_URL is dropped
// unless its key is registered here first.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.mode", cfg.Source.Mode)
	v.SetDefault("source.url", cfg.Source.URL)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("media.dir", cfg.Media.Dir)
	v.SetDefault("sync.recent_window_days", cfg.Sync.RecentWindowDays)
	v.SetDefault("sync.timeout_seconds", cfg.Sync.TimeoutSeconds)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from file and environment.
// Precedence: BOXIII_* environment variables, then the config file, then
// defaults. Nested keys map to env vars with underscores, so source.url is
// overridden by BOXIII_SOURCE_URL.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	// Environment variable overrides
	v.SetEnvPrefix("BOXIII")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v := viper.New()
	v.Set("source.mode", cfg.Source.Mode)
	v.Set("source.url", cfg.Source.URL)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("media.dir", cfg.Media.Dir)
	v.Set("sync.recent_window_days", cfg.Sync.RecentWindowDays)
	v.Set("sync.timeout_seconds", cfg.Sync.TimeoutSeconds)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
