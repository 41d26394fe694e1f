package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ServerConfig points the client at the backend.
type ServerConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SessionConfig tunes session behaviour.
type SessionConfig struct {
	// ServerLogout makes logout also invalidate the server-side session.
	ServerLogout *bool `yaml:"server_logout,omitempty"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// EnvOverrides are read from the environment (and .env) after the YAML file.
type EnvOverrides struct {
	BaseURL      string `envconfig:"BASE_URL"`
	TimeoutSecs  int    `envconfig:"TIMEOUT_SECS"`
	LogFile      string `envconfig:"LOG_FILE"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	ServerLogout *bool  `envconfig:"SERVER_LOGOUT"`
}

// EnvPrefix namespaces the environment overrides, e.g. LEXADOC_BASE_URL.
const EnvPrefix = "LEXADOC"

// Timeout is the per-request timeout as a duration.
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// ServerLogoutEnabled reports whether logout should call POST /logout.
func (c *AppConfig) ServerLogoutEnabled() bool {
	return c.Session.ServerLogout == nil || *c.Session.ServerLogout
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig()
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := applyConfigDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/lexadoc/config.yaml.
// If neither exists, it writes defaults to ~/.config/lexadoc/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserPath("config.yaml")
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg, err := defaultConfig()
	if err != nil {
		return nil, "", err
	}
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays LEXADOC_* environment variables onto cfg.
func ApplyEnv(cfg *AppConfig) error {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	if env.BaseURL != "" {
		cfg.Server.BaseURL = env.BaseURL
	}
	if env.TimeoutSecs > 0 {
		cfg.Server.TimeoutSecs = env.TimeoutSecs
	}
	if env.LogFile != "" {
		cfg.Log.File = env.LogFile
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.ServerLogout != nil {
		cfg.Session.ServerLogout = env.ServerLogout
	}
	return applyConfigDefaults(cfg)
}

func defaultUserPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lexadoc", name), nil
}

func defaultConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := applyConfigDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyConfigDefaults(cfg *AppConfig) error {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8000"
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = 30
	}
	if cfg.Session.ServerLogout == nil {
		enabled := true
		cfg.Session.ServerLogout = &enabled
	}
	if cfg.Log.File == "" {
		path, err := defaultUserPath("lexadoc.log")
		if err != nil {
			return err
		}
		cfg.Log.File = path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	return nil
}
