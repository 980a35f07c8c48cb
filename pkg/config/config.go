package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
)

const (
	xdgAppName = "raigen"
	configFile = "config.json"

	DefaultAPIURL     = "http://localhost:8080"
	DefaultScheme     = "raigen"
	DefaultAuthPort   = "6789"
	DefaultUserID     = "u1"
	DefaultAgendaDays = 7
	DefaultTimeout    = 30
)

// Config is the client configuration. Zero fields fall back to defaults in Load.
type Config struct {
	APIURL         string `json:"api_url"`
	GoogleClientID string `json:"google_client_id"`
	// Scheme is the redirect scheme: a custom app scheme, or "http" for a loopback redirect.
	Scheme         string `json:"scheme"`
	AuthPort       string `json:"auth_port"`
	UserID         string `json:"user_id"`
	PushToken      string `json:"push_token,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	LogLevel       string `json:"log_level,omitempty"`
	TasksFile      string `json:"tasks_file,omitempty"`
	AgendaDays     int    `json:"agenda_days"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		Scheme:         DefaultScheme,
		AuthPort:       DefaultAuthPort,
		UserID:         DefaultUserID,
		TimeoutSeconds: DefaultTimeout,
		AgendaDays:     DefaultAgendaDays,
	}
}

// Timeout is the per-request backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func GetConfigDir() (string, error) {
	if dir := os.Getenv("RAIGEN_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file, fills defaults and applies environment overrides.
// A missing file is not an error.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	// EXPO_PUBLIC_API_URL is honoured so the same env file drives the mobile app.
	if v := os.Getenv("EXPO_PUBLIC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("RAIGEN_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("EXPO_PUBLIC_GOOGLE_CLIENT_ID"); v != "" {
		c.GoogleClientID = v
	}
	if v := os.Getenv("RAIGEN_GOOGLE_CLIENT_ID"); v != "" {
		c.GoogleClientID = v
	}
	if v := os.Getenv("RAIGEN_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("RAIGEN_PUSH_TOKEN"); v != "" {
		c.PushToken = v
	}
	if v := os.Getenv("RAIGEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("RAIGEN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TimeoutSeconds = n
		}
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.AuthPort == "" {
		c.AuthPort = d.AuthPort
	}
	if c.UserID == "" {
		c.UserID = d.UserID
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.AgendaDays <= 0 {
		c.AgendaDays = d.AgendaDays
	}
}

// Save writes cfg to the default location.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile atomically replaces the config file at path.
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Set updates a single field by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = value
	case "google_client_id":
		c.GoogleClientID = value
	case "scheme":
		c.Scheme = value
	case "auth_port":
		c.AuthPort = value
	case "user_id":
		c.UserID = value
	case "push_token":
		c.PushToken = value
	case "log_level":
		c.LogLevel = value
	case "tasks_file":
		c.TasksFile = value
	case "timeout_seconds", "agenda_days":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		if key == "agenda_days" {
			c.AgendaDays = n
		} else {
			c.TimeoutSeconds = n
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
