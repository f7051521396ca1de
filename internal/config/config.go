// Package config handles configuration for the Nova client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Memphis465/nova/internal/models"
)

// Environment overrides
const (
	EnvConfigDir = "NOVA_CONFIG_DIR"
	EnvBaseURL   = "NOVA_BASE_URL"
)

// Cache storage backends
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	EnableEmoji      bool `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// BaseURL is the origin of the chat backend.
	BaseURL string `json:"base_url"`
	// CacheVersion names the offline cache. Changing it drops every older
	// cache the next time the worker activates.
	CacheVersion    string `json:"cache_version"`
	CacheBackend    string `json:"cache_backend"`
	CacheMaxEntries int    `json:"cache_max_entries"`
	// RequestTimeout is the network timeout in seconds.
	RequestTimeout  int            `json:"request_timeout"`
	TTSEnabled      bool           `json:"tts_enabled"`
	TTSCommand      string         `json:"tts_command,omitempty"`
	STTCommand      string         `json:"stt_command,omitempty"`
	Language        string         `json:"language"`
	Haptics         bool           `json:"haptics"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	ProxyListen     string         `json:"proxy_listen"`
	Verbose         bool           `json:"verbose"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://127.0.0.1:5000",
		CacheVersion:    models.DefaultCacheName,
		CacheBackend:    CacheBackendSQLite,
		CacheMaxEntries: 512,
		RequestTimeout:  120,
		TTSEnabled:      true,
		Language:        "en-US",
		Haptics:         true,
		CopyToClipboard: false,
		ProxyListen:     "127.0.0.1:8787",
		Verbose:         false,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Abs(dir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".nova"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the offline cache and local history
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetCachePath returns the path of the SQLite offline cache
func GetCachePath() (string, error) {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cache.db"), nil
}

// GetLogPath returns the path of the log file used while the TUI owns the terminal
func GetLogPath() (string, error) {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "nova.log"), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if base := os.Getenv(EnvBaseURL); base != "" {
		cfg.BaseURL = base
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setters maps user-facing keys to field updates
var setters = map[string]func(cfg *Config, value string) error{
	"base_url": func(cfg *Config, v string) error {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("base_url must start with http:// or https://")
		}
		cfg.BaseURL = strings.TrimRight(v, "/")
		return nil
	},
	"cache_version": func(cfg *Config, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("cache_version cannot be empty")
		}
		cfg.CacheVersion = v
		return nil
	},
	"cache_backend": func(cfg *Config, v string) error {
		if v != CacheBackendSQLite && v != CacheBackendMemory {
			return fmt.Errorf("cache_backend must be %q or %q", CacheBackendSQLite, CacheBackendMemory)
		}
		cfg.CacheBackend = v
		return nil
	},
	"cache_max_entries": func(cfg *Config, v string) error {
		return setPositiveInt(&cfg.CacheMaxEntries, "cache_max_entries", v)
	},
	"request_timeout": func(cfg *Config, v string) error {
		return setPositiveInt(&cfg.RequestTimeout, "request_timeout", v)
	},
	"tts_enabled":       func(cfg *Config, v string) error { return setBool(&cfg.TTSEnabled, v) },
	"tts_command":       func(cfg *Config, v string) error { cfg.TTSCommand = v; return nil },
	"stt_command":       func(cfg *Config, v string) error { cfg.STTCommand = v; return nil },
	"language":          func(cfg *Config, v string) error { cfg.Language = v; return nil },
	"haptics":           func(cfg *Config, v string) error { return setBool(&cfg.Haptics, v) },
	"copy_to_clipboard": func(cfg *Config, v string) error { return setBool(&cfg.CopyToClipboard, v) },
	"proxy_listen":      func(cfg *Config, v string) error { cfg.ProxyListen = v; return nil },
	"verbose":           func(cfg *Config, v string) error { return setBool(&cfg.Verbose, v) },
}

// SetValue updates the field named by key from its string form
func SetValue(cfg *Config, key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(cfg, value)
}

// Keys returns the settable configuration keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", v)
	}
	*dst = b
	return nil
}

func setPositiveInt(dst *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer", key)
	}
	*dst = n
	return nil
}
