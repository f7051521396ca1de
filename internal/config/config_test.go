package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CacheVersion != "nova-v1" {
		t.Errorf("Expected default cache version 'nova-v1', got '%s'", cfg.CacheVersion)
	}

	if cfg.CacheBackend != CacheBackendSQLite {
		t.Errorf("Expected sqlite cache backend, got '%s'", cfg.CacheBackend)
	}

	if !cfg.TTSEnabled {
		t.Error("Expected TTS to be enabled by default")
	}

	if cfg.Verbose {
		t.Errorf("Expected Verbose to be false, got %v", cfg.Verbose)
	}
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvConfigDir, tmpDir)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() returned error: %v", err)
	}
	if dir != tmpDir {
		t.Errorf("GetConfigDir() = %s, want %s", dir, tmpDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() returned error: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("GetConfigPath() returned relative path: %s", path)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("GetConfigPath() = %s, want config.json", path)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvBaseURL, "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BaseURL != DefaultConfig().BaseURL {
		t.Errorf("BaseURL = %s, want default", cfg.BaseURL)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvBaseURL, "")

	cfg := DefaultConfig()
	cfg.BaseURL = "https://nova.example.com"
	cfg.CacheVersion = "nova-v2"
	cfg.TTSEnabled = false

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	path, _ := GetConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if loaded.BaseURL != cfg.BaseURL || loaded.CacheVersion != "nova-v2" || loaded.TTSEnabled {
		t.Errorf("LoadConfig() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadConfig_EnvBaseURL(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvBaseURL, "http://localhost:9000/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %s, want env override without trailing slash", cfg.BaseURL)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err == nil {
		t.Error("expected parse error")
	}
	if cfg.CacheVersion != DefaultConfig().CacheVersion {
		t.Error("expected defaults on parse error")
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvBaseURL, "")

	data, _ := json.Marshal(map[string]any{"cache_version": "nova-v7"})
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.CacheVersion != "nova-v7" {
		t.Errorf("CacheVersion = %s, want nova-v7", cfg.CacheVersion)
	}
	if cfg.RequestTimeout != DefaultConfig().RequestTimeout {
		t.Errorf("RequestTimeout = %d, want default", cfg.RequestTimeout)
	}
}

func TestSetValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(Config) bool
	}{
		{"base_url", "https://a.example/", false, func(c Config) bool { return c.BaseURL == "https://a.example" }},
		{"base_url", "ftp://a.example", true, nil},
		{"cache_version", "nova-v9", false, func(c Config) bool { return c.CacheVersion == "nova-v9" }},
		{"cache_version", " ", true, nil},
		{"cache_backend", "memory", false, func(c Config) bool { return c.CacheBackend == CacheBackendMemory }},
		{"cache_backend", "redis", true, nil},
		{"cache_max_entries", "0", true, nil},
		{"request_timeout", "30", false, func(c Config) bool { return c.RequestTimeout == 30 }},
		{"tts_enabled", "false", false, func(c Config) bool { return !c.TTSEnabled }},
		{"tts_enabled", "maybe", true, nil},
		{"unknown", "x", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := SetValue(&cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("SetValue(%s, %s) did not apply: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("Keys() not sorted: %v", keys)
		}
	}
}
