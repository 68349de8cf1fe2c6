package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.QueueResolver.HTTPTimeoutMs != 2000 {
		t.Errorf("Expected default timeout 2000, got %d", cfg.QueueResolver.HTTPTimeoutMs)
	}
	if cfg.QueueResolver.MaxAttempts != 3 {
		t.Errorf("Expected default max attempts 3, got %d", cfg.QueueResolver.MaxAttempts)
	}
	if cfg.QueueResolver.InitialBackoffMs != 200 {
		t.Errorf("Expected default backoff 200, got %d", cfg.QueueResolver.InitialBackoffMs)
	}
	if cfg.Logging.Format != "human" || cfg.Logging.Level != "info" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".codesnap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	content := `{
		"queueResolver": {
			"mode": "endpoint",
			"functionEndpoint": "http://registry.local/functions",
			"maxAttempts": 5
		},
		"logging": {"level": "debug"}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.QueueResolver.Mode != ModeEndpoint {
		t.Errorf("Expected endpoint mode, got %q", cfg.QueueResolver.Mode)
	}
	if cfg.QueueResolver.FunctionEndpoint != "http://registry.local/functions" {
		t.Errorf("Unexpected endpoint: %q", cfg.QueueResolver.FunctionEndpoint)
	}
	if cfg.QueueResolver.MaxAttempts != 5 {
		t.Errorf("Expected max attempts 5, got %d", cfg.QueueResolver.MaxAttempts)
	}
	// Unset values keep their defaults.
	if cfg.QueueResolver.HTTPTimeoutMs != 2000 {
		t.Errorf("Expected default timeout, got %d", cfg.QueueResolver.HTTPTimeoutMs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.QueueResolver.Mode = ModeStore
	cfg.Logging.Format = "json"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.QueueResolver.Mode != ModeStore {
		t.Errorf("Mode not persisted: %q", loaded.QueueResolver.Mode)
	}
	if loaded.Logging.Format != "json" {
		t.Errorf("Logging format not persisted: %q", loaded.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"store mode", func(c *Config) { c.QueueResolver.Mode = ModeStore }, true},
		{"bad mode", func(c *Config) { c.QueueResolver.Mode = "remote" }, false},
		{"bad version", func(c *Config) { c.Version = 99 }, false},
		{"zero attempts", func(c *Config) { c.QueueResolver.MaxAttempts = 0 }, false},
		{"negative timeout", func(c *Config) { c.QueueResolver.HTTPTimeoutMs = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestResolverMode(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ResolverMode() != ModeStore {
		t.Errorf("Expected store mode with no endpoints, got %q", cfg.ResolverMode())
	}

	cfg.QueueResolver.TopicEndpoint = "http://registry.local/topics"
	if cfg.ResolverMode() != ModeEndpoint {
		t.Errorf("Expected endpoint mode with an endpoint set, got %q", cfg.ResolverMode())
	}

	cfg.QueueResolver.Mode = ModeStore
	if cfg.ResolverMode() != ModeStore {
		t.Errorf("Explicit mode must win, got %q", cfg.ResolverMode())
	}
}
