package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MicroVM.Provider != "mock" {
		t.Errorf("expected default microvm provider mock, got %s", cfg.MicroVM.Provider)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %f", cfg.LLM.Temperature)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}, wantErr: false},
		{name: "missing microvm provider", modify: func(c *Config) { c.MicroVM.Provider = "" }, wantErr: true},
		{name: "unknown microvm provider", modify: func(c *Config) { c.MicroVM.Provider = "qemu" }, wantErr: true},
		{name: "unknown resource enforcement", modify: func(c *Config) { c.Marketplace.ResourceEnforcement = "enforce" }, wantErr: true},
		{name: "temperature too low", modify: func(c *Config) { c.LLM.Temperature = -0.1 }, wantErr: true},
		{name: "temperature too high", modify: func(c *Config) { c.LLM.Temperature = 1.1 }, wantErr: true},
		{name: "external nats without url", modify: func(c *Config) { c.NATS.Embedded = false; c.NATS.URL = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
runtime:
  heartbeat_cron: "@every 10s"
nats:
  url: "nats://test:4222"
microvm:
  provider: "process"
  default_timeout_ms: 5000
llm:
  provider: "openai"
  model: "gpt-4o"
  temperature: 0.5
  timeout: 10m
discovery:
  mcp_registry_url: "https://registry.example.test"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.MicroVM.Provider != "process" {
		t.Errorf("expected microvm provider process, got %s", cfg.MicroVM.Provider)
	}
	if cfg.MicroVM.DefaultTimeoutMS != 5000 {
		t.Errorf("expected default_timeout_ms 5000, got %d", cfg.MicroVM.DefaultTimeoutMS)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected llm model gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 10*time.Minute {
		t.Errorf("expected llm timeout 10m, got %v", cfg.LLM.Timeout)
	}
	if cfg.Discovery.MCPRegistryURL != "https://registry.example.test" {
		t.Errorf("expected mcp registry url, got %s", cfg.Discovery.MCPRegistryURL)
	}
	// Fields absent from the file keep their DefaultConfig value.
	if cfg.Discovery.EnableNPM != true {
		t.Error("expected enable_npm to keep its default of true")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		LLM: LLMConfig{
			Model: "override-model",
		},
		NATS: NATSConfig{
			URL: "nats://override:4222",
		},
	}

	base.Merge(override)

	if base.LLM.Model != "override-model" {
		t.Errorf("expected model override-model, got %s", base.LLM.Model)
	}
	// Temperature should remain from base since override didn't set it.
	if base.LLM.Temperature != 0.2 {
		t.Errorf("expected temperature to remain default, got %f", base.LLM.Temperature)
	}
	if base.NATS.URL != "nats://override:4222" {
		t.Errorf("expected NATS URL nats://override:4222, got %s", base.NATS.URL)
	}
	if base.NATS.Embedded {
		t.Error("expected Embedded to flip false once an explicit URL is merged in")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.LLM.Model != "saved-model" {
		t.Errorf("expected model saved-model, got %s", loaded.LLM.Model)
	}
}
