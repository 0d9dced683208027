package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderEnsureUserConfigCreatesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := NewLoader(slog.Default())
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}

	path := filepath.Join(home, UserConfigDir, UserConfigFile)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected user config at %s, got err: %v", path, err)
	}

	// A second call must not fail or clobber an edited file.
	if err := os.WriteFile(path, []byte("llm:\n  model: edited\n"), 0644); err != nil {
		t.Fatalf("failed to edit user config: %v", err)
	}
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() second call error = %v", err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.LLM.Model != "edited" {
		t.Error("EnsureUserConfig overwrote an existing user config")
	}
}

func TestLoaderLoadMergesUserAndProjectConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	userConfigPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	if err := os.MkdirAll(filepath.Dir(userConfigPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userConfigPath, []byte("llm:\n  provider: openai\n  model: user-model\n"), 0644); err != nil {
		t.Fatal(err)
	}

	projectDir := t.TempDir()
	projectConfigPath := filepath.Join(projectDir, ProjectConfigFile)
	if err := os.WriteFile(projectConfigPath, []byte("llm:\n  model: project-model\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()
	if err := os.Chdir(projectDir); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(slog.Default())
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider from user config 'openai', got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "project-model" {
		t.Errorf("expected model overridden by project config 'project-model', got %s", cfg.LLM.Model)
	}
}

func TestLoaderLoadAppliesAPIKeyEnvVar(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(APIKeyEnvVar, "env-secret-key")

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(slog.Default())
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "env-secret-key" {
		t.Errorf("expected APIKey from %s, got %q", APIKeyEnvVar, cfg.LLM.APIKey)
	}
}
