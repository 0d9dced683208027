package config

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "ccos.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/ccos"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
	// APIKeyEnvVar overrides LLM.APIKey when set, so a key never needs to
	// sit in a YAML file on disk.
	APIKeyEnvVar = "CCOS_LLM_API_KEY"
)

// Loader handles configuration loading with layered precedence, mirroring
// the teacher's config.Loader.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader; a nil logger falls back to
// slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
//  1. Default config
//  2. User config (~/.config/ccos/config.yaml)
//  3. Project config (ccos.yaml in the current or a parent directory)
//  4. CCOS_LLM_API_KEY environment variable
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("loaded user config", slog.String("path", userConfigPath))
		cfg.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("loaded project config", slog.String("path", projectConfigPath))
			cfg.Merge(projectConfig)
		} else {
			l.logger.Warn("failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("no project config found")
	}

	if key := os.Getenv(APIKeyEnvVar); key != "" {
		cfg.LLM.APIKey = key
	}

	if len(cfg.Marketplace.WatchPaths) == 0 {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			cfg.Marketplace.WatchPaths = []string{filepath.Join(gitRoot, "capabilities")}
			l.logger.Debug("defaulting capability watch path to git root", slog.String("path", gitRoot))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureUserConfig writes the default config to the user config path if it
// doesn't already exist.
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	cfg := DefaultConfig()
	if err := cfg.SaveToFile(userConfigPath); err != nil {
		return err
	}
	l.logger.Info("created default user config", slog.String("path", userConfigPath))
	return nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for ProjectConfigFile in the current
// directory and its ancestors, the same upward walk the teacher uses to
// find semspec.yaml.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// detectGitRoot finds the git repository root from the current directory;
// used by callers that want a repo-relative default for
// Marketplace.WatchPaths.
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
