// Package config provides configuration loading and management for ccosd,
// the CCOS Runtime Service daemon (spec §4.K, §6). It mirrors the teacher's
// config package (config/config.go, config/loader.go): a plain
// yaml-tagged struct, DefaultConfig/Validate/LoadFromFile/SaveToFile/Merge,
// and a layered Loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ccosd configuration.
type Config struct {
	Runtime     RuntimeConfig     `yaml:"runtime"`
	NATS        NATSConfig        `yaml:"nats"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	MicroVM     MicroVMConfig     `yaml:"microvm"`
	LLM         LLMConfig         `yaml:"llm"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
}

// RuntimeConfig configures the Runtime Service (spec §4.K).
type RuntimeConfig struct {
	// HeartbeatCron is a robfig/cron spec for the integrity-check/Heartbeat
	// loop (e.g. "@every 30s").
	HeartbeatCron string `yaml:"heartbeat_cron"`
	// EventBufferSize is the per-subscriber Broadcaster channel buffer.
	EventBufferSize int `yaml:"event_buffer_size"`
}

// NATSConfig configures the NATS/JetStream connection the Causal Chain
// persists through (spec §4.E, §3 Open Question resolution).
type NATSConfig struct {
	// URL is the NATS server URL (empty = use an embedded server).
	URL string `yaml:"url"`
	// Embedded indicates whether to run an in-process NATS server rather
	// than dial URL.
	Embedded bool `yaml:"embedded"`
}

// MarketplaceConfig configures the Capability Marketplace's isolation and
// resource-accounting defaults (spec §4.D).
type MarketplaceConfig struct {
	// RequireAttestation rejects capability registration without a valid
	// attestation signature.
	RequireAttestation bool `yaml:"require_attestation"`
	// ResourceEnforcement is one of capability.Enforcement's values:
	// "Hard", "Warning", or "Adaptive".
	ResourceEnforcement string `yaml:"resource_enforcement"`
	// Allowlist lists capability IDs, mirroring the teacher's
	// tools.allowlist. It is loaded and merged like the other settings, but
	// no component reads it: registration is not filtered by it.
	Allowlist []string `yaml:"allowlist"`
	// WatchPaths are directories watched for capability manifest
	// hot-reload (fsnotify).
	WatchPaths []string `yaml:"watch_paths"`
}

// MicroVMConfig selects and configures the default sandbox Provider (spec
// §4.D MicroVM Provider).
type MicroVMConfig struct {
	// Provider selects the default sandbox backend: "mock", "process",
	// "gvisor", or "firecracker".
	Provider string `yaml:"provider"`
	// DefaultTimeoutMS and DefaultMemoryMB are loaded, defaulted and merged,
	// but the sandbox provider built at startup does not read them, so they
	// cap neither execution time nor memory.
	DefaultTimeoutMS int `yaml:"default_timeout_ms"`
	DefaultMemoryMB  int `yaml:"default_memory_mb"`
}

// LLMConfig configures the Modular Planner/Synthesis harness's LLM
// collaborator (spec §4.G step 2, §4.H).
type LLMConfig struct {
	// Provider selects the registered llm.Provider: "anthropic" or
	// "openai".
	Provider string `yaml:"provider"`
	// APIKey authenticates to Provider (read from file only if not
	// supplied via the CCOS_LLM_API_KEY environment variable).
	APIKey string `yaml:"api_key"`
	// Model is the default model identifier passed on every Request.
	Model string `yaml:"model"`
	// Temperature controls sampling randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout bounds a single Complete call.
	Timeout time.Duration `yaml:"timeout"`
}

// DiscoveryConfig configures the Server Discovery pipeline's sources (spec
// §4.I).
type DiscoveryConfig struct {
	// MCPRegistryURL is the base URL of an MCP server registry.
	MCPRegistryURL string `yaml:"mcp_registry_url"`
	// EnableNPM/EnableAPIsGuru toggle the corresponding built-in Source.
	EnableNPM      bool `yaml:"enable_npm"`
	EnableAPIsGuru bool `yaml:"enable_apis_guru"`
	// RankCacheRedisURL, when it parses as a Redis URL, backs the MCP
	// provider's session pool (empty = in-memory sessions). Discovery
	// ranking and dedupe keep no cache.
	RankCacheRedisURL string `yaml:"rank_cache_redis_url"`
	// MaxDiscoveryRounds bounds the Pipeline's discovery-retry loop (spec
	// §4.G step 6).
	MaxDiscoveryRounds int `yaml:"max_discovery_rounds"`
}

// DefaultConfig returns a Config with sensible defaults — everything
// runnable with no external services (embedded NATS, mock MicroVM
// provider, no LLM key).
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			HeartbeatCron:   "@every 30s",
			EventBufferSize: 64,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Marketplace: MarketplaceConfig{
			RequireAttestation:  false,
			ResourceEnforcement: "Hard",
		},
		MicroVM: MicroVMConfig{
			Provider:         "mock",
			DefaultTimeoutMS: 30_000,
			DefaultMemoryMB:  256,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-latest",
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
		},
		Discovery: DiscoveryConfig{
			EnableNPM:          true,
			EnableAPIsGuru:     true,
			MaxDiscoveryRounds: 2,
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MicroVM.Provider == "" {
		return fmt.Errorf("microvm.provider is required")
	}
	switch c.MicroVM.Provider {
	case "mock", "process", "gvisor", "firecracker":
	default:
		return fmt.Errorf("microvm.provider %q is not one of mock|process|gvisor|firecracker", c.MicroVM.Provider)
	}
	if c.Marketplace.ResourceEnforcement != "" {
		switch c.Marketplace.ResourceEnforcement {
		case "Hard", "Warning", "Adaptive":
		default:
			return fmt.Errorf("marketplace.resource_enforcement %q is not one of Hard|Warning|Adaptive", c.Marketplace.ResourceEnforcement)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	if c.NATS.URL == "" && !c.NATS.Embedded {
		return fmt.Errorf("nats.url is required unless nats.embedded is true")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, seeded with
// DefaultConfig so an absent field keeps its default rather than
// zero-valuing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges other into c, with other taking precedence for non-zero
// values (teacher's layered-precedence Merge, generalized to CCOS's wider
// Config).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Runtime.HeartbeatCron != "" {
		c.Runtime.HeartbeatCron = other.Runtime.HeartbeatCron
	}
	if other.Runtime.EventBufferSize != 0 {
		c.Runtime.EventBufferSize = other.Runtime.EventBufferSize
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Marketplace.ResourceEnforcement != "" {
		c.Marketplace.ResourceEnforcement = other.Marketplace.ResourceEnforcement
	}
	if other.Marketplace.RequireAttestation {
		c.Marketplace.RequireAttestation = true
	}
	if len(other.Marketplace.Allowlist) > 0 {
		c.Marketplace.Allowlist = other.Marketplace.Allowlist
	}
	if len(other.Marketplace.WatchPaths) > 0 {
		c.Marketplace.WatchPaths = other.Marketplace.WatchPaths
	}

	if other.MicroVM.Provider != "" {
		c.MicroVM.Provider = other.MicroVM.Provider
	}
	if other.MicroVM.DefaultTimeoutMS != 0 {
		c.MicroVM.DefaultTimeoutMS = other.MicroVM.DefaultTimeoutMS
	}
	if other.MicroVM.DefaultMemoryMB != 0 {
		c.MicroVM.DefaultMemoryMB = other.MicroVM.DefaultMemoryMB
	}

	if other.LLM.Provider != "" {
		c.LLM.Provider = other.LLM.Provider
	}
	if other.LLM.APIKey != "" {
		c.LLM.APIKey = other.LLM.APIKey
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Discovery.MCPRegistryURL != "" {
		c.Discovery.MCPRegistryURL = other.Discovery.MCPRegistryURL
	}
	if other.Discovery.RankCacheRedisURL != "" {
		c.Discovery.RankCacheRedisURL = other.Discovery.RankCacheRedisURL
	}
	if other.Discovery.MaxDiscoveryRounds != 0 {
		c.Discovery.MaxDiscoveryRounds = other.Discovery.MaxDiscoveryRounds
	}
}
