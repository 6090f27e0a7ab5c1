// Package config loads the YAML configuration of a biosphere run, applies
// environment overrides and turns the result into a backend, a logger and
// engine options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/biosphere/engine"
	"github.com/hupe1980/biosphere/equilibrium"
	"github.com/hupe1980/biosphere/internal/util"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/spawner"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Supported backend providers.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ValidProviders lists every accepted Backend.Provider value.
var ValidProviders = []string{ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderGemini}

// Environment variables applied on top of the file.
const (
	EnvProvider = "BIOSPHERE_PROVIDER"
	EnvAPIKey   = "BIOSPHERE_API_KEY"
	EnvMaxTicks = "BIOSPHERE_MAX_TICKS"
	EnvLogLevel = "BIOSPHERE_LOG_LEVEL"
)

const redacted = "********"

// Config is the complete configuration of a run.
type Config struct {
	// Scenario is the opening goal injected as an external signal.
	Scenario    string             `yaml:"scenario" json:"scenario"`
	Backend     BackendConfig      `yaml:"backend" json:"backend"`
	Engine      engine.Config      `yaml:"engine" json:"engine"`
	Equilibrium equilibrium.Config `yaml:"equilibrium" json:"equilibrium"`
	Spawner     SpawnerConfig      `yaml:"spawner" json:"spawner"`
	Logging     LoggingConfig      `yaml:"logging" json:"logging"`
}

// BackendConfig selects and tunes the language-model backend.
type BackendConfig struct {
	Provider       string  `yaml:"provider" json:"provider"`
	Model          string  `yaml:"model,omitempty" json:"model,omitempty"`
	EmbeddingModel string  `yaml:"embedding_model,omitempty" json:"embedding_model,omitempty"`
	APIKey         string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL        string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`

	// EmbeddingAPIKey is the OpenAI key used for embeddings when the chat
	// provider (anthropic) has no embedding endpoint.
	EmbeddingAPIKey string `yaml:"embedding_api_key,omitempty" json:"embedding_api_key,omitempty"`

	// MockDimensions sizes the vectors of the mock embedder.
	MockDimensions int `yaml:"mock_dimensions" json:"mock_dimensions"`

	// MaxCalls caps embed and chat calls together; MaxEmbedCalls and
	// MaxChatCalls cap each kind. Zero is unlimited.
	MaxCalls      int     `yaml:"max_calls" json:"max_calls"`
	MaxEmbedCalls int     `yaml:"max_embed_calls" json:"max_embed_calls"`
	MaxChatCalls  int     `yaml:"max_chat_calls" json:"max_chat_calls"`
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
	Burst         int     `yaml:"burst" json:"burst"`
	Stream        bool    `yaml:"stream" json:"stream"`
}

// SpawnerConfig tunes the model-backed spawner.
type SpawnerConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	MaxSeedAgents int  `yaml:"max_seed_agents" json:"max_seed_agents"`
}

// LoggingConfig selects the log sink.
type LoggingConfig struct {
	// Driver is "slog" or "zap".
	Driver string `yaml:"driver" json:"driver"`
	Level  string `yaml:"level" json:"level"`
	// Format is "json" or "text".
	Format    string `yaml:"format" json:"format"`
	AddSource bool   `yaml:"add_source" json:"add_source"`
}

// Default returns the configuration used when no file is present: the
// offline mock backend and the engine and detector defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:       ProviderMock,
			Temperature:    0.7,
			MockDimensions: 256,
			Burst:          1,
		},
		Engine:      engine.DefaultConfig(),
		Equilibrium: equilibrium.DefaultConfig(),
		Spawner: SpawnerConfig{
			Enabled:       true,
			MaxSeedAgents: spawner.DefaultMaxSeedAgents,
		},
		Logging: LoggingConfig{
			Driver: "slog",
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path on top of Default, applies environment overrides and
// validates the result. A missing file or an empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the BIOSPHERE_* variables and fills a
// missing API key from the provider's conventional variable.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvProvider); v != "" {
		c.Backend.Provider = strings.ToLower(strings.TrimSpace(v))
	}

	if v := getenv(EnvAPIKey); v != "" {
		c.Backend.APIKey = v
	}

	if v := getenv(EnvMaxTicks); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxTicks, err)
		}
		c.Engine.MaxTicks = n
	}

	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	if c.Backend.APIKey == "" {
		switch c.Backend.Provider {
		case ProviderOpenAI:
			c.Backend.APIKey = getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			c.Backend.APIKey = getenv("ANTHROPIC_API_KEY")
		case ProviderGemini:
			c.Backend.APIKey = getenv("GEMINI_API_KEY")
		}
	}

	if c.Backend.Provider == ProviderAnthropic && c.Backend.EmbeddingAPIKey == "" {
		c.Backend.EmbeddingAPIKey = getenv("OPENAI_API_KEY")
	}

	return nil
}

// Validate reports every invalid field at once. The returned error is a
// multierr combination of *util.ValidationError values.
func (c *Config) Validate() error {
	var err error

	b := c.Backend
	err = multierr.Append(err, util.OneOf("backend.provider", b.Provider, ValidProviders...))
	if b.Provider != ProviderMock && b.APIKey == "" {
		err = multierr.Append(err, &util.ValidationError{Field: "backend.api_key", Message: "required for provider " + b.Provider})
	}
	if b.Provider == ProviderAnthropic && b.EmbeddingAPIKey == "" {
		err = multierr.Append(err, &util.ValidationError{Field: "backend.embedding_api_key", Message: "anthropic needs an OpenAI key for embeddings"})
	}
	if b.Provider == ProviderMock {
		err = multierr.Append(err, util.Positive("backend.mock_dimensions", b.MockDimensions))
	}
	err = multierr.Append(err, util.InRange("backend.temperature", b.Temperature, 0, 2))
	err = multierr.Combine(err,
		util.NonNegative("backend.max_calls", b.MaxCalls),
		util.NonNegative("backend.max_embed_calls", b.MaxEmbedCalls),
		util.NonNegative("backend.max_chat_calls", b.MaxChatCalls),
	)
	if b.RatePerSecond < 0 {
		err = multierr.Append(err, &util.ValidationError{Field: "backend.rate_per_second", Value: b.RatePerSecond, Message: "must not be negative"})
	}

	e := c.Engine
	err = multierr.Combine(err,
		util.Positive("engine.max_ticks", e.MaxTicks),
		util.NonNegative("engine.concurrency", e.Concurrency),
		util.InRange("engine.direct_threshold", e.DirectThreshold, -1, 1),
		util.InRange("engine.synapse_threshold", e.SynapseThreshold, -1, 1),
		util.InRange("engine.bridge_threshold", e.BridgeThreshold, -1, 1),
		util.InRange("engine.ambient_threshold", e.AmbientThreshold, -1, 1),
		util.NonNegative("engine.ambient_limit", e.AmbientLimit),
		util.InRange("engine.spawn_intent_threshold", e.SpawnIntentThreshold, -1, 1),
		util.InRange("engine.quorum_threshold", e.QuorumThreshold, -1, 1),
		util.InRange("engine.replay_threshold", e.ReplayThreshold, -1, 1),
		util.NonNegative("engine.replay_limit", e.ReplayLimit),
		util.NonNegative("engine.snapshot_buffer", e.SnapshotBuffer),
	)
	if !(e.DirectThreshold > e.SynapseThreshold && e.SynapseThreshold > e.BridgeThreshold) {
		err = multierr.Append(err, &util.ValidationError{
			Field:   "engine.direct_threshold",
			Value:   []float64{e.DirectThreshold, e.SynapseThreshold, e.BridgeThreshold},
			Message: "coupling thresholds must satisfy direct > synapse > bridge",
		})
	}

	q := c.Equilibrium
	err = multierr.Combine(err,
		util.Positive("equilibrium.min_signal_window", q.MinSignalWindow),
		util.NonNegative("equilibrium.min_ticks", q.MinTicks),
		util.NonNegative("equilibrium.recent_window", q.RecentWindow),
		util.InRange("equilibrium.energy_threshold", q.EnergyThreshold, 0, 1),
		util.InRange("equilibrium.gradient_threshold", q.GradientThreshold, 0, 1),
		util.NonNegative("equilibrium.stagnation_window", q.StagnationWindow),
		util.InRange("equilibrium.stagnation_tension", q.StagnationTension, 0, 1),
		util.InRange("equilibrium.stagnation_floor", q.StagnationFloor, 0, 1),
	)

	err = multierr.Append(err, util.NonNegative("spawner.max_seed_agents", c.Spawner.MaxSeedAgents))

	err = multierr.Append(err, util.OneOf("logging.driver", c.Logging.Driver, "slog", "zap"))
	err = multierr.Append(err, util.OneOf("logging.format", c.Logging.Format, "json", "text"))
	if _, lerr := logging.ParseLevel(c.Logging.Level); lerr != nil {
		err = multierr.Append(err, &util.ValidationError{Field: "logging.level", Value: c.Logging.Level, Message: lerr.Error()})
	}

	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Redacted returns a copy with every secret masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Backend.APIKey != "" {
		out.Backend.APIKey = redacted
	}
	if out.Backend.EmbeddingAPIKey != "" {
		out.Backend.EmbeddingAPIKey = redacted
	}
	return &out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

// EngineOptions applies the engine-related sections to engine.Options.
func (c *Config) EngineOptions() func(o *engine.Options) {
	return func(o *engine.Options) {
		o.Config = c.Engine
		o.Equilibrium = c.Equilibrium
		o.Scenario = c.Scenario
	}
}
