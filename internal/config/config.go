// Package config handles reading and writing .interview/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .interview/config.yaml.
type Config struct {
	Version     int               `yaml:"version"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Client      ClientConfig      `yaml:"client"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	BankFile    string            `yaml:"bank_file,omitempty"`
}

// CoordinatorConfig controls the session coordinator server.
type CoordinatorConfig struct {
	Addr             string `yaml:"addr"`
	AutoFinalize     bool   `yaml:"auto_finalize"`
	RetentionMinutes int    `yaml:"retention_minutes"`     // 0 keeps finished sessions forever
	ReapInterval     int    `yaml:"reap_interval_seconds"` // seconds
}

// GeneratorConfig selects and configures the language model backend.
type GeneratorConfig struct {
	Backend     string  `yaml:"backend"` // "http" | "claude-cli"
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Timeout     int     `yaml:"timeout_seconds"` // seconds
	Temperature float32 `yaml:"temperature"`
	MaxFailures int     `yaml:"max_failures"`
	Cooldown    int     `yaml:"cooldown_seconds"` // seconds
}

// ClientConfig controls the candidate-facing orchestrator.
type ClientConfig struct {
	CoordinatorURL  string   `yaml:"coordinator_url"`
	ConnectTimeout  int      `yaml:"connect_timeout_ms"`  // ms
	FollowupTimeout int      `yaml:"followup_timeout_ms"` // ms
	FinishTimeout   int      `yaml:"finish_timeout_ms"`   // ms
	DurationMin     int      `yaml:"duration_min"`
	StopPhrases     []string `yaml:"stop_phrases"`
}

// PersistenceConfig controls where finished interviews are stored.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig controls the OTLP metrics exporter.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// APIKeyEnv overrides generator.api_key when set.
const APIKeyEnv = "INTERVIEW_API_KEY"

const configDir = ".interview"
const configFile = "config.yaml"

// Dir returns the state directory for a project root.
func Dir(root string) string {
	return filepath.Join(root, configDir)
}

// ReadConfig reads .interview/config.yaml from the given directory.
// dir is the project root (not .interview/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config in dir, falling back to defaults when no
// config file exists. Environment overrides are applied either way.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.Generator.APIKey = key
	}
}

// WriteConfig writes cfg to .interview/config.yaml in the given directory.
// Creates the .interview/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Coordinator: CoordinatorConfig{
			Addr:         "127.0.0.1:7420",
			ReapInterval: 30,
		},
		Generator: GeneratorConfig{
			Backend:     "http",
			BaseURL:     "http://localhost:1234/v1",
			Timeout:     20,
			Temperature: 0.4,
			MaxFailures: 3,
			Cooldown:    60,
		},
		Client: ClientConfig{
			CoordinatorURL:  "http://127.0.0.1:7420",
			ConnectTimeout:  3000,
			FollowupTimeout: 5000,
			FinishTimeout:   6000,
			DurationMin:     30,
			StopPhrases:     []string{"finish", "end interview", "stop"},
		},
		Persistence: PersistenceConfig{
			Enabled: true,
			Path:    filepath.Join(configDir, "interviews.db"),
		},
	}
}

// ConnectDeadline bounds the coordinator health check at start-up.
func (c ClientConfig) ConnectDeadline() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

// FollowupWatchdog returns the follow-up watchdog delay.
func (c ClientConfig) FollowupWatchdog() time.Duration {
	return time.Duration(c.FollowupTimeout) * time.Millisecond
}

// FinishWatchdog returns the finish watchdog delay.
func (c ClientConfig) FinishWatchdog() time.Duration {
	return time.Duration(c.FinishTimeout) * time.Millisecond
}

// Duration returns the interview length.
func (c ClientConfig) Duration() time.Duration {
	return time.Duration(c.DurationMin) * time.Minute
}

// Retention returns how long finished sessions stay in memory.
func (c CoordinatorConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// ReapEvery returns the reaper tick interval.
func (c CoordinatorConfig) ReapEvery() time.Duration {
	return time.Duration(c.ReapInterval) * time.Second
}

// CallTimeout returns the per-call generator timeout.
func (c GeneratorConfig) CallTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CooldownPeriod returns how long the circuit breaker stays open.
func (c GeneratorConfig) CooldownPeriod() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}
