// Package config is qpilot's layered YAML-plus-env-override configuration
// loader, grounded on jhkimqd-chaos-utils/pkg/config/config.go's
// Config/DefaultConfig/Load shape.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is qpilot's full configuration tree.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Execution ExecutionConfig `yaml:"execution"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the internal/store Postgres connection. An
// empty DSN selects the in-memory store, used for local development and
// tests.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// QueueConfig configures internal/queue. An empty RedisAddr selects the
// in-process priority heap and worker pool over the Redis-backed broker.
// BufferSize is checked by Validate but read by neither queue; the
// in-process heap has no capacity limit.
type QueueConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	Workers    int    `yaml:"workers"`
	BufferSize int    `yaml:"buffer_size"`
}

// ExecutionConfig toggles asynchronous job execution and experimental
// provider-specific job types (spec.md §4.5/§4.6).
type ExecutionConfig struct {
	ExecuteAsynchronously      bool `yaml:"execute_asynchronously"`
	EnableExperimentalFeatures bool `yaml:"enable_experimental_features"`
}

// ProvidersConfig carries per-provider remote base URLs and tokens. A base
// URL decides whether qpilotd registers that remote pilot. The token
// fields are loaded from the file and env but no pilot reads them: a pilot
// takes the per-request token, or else its provider's token env var via
// remote.ResolveToken (spec.md §6 Authentication).
type ProvidersConfig struct {
	IBMBaseURL    string `yaml:"ibm_base_url"`
	IBMToken      string `yaml:"ibm_token"`
	BraketBaseURL string `yaml:"braket_base_url"`
	BraketToken   string `yaml:"braket_token"`
	IonQBaseURL   string `yaml:"ionq_base_url"`
	IonQToken     string `yaml:"ionq_token"`
}

// LoggingConfig configures internal/obslog.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures internal/metrics' /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns qpilot's default configuration: synchronous execution,
// in-memory store, in-process queue, no experimental features.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: ""},
		Queue:    QueueConfig{Workers: 4, BufferSize: 256},
		Execution: ExecutionConfig{
			ExecuteAsynchronously:      false,
			EnableExperimentalFeatures: false,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
	}
}

// Load reads path ("config.yaml" when path is empty; defaults when that
// file does not exist), expands ${VAR} references, then applies the
// well-known qpilot env var overrides on top (env always wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides layers the environment variables spec.md §9 names on
// top of the file-or-default config, env always taking priority.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXECUTE_ASYNCHRONOUSLY"); v != "" {
		cfg.Execution.ExecuteAsynchronously = parseBool(v, cfg.Execution.ExecuteAsynchronously)
	}
	if v := os.Getenv("ENABLE_EXPERIMENTAL_FEATURES"); v != "" {
		cfg.Execution.EnableExperimentalFeatures = parseBool(v, cfg.Execution.EnableExperimentalFeatures)
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Queue.RedisAddr = v
	}
	if v := os.Getenv("IBM_TOKEN"); v != "" {
		cfg.Providers.IBMToken = v
	}
	if v := os.Getenv("AWS_BRAKET_TOKEN"); v != "" {
		cfg.Providers.BraketToken = v
	}
	if v := os.Getenv("IONQ_TOKEN"); v != "" {
		cfg.Providers.IonQToken = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Save writes cfg to path as YAML, matching the teacher's Save method.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the invariants qpilotd refuses to start without.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1")
	}
	if c.Queue.BufferSize < 1 {
		return fmt.Errorf("queue.buffer_size must be at least 1")
	}
	return nil
}

// PilotRequestTimeout bounds a single synchronous pilot call, used by the
// orchestrator when wrapping Run/ExecuteProviderSpecific in a context
// deadline.
const PilotRequestTimeout = 2 * time.Minute
