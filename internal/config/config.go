// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package config loads agent and indexer configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyConfig weights the ranking engine's price and reputation scores.
// Weights are not required to sum to 1; RankingEngine uses them as provided.
type PolicyConfig struct {
	Price      float64 `yaml:"price" json:"price"`
	Reputation float64 `yaml:"reputation" json:"reputation"`
}

// BootstrapNode addresses a peer the overlay dials on startup.
type BootstrapNode struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// AgentConfig is the configuration for a single agent process: its
// identity, discovery policy, and listener/overlay bind addresses.
type AgentConfig struct {
	// RegistryURL is the base URL of the IndexerService.
	RegistryURL string `yaml:"registry_url" json:"registry_url"`
	// KeyFile is the filesystem path for key persistence; it also
	// functions as the agent's identity (recreating the agent from the
	// same key file reproduces the same identifier).
	KeyFile string `yaml:"key_file" json:"key_file"`
	// DefaultPolicy weights the ranking engine's utility score.
	DefaultPolicy PolicyConfig `yaml:"default_policy" json:"default_policy"`
	// FallbackDiscoveryEnabled routes publish/discover through the
	// Indexer's cache endpoints in addition to the overlay DHT.
	FallbackDiscoveryEnabled bool `yaml:"fallback_discovery_enabled" json:"fallback_discovery_enabled"`

	HTTPHost string `yaml:"http_host" json:"http_host"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	DHTHost  string `yaml:"dht_host" json:"dht_host"`
	DHTPort  int    `yaml:"dht_port" json:"dht_port"`

	BootstrapNode *BootstrapNode `yaml:"bootstrap_node" json:"bootstrap_node"`

	// ReplayWindow bounds how stale an inbound envelope's timestamp may
	// be before it is rejected as an AuthenticationFailure.
	ReplayWindow time.Duration `yaml:"replay_window" json:"replay_window"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// IndexerConfig is the configuration for the IndexerService binary.
type IndexerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig mirrors internal/logger's environment-derived settings
// so they can also be set from a config file.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// NewAgentConfig returns an AgentConfig with every default applied,
// for callers that have no config file to load.
func NewAgentConfig() *AgentConfig {
	cfg := &AgentConfig{}
	setAgentDefaults(cfg)
	return cfg
}

// NewIndexerConfig returns an IndexerConfig with every default
// applied, for callers that have no config file to load.
func NewIndexerConfig() *IndexerConfig {
	cfg := &IndexerConfig{}
	setIndexerDefaults(cfg)
	return cfg
}

// LoadAgentConfig loads an AgentConfig from a YAML or JSON file, applying
// defaults for any field left unset.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AgentConfig{}
	if err := unmarshalEither(data, cfg); err != nil {
		return nil, err
	}

	setAgentDefaults(cfg)
	return cfg, nil
}

// LoadIndexerConfig loads an IndexerConfig from a YAML or JSON file,
// applying defaults for any field left unset.
func LoadIndexerConfig(path string) (*IndexerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &IndexerConfig{}
	if err := unmarshalEither(data, cfg); err != nil {
		return nil, err
	}

	setIndexerDefaults(cfg)
	return cfg, nil
}

func unmarshalEither(data []byte, v interface{}) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		if jsonErr := json.Unmarshal(data, v); jsonErr != nil {
			return fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// Save writes cfg to path as YAML, or JSON if path ends in ".json".
func Save(cfg interface{}, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setAgentDefaults(cfg *AgentConfig) {
	if cfg.KeyFile == "" {
		cfg.KeyFile = ".agentweb/identity.pem"
	}
	if cfg.DefaultPolicy.Price == 0 && cfg.DefaultPolicy.Reputation == 0 {
		cfg.DefaultPolicy = PolicyConfig{Price: 0.6, Reputation: 0.4}
	}
	if cfg.HTTPHost == "" {
		cfg.HTTPHost = "0.0.0.0"
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8000
	}
	if cfg.DHTHost == "" {
		cfg.DHTHost = "0.0.0.0"
	}
	if cfg.DHTPort == 0 {
		cfg.DHTPort = 8468
	}
	if cfg.ReplayWindow == 0 {
		cfg.ReplayWindow = 5 * time.Minute
	}
	setLoggingDefaults(&cfg.Logging)
	setMetricsDefaults(&cfg.Metrics)
}

func setIndexerDefaults(cfg *IndexerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	setLoggingDefaults(&cfg.Logging)
	setMetricsDefaults(&cfg.Metrics)
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

func setMetricsDefaults(m *MetricsConfig) {
	if m.Host == "" {
		m.Host = "0.0.0.0"
	}
	if m.Port == 0 {
		m.Port = 9100
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}
