package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentConfig(t *testing.T) {
	t.Run("LoadsYAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "agent.yaml")

		content := `registry_url: "http://indexer.local:9000"
key_file: "/var/lib/agentweb/identity.pem"
default_policy:
  price: 0.7
  reputation: 0.3
fallback_discovery_enabled: true
http_host: "127.0.0.1"
http_port: 8123
dht_port: 8468
bootstrap_node:
  host: "boot.local"
  port: 8468
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg, err := LoadAgentConfig(configPath)
		require.NoError(t, err)

		assert.Equal(t, "http://indexer.local:9000", cfg.RegistryURL)
		assert.Equal(t, "/var/lib/agentweb/identity.pem", cfg.KeyFile)
		assert.Equal(t, 0.7, cfg.DefaultPolicy.Price)
		assert.Equal(t, 0.3, cfg.DefaultPolicy.Reputation)
		assert.True(t, cfg.FallbackDiscoveryEnabled)
		assert.Equal(t, "127.0.0.1", cfg.HTTPHost)
		assert.Equal(t, 8123, cfg.HTTPPort)
		require.NotNil(t, cfg.BootstrapNode)
		assert.Equal(t, "boot.local", cfg.BootstrapNode.Host)
	})

	t.Run("LoadsJSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "agent.json")

		content := `{"registry_url": "http://indexer.local:9000", "key_file": "./id.pem"}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg, err := LoadAgentConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "http://indexer.local:9000", cfg.RegistryURL)
		assert.Equal(t, "./id.pem", cfg.KeyFile)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadAgentConfig("/nonexistent/path/agent.yaml")
		assert.Error(t, err)
	})

	t.Run("AppliesDefaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "agent.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("registry_url: \"http://x\"\n"), 0644))

		cfg, err := LoadAgentConfig(configPath)
		require.NoError(t, err)

		assert.Equal(t, ".agentweb/identity.pem", cfg.KeyFile)
		assert.Equal(t, 0.6, cfg.DefaultPolicy.Price)
		assert.Equal(t, 0.4, cfg.DefaultPolicy.Reputation)
		assert.Equal(t, "0.0.0.0", cfg.HTTPHost)
		assert.Equal(t, 8000, cfg.HTTPPort)
		assert.Equal(t, 8468, cfg.DHTPort)
		assert.Equal(t, 5*time.Minute, cfg.ReplayWindow)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, 9100, cfg.Metrics.Port)
	})

	t.Run("PreservesExplicitPolicy", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "agent.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("default_policy:\n  price: 1.0\n  reputation: 0.0\n"), 0644))

		cfg, err := LoadAgentConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 1.0, cfg.DefaultPolicy.Price)
		assert.Equal(t, 0.0, cfg.DefaultPolicy.Reputation)
	})
}

func TestLoadIndexerConfig(t *testing.T) {
	t.Run("AppliesDefaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "indexer.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("host: \"0.0.0.0\"\n"), 0644))

		cfg, err := LoadIndexerConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, "info", cfg.Logging.Level)
	})
}

func TestSave(t *testing.T) {
	t.Run("RoundTripYAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "out.yaml")

		cfg := &AgentConfig{RegistryURL: "http://x", KeyFile: "k.pem"}
		require.NoError(t, Save(cfg, path))

		loaded, err := LoadAgentConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "http://x", loaded.RegistryURL)
	})

	t.Run("RoundTripJSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "out.json")

		cfg := &AgentConfig{RegistryURL: "http://y", KeyFile: "k.pem"}
		require.NoError(t, Save(cfg, path))

		loaded, err := LoadAgentConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "http://y", loaded.RegistryURL)
	})
}
