package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := core.DefaultConfig("./recall.db")

	assert.Equal(t, "sqlite", cfg.Storage.Provider)
	assert.Equal(t, "./recall.db", cfg.Storage.DBPath)
	assert.True(t, cfg.AutoMigrate)
	assert.InDelta(t, 0.85, cfg.Dedup.Threshold, 1e-9)
	assert.InDelta(t, 0.1, cfg.Dedup.Reinforcement, 1e-9)
	assert.Equal(t, 200, cfg.MaxActiveMemories)
	assert.Equal(t, 5, cfg.RetrieveLimit)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 30, cfg.Backup.Retention.Daily)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Config)
		ok     bool
	}{
		{
			name:   "default sqlite",
			mutate: func(*core.Config) {},
			ok:     true,
		},
		{
			name: "sqlite missing path",
			mutate: func(cfg *core.Config) {
				cfg.Storage.DBPath = ""
			},
		},
		{
			name: "unknown provider",
			mutate: func(cfg *core.Config) {
				cfg.Storage.Provider = "oracle"
			},
		},
		{
			name: "postgres missing host",
			mutate: func(cfg *core.Config) {
				cfg.Storage.Provider = "postgres"
				cfg.Storage.Host = ""
				cfg.Storage.Database = "recall"
			},
		},
		{
			name: "postgres complete",
			mutate: func(cfg *core.Config) {
				cfg.Storage.Provider = "postgres"
				cfg.Storage.Host = "localhost"
				cfg.Storage.Database = "recall"
			},
			ok: true,
		},
		{
			name: "unknown embedder",
			mutate: func(cfg *core.Config) {
				cfg.Embedder.Provider = "cohere"
			},
		},
		{
			name: "embedder missing api key",
			mutate: func(cfg *core.Config) {
				cfg.Embedder.Provider = "openai"
			},
		},
		{
			name: "threshold out of range",
			mutate: func(cfg *core.Config) {
				cfg.Dedup.Threshold = 1.5
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := core.DefaultConfig("./recall.db")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrInvalidConfig)
			}
		})
	}
}

func TestConfig_ValidateFillsDefaults(t *testing.T) {
	cfg := &core.Config{
		Storage: core.StorageConfig{Provider: "sqlite", DBPath: "./recall.db"},
	}
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.85, cfg.Dedup.Threshold, 1e-9)
	assert.Equal(t, 200, cfg.MaxActiveMemories)
	assert.Equal(t, 5, cfg.RetrieveLimit)
	assert.Equal(t, int64(10000), cfg.Embedder.CacheSize)
	assert.Equal(t, 12, cfg.Backup.Retention.Monthly)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"storage": {"provider": "sqlite", "db_path": "/data/recall.db"},
		"max_active_memories": 50,
		"dedup": {"threshold": 0.9},
		"log_level": "debug"
	}`), 0o644))

	cfg, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/recall.db", cfg.Storage.DBPath)
	assert.Equal(t, 50, cfg.MaxActiveMemories)
	assert.InDelta(t, 0.9, cfg.Dedup.Threshold, 1e-9)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unspecified tunables still default.
	assert.Equal(t, 5, cfg.RetrieveLimit)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  provider: postgres
  host: db.internal
  port: 5432
  database: recall
retrieve_limit: 10
`), 0o644))

	cfg, err := core.LoadConfigFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Provider)
	assert.Equal(t, "db.internal", cfg.Storage.Host)
	assert.Equal(t, 5432, cfg.Storage.Port)
	assert.Equal(t, 10, cfg.RetrieveLimit)
	assert.Equal(t, 200, cfg.MaxActiveMemories)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	_, err = core.LoadConfigFromYAML(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
