package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lumina-ai/recall-go/pkg/backup"
)

// Config contains the complete configuration for a Recall client.
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        DBPath:   "./recall.db",
//	    },
//	    MaxActiveMemories: 200,
//	}
type Config struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Embedder contains embedding provider configuration. An empty
	// provider disables embeddings; dedup and retrieval fall back to
	// lexical similarity.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// Dedup contains duplicate detection configuration.
	Dedup DedupConfig `json:"dedup" yaml:"dedup"`

	// MaxActiveMemories is the per-user quota of active records.
	// Defaults to 200.
	MaxActiveMemories int `json:"max_active_memories" yaml:"max_active_memories"`

	// RetrieveLimit is the default number of facts Retrieve returns.
	// Defaults to 5.
	RetrieveLimit int `json:"retrieve_limit" yaml:"retrieve_limit"`

	// RetentionDays is how long soft-deleted records are kept before
	// Cleanup may remove them physically. Defaults to 90.
	RetentionDays int `json:"retention_days" yaml:"retention_days"`

	// Backup contains snapshot retention configuration.
	Backup BackupConfig `json:"backup" yaml:"backup"`

	// AutoMigrate runs pending schema migrations on client startup.
	AutoMigrate bool `json:"auto_migrate" yaml:"auto_migrate"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql.
type StorageConfig struct {
	// Provider is the backend name (sqlite, postgres, mysql).
	Provider string `json:"provider" yaml:"provider"`

	// DBPath is the database file path (sqlite only).
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	// Host is the database host (postgres, mysql).
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the database port (postgres, mysql).
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// User is the database user (postgres, mysql).
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// Password is the database password (postgres, mysql).
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Database is the database name (postgres, mysql).
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// SSLMode is the connection SSL mode (postgres only).
	SSLMode string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Provider is the embedding provider name. Only "openai" is
	// supported; empty disables embeddings.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the embedding model name.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible services.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension.
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`

	// CacheSize is the number of embeddings kept in the in-memory cache.
	// Defaults to 10000.
	CacheSize int64 `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// DedupConfig contains duplicate detection configuration.
type DedupConfig struct {
	// Threshold is the similarity score at or above which two facts are
	// duplicates. Defaults to 0.85.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Reinforcement is the importance increment applied to a record when
	// a duplicate of it is ingested. Defaults to 0.1.
	Reinforcement float64 `json:"reinforcement" yaml:"reinforcement"`
}

// BackupConfig contains snapshot configuration.
type BackupConfig struct {
	// Retention controls how many snapshots Prune keeps per tier.
	// Zero values default to 30 daily / 12 weekly / 12 monthly.
	Retention backup.RetentionPolicy `json:"retention" yaml:"retention"`

	// PreMigration takes an automatic snapshot before applying schema
	// migrations.
	PreMigration bool `json:"pre_migration" yaml:"pre_migration"`
}

// DefaultConfig returns a sqlite-backed configuration with every tunable at
// its default.
func DefaultConfig(dbPath string) *Config {
	cfg := &Config{
		Storage: StorageConfig{
			Provider: "sqlite",
			DBPath:   dbPath,
		},
		AutoMigrate: true,
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfigFromEnv loads configuration from environment variables,
// consulting a .env file when one is found in the current directory or up to
// five levels above it.
//
// Supported variables: STORAGE_PROVIDER, SQLITE_PATH, DB_HOST, DB_PORT,
// DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE, EMBEDDING_PROVIDER,
// EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL,
// EMBEDDING_DIMENSIONS, DEDUP_THRESHOLD, DEDUP_REINFORCEMENT,
// MAX_ACTIVE_MEMORIES, RETRIEVE_LIMIT, RETENTION_DAYS, AUTO_MIGRATE,
// LOG_LEVEL.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Storage: StorageConfig{
			Provider: getEnvOrDefault("STORAGE_PROVIDER", "sqlite"),
			DBPath:   getEnvOrDefault("SQLITE_PATH", "./recall.db"),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 0),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: getEnvOrDefault("DB_NAME", "recall"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Embedder: EmbedderConfig{
			Provider:   os.Getenv("EMBEDDING_PROVIDER"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		},
		Dedup: DedupConfig{
			Threshold:     getEnvFloat("DEDUP_THRESHOLD", 0),
			Reinforcement: getEnvFloat("DEDUP_REINFORCEMENT", 0),
		},
		MaxActiveMemories: getEnvInt("MAX_ACTIVE_MEMORIES", 0),
		RetrieveLimit:     getEnvInt("RETRIEVE_LIMIT", 0),
		RetentionDays:     getEnvInt("RETENTION_DAYS", 0),
		AutoMigrate:       getEnvOrDefault("AUTO_MIGRATE", "true") == "true",
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewStoreError("LoadConfigFromJSON", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewStoreError("LoadConfigFromJSON", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFromYAML loads configuration from a YAML file.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewStoreError("LoadConfigFromYAML", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewStoreError("LoadConfigFromYAML", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the configuration and fills in defaults for zero-valued
// tunables.
func (c *Config) Validate() error {
	c.applyDefaults()

	switch c.Storage.Provider {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return NewStoreError("Validate", fmt.Errorf("%w: sqlite requires db_path", ErrInvalidConfig))
		}
	case "postgres", "mysql":
		if c.Storage.Host == "" || c.Storage.Database == "" {
			return NewStoreError("Validate", fmt.Errorf("%w: %s requires host and database", ErrInvalidConfig, c.Storage.Provider))
		}
	default:
		return NewStoreError("Validate", fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, c.Storage.Provider))
	}

	if c.Embedder.Provider != "" && c.Embedder.Provider != "openai" {
		return NewStoreError("Validate", fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, c.Embedder.Provider))
	}
	if c.Embedder.Provider != "" && c.Embedder.APIKey == "" {
		return NewStoreError("Validate", fmt.Errorf("%w: embedder requires api_key", ErrInvalidConfig))
	}

	if c.Dedup.Threshold < 0 || c.Dedup.Threshold > 1 {
		return NewStoreError("Validate", fmt.Errorf("%w: dedup threshold must be in [0,1]", ErrInvalidConfig))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Dedup.Threshold == 0 {
		c.Dedup.Threshold = 0.85
	}
	if c.Dedup.Reinforcement == 0 {
		c.Dedup.Reinforcement = 0.1
	}
	if c.MaxActiveMemories == 0 {
		c.MaxActiveMemories = 200
	}
	if c.RetrieveLimit == 0 {
		c.RetrieveLimit = 5
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 90
	}
	if c.Embedder.CacheSize == 0 {
		c.Embedder.CacheSize = 10000
	}
	if c.Backup.Retention == (backup.RetentionPolicy{}) {
		c.Backup.Retention = backup.DefaultRetentionPolicy()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FindEnvFile searches for a .env or .env.example file in the current
// directory and up to five levels above it.
func FindEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 5; i++ {
		for _, name := range []string{".env", ".env.example"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
