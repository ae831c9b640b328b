// Package config provides configuration loading and structs for the chunk collector.
package config

import (
	"os"
	"path/filepath"
	"strings"

	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a collector and its collaborators.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Collector CollectorConfig `yaml:"collector"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Type is one of sentence_transformer, instructor, openai, mock. Empty means the
	// process default embedder.
	Type             string       `yaml:"type"`
	ModelPath        string       `yaml:"model_path"`
	Dimensions       int          `yaml:"dimensions"`
	MaxTokens        int          `yaml:"max_tokens"`
	CacheSize        int          `yaml:"cache_size"`
	DocumentTemplate string       `yaml:"document_template"`
	QueryTemplate    string       `yaml:"query_template"`
	OpenAI           OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for OpenAI-compatible embedding endpoints.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	// Type is one of memory, sqlite, qdrant.
	Type       string       `yaml:"type"`
	SQLitePath string       `yaml:"sqlite_path"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds the Qdrant gRPC endpoint. An empty collection gets a generated name.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// CollectorConfig holds retrieval defaults and chunking settings.
type CollectorConfig struct {
	NResults int `yaml:"n_results"`
	// NInitial is the candidate pool for time-weighted retrieval: 0 uses NResults,
	// -1 uses the full corpus.
	NInitial     int      `yaml:"n_initial"`
	TimeWeight   *float64 `yaml:"time_weight"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
}

// TimeWeightOrDefault returns the configured time weight; defaults to 1.0 when unset.
func (c *CollectorConfig) TimeWeightOrDefault() float64 {
	if c.TimeWeight != nil {
		return *c.TimeWeight
	}
	return 1.0
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeConfigLoadReadFailure, "failed to read config",
			recallerr.Field("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeConfigParseInvalidFormat, "failed to parse config",
			recallerr.Field("path", path))
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Index.SQLitePath != MemoryDatabase {
		cfg.Index.SQLitePath = expandPath(cfg.Index.SQLitePath, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return recallerr.Wrap(err, recallerr.CodeConfigParseInvalidFormat, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return recallerr.Wrap(err, recallerr.CodeConfigLoadReadFailure, "failed to write config",
			recallerr.Field("path", path))
	}
	return nil
}

// Validate rejects values no component can work with.
func Validate(cfg *Config) error {
	invalid := func(field string, value any) error {
		return recallerr.New(recallerr.CodeConfigValidateInvalidValue, "invalid config value",
			recallerr.Field("field", field), recallerr.Field("value", value))
	}
	switch {
	case cfg.Embedding.Dimensions < 0:
		return invalid("embedding.dimensions", cfg.Embedding.Dimensions)
	case cfg.Embedding.MaxTokens < 0:
		return invalid("embedding.max_tokens", cfg.Embedding.MaxTokens)
	case cfg.Embedding.CacheSize < 0:
		return invalid("embedding.cache_size", cfg.Embedding.CacheSize)
	case cfg.Collector.NResults < 0:
		return invalid("collector.n_results", cfg.Collector.NResults)
	case cfg.Collector.NInitial < -1:
		return invalid("collector.n_initial", cfg.Collector.NInitial)
	case cfg.Collector.ChunkOverlap >= cfg.Collector.ChunkSize:
		return invalid("collector.chunk_overlap", cfg.Collector.ChunkOverlap)
	case cfg.Index.Qdrant.Port < 0 || cfg.Index.Qdrant.Port > 65535:
		return invalid("index.qdrant.port", cfg.Index.Qdrant.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
