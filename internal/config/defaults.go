package config

// MemoryDatabase is the SQLite DSN for a private in-memory database.
const MemoryDatabase = ":memory:"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "sentence_transformer"
	}
	if cfg.Embedding.ModelPath == "" {
		switch cfg.Embedding.Type {
		case "instructor":
			cfg.Embedding.ModelPath = "/usr/local/var/chunkrecall/models/instructor-base.onnx"
		default:
			cfg.Embedding.ModelPath = "/usr/local/var/chunkrecall/models/all-mpnet-base-v2.onnx"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.DocumentTemplate == "" {
		cfg.Embedding.DocumentTemplate = "<|text|>"
	}
	if cfg.Embedding.QueryTemplate == "" {
		cfg.Embedding.QueryTemplate = "<|text|>"
	}
	if cfg.Embedding.OpenAI.BaseURL == "" {
		cfg.Embedding.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.SQLitePath == "" {
		cfg.Index.SQLitePath = MemoryDatabase
	}
	if cfg.Index.Qdrant.Host == "" {
		cfg.Index.Qdrant.Host = "localhost"
	}
	if cfg.Index.Qdrant.Port == 0 {
		cfg.Index.Qdrant.Port = 6334
	}
	if cfg.Collector.NResults == 0 {
		cfg.Collector.NResults = 5
	}
	if cfg.Collector.TimeWeight == nil {
		w := 1.0
		cfg.Collector.TimeWeight = &w
	}
	if cfg.Collector.ChunkSize == 0 {
		cfg.Collector.ChunkSize = 128
	}
	if cfg.Collector.ChunkOverlap == 0 {
		cfg.Collector.ChunkOverlap = 16
	}
}
