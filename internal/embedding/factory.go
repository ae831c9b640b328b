package embedding

import (
	"sync"

	"github.com/hyperjump/chunkrecall/internal/config"
	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
)

// Type names an embedder variant.
type Type string

const (
	// TypeSentenceTransformer runs a sentence-transformers model exported to ONNX.
	TypeSentenceTransformer Type = "sentence_transformer"
	// TypeInstructor runs an INSTRUCTOR model exported to ONNX; instructions go in the templates.
	TypeInstructor Type = "instructor"
	// TypeOpenAI calls an OpenAI-compatible embeddings endpoint.
	TypeOpenAI Type = "openai"
	// TypeMock produces deterministic hash vectors. For tests.
	TypeMock Type = "mock"
)

// SupportedTypes lists the embedder types accepted by New.
var SupportedTypes = []Type{TypeSentenceTransformer, TypeInstructor, TypeOpenAI, TypeMock}

// New creates the embedder selected by cfg.Type. An empty type returns the process default
// embedder; an unknown type is a configuration error listing the supported types.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	if cfg.Type == "" {
		return Default()
	}
	return build(cfg)
}

func build(cfg *config.EmbeddingConfig) (Embedder, error) {
	opts := []Option{
		WithDocumentTemplate(cfg.DocumentTemplate),
		WithQueryTemplate(cfg.QueryTemplate),
		WithCache(cfg.CacheSize),
	}

	var (
		model Model
		err   error
	)
	switch Type(cfg.Type) {
	case TypeSentenceTransformer, TypeInstructor:
		model, err = NewONNXModel(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case TypeOpenAI:
		model, err = NewOpenAIModelFromEnv(cfg.OpenAI.APIKeyEnv, OpenAIConfig{
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.Dimensions,
		})
	case TypeMock:
		model = NewMockModel(cfg.Dimensions)
	default:
		return nil, recallerr.New(recallerr.CodeEmbeddingFactoryUnsupported,
			"unknown embedder type; supported: sentence_transformer, instructor, openai, mock",
			recallerr.Field("type", cfg.Type),
			recallerr.Field("supported", SupportedTypes),
		)
	}
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeEmbeddingUpstreamFailure, "failed to load embedding model",
			recallerr.Field("type", cfg.Type),
			recallerr.Field("model_path", cfg.ModelPath),
		)
	}
	return NewTemplateEmbedder(model, opts...), nil
}

var defaultEmbedder struct {
	mu sync.Mutex
	e  Embedder
}

// InitDefault builds an embedder from cfg and installs it as the process default.
// An empty cfg.Type builds a sentence-transformer embedder.
func InitDefault(cfg *config.EmbeddingConfig) (Embedder, error) {
	c := *cfg
	if c.Type == "" {
		c.Type = string(TypeSentenceTransformer)
	}
	e, err := build(&c)
	if err != nil {
		return nil, err
	}
	SetDefault(e)
	return e, nil
}

// SetDefault installs e as the process default embedder.
func SetDefault(e Embedder) {
	defaultEmbedder.mu.Lock()
	defer defaultEmbedder.mu.Unlock()
	defaultEmbedder.e = e
}

// Default returns the process default embedder, creating a sentence-transformer embedder from
// the default configuration on first use.
func Default() (Embedder, error) {
	defaultEmbedder.mu.Lock()
	defer defaultEmbedder.mu.Unlock()
	if defaultEmbedder.e != nil {
		return defaultEmbedder.e, nil
	}

	var cfg config.Config
	cfg.Embedding.Type = string(TypeSentenceTransformer)
	config.ApplyDefaults(&cfg)
	e, err := build(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	defaultEmbedder.e = e
	return e, nil
}

// ResetDefault forgets the process default embedder without closing it.
func ResetDefault() {
	SetDefault(nil)
}
