package embedding

import (
	"context"
	"fmt"
	"os"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// maxOpenAIBatch is the number of inputs sent per embeddings request.
const maxOpenAIBatch = 100

// OpenAIConfig configures an OpenAIModel.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional; any OpenAI-compatible endpoint (vLLM, Ollama, ...)
	Model      string
	Dimensions int
}

// OpenAIModel encodes text through the embeddings endpoint of an OpenAI-compatible API.
type OpenAIModel struct {
	client     openaisdk.Client
	model      string
	dimensions int
}

// NewOpenAIModel creates a model client. Returns an error if the API key is missing.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = openAIDimensions(cfg.Model)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIModel{
		client:     openaisdk.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// NewOpenAIModelFromEnv reads the API key from the named environment variable.
func NewOpenAIModelFromEnv(apiKeyEnv string, cfg OpenAIConfig) (*OpenAIModel, error) {
	cfg.APIKey = os.Getenv(apiKeyEnv)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key not found in environment variable %s", apiKeyEnv)
	}
	return NewOpenAIModel(cfg)
}

func openAIDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

// Encode sends texts in batches and returns vectors in input order.
func (m *OpenAIModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxOpenAIBatch {
		end := start + maxOpenAIBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := m.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (m *OpenAIModel) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openaisdk.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = utils.Float64sToFloat32s(d.Embedding)
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (m *OpenAIModel) Dimensions() int {
	return m.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (m *OpenAIModel) Close() error {
	return nil
}
