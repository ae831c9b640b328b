package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// MockModel is a deterministic model for tests. It returns a fixed-dimension vector derived
// from the text hash so that the same text always gets the same embedding.
type MockModel struct {
	dimensions int
}

// NewMockModel returns a model that produces deterministic embeddings of the given dimensions.
func NewMockModel(dimensions int) *MockModel {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockModel{dimensions: dimensions}
}

// NewMockEmbedder returns a TemplateEmbedder backed by a MockModel.
func NewMockEmbedder(dimensions int, opts ...Option) *TemplateEmbedder {
	return NewTemplateEmbedder(NewMockModel(dimensions), opts...)
}

// Encode returns one unit-length vector per text.
func (m *MockModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := HashString(text)
		emb := make([]float32, m.dimensions)
		for j := 0; j < m.dimensions; j++ {
			emb[j] = float32(math.Sin(float64(h*(j+1)))*0.1 + 0.01)
		}
		utils.NormalizeL2(emb)
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (m *MockModel) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MockModel.
func (m *MockModel) Close() error {
	return nil
}
