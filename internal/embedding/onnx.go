//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/chunkrecall/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXModel runs a pooled sentence-embedding graph with ONNX Runtime. The graph must take
// input_ids, attention_mask and token_type_ids and produce a single "output" tensor of shape
// (1, dimensions). It requires CGO and the onnxruntime shared library.
type ONNXModel struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

var ortInit struct {
	once sync.Once
	err  error
}

func initializeEnvironment() error {
	ortInit.once.Do(func() {
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// NewONNXModel loads the model at modelPath. The ONNX environment is initialized once per process.
func NewONNXModel(modelPath string, dimensions, maxTokens int) (*ONNXModel, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if err := initializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)
	maxTokens = len(inputIDs)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions)))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &ONNXModel{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Encode runs the session once per text and returns L2-normalized vectors.
func (m *ONNXModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, fmt.Errorf("ONNX model is closed")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inputIDs, attentionMask, tokenTypeIDs := m.tokenizer.Tokenize(text, m.maxTokens)
		copy(m.inputIDsTensor.GetData(), inputIDs)
		copy(m.attentionMaskTensor.GetData(), attentionMask)
		copy(m.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

		if err := m.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}

		embedding := make([]float32, m.dimensions)
		copy(embedding, m.outputTensor.GetData()[:m.dimensions])
		utils.NormalizeL2(embedding)
		out[i] = embedding
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (m *ONNXModel) Dimensions() int {
	return m.dimensions
}

// Close destroys the session and tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	for _, t := range []interface{ Destroy() error }{
		m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor, m.outputTensor,
	} {
		_ = t.Destroy()
	}
	m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor, m.outputTensor = nil, nil, nil, nil
	return err
}
