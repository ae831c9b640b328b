// Package embedding turns text into vectors for the collector.
//
// An Embedder applies separate document and query templates before delegating to a Model,
// which does the actual encoding (ONNX runtime, an OpenAI-compatible API, or a mock).
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// TextPlaceholder is replaced by the input text in document and query templates.
const TextPlaceholder = "<|text|>"

// DefaultTemplate passes text through unchanged.
const DefaultTemplate = TextPlaceholder

// Embedder produces vectors for documents being indexed and for search queries.
type Embedder interface {
	EmbedDocument(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Model encodes already-templated text. Implementations return one vector per input, in order.
type Model interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// TemplateEmbedder implements Embedder on top of a Model.
type TemplateEmbedder struct {
	model            Model
	documentTemplate string
	queryTemplate    string
	cache            *VectorCache // optional
}

// Option configures a TemplateEmbedder.
type Option func(*TemplateEmbedder)

// WithDocumentTemplate sets the template applied to documents. Empty keeps the default.
func WithDocumentTemplate(tmpl string) Option {
	return func(e *TemplateEmbedder) {
		if tmpl != "" {
			e.documentTemplate = tmpl
		}
	}
}

// WithQueryTemplate sets the template applied to queries. Empty keeps the default.
func WithQueryTemplate(tmpl string) Option {
	return func(e *TemplateEmbedder) {
		if tmpl != "" {
			e.queryTemplate = tmpl
		}
	}
}

// WithCache enables an LRU cache of the given capacity keyed by templated text.
// A capacity of zero or less disables caching.
func WithCache(capacity int) Option {
	return func(e *TemplateEmbedder) {
		if capacity > 0 {
			e.cache = NewVectorCache(capacity)
		} else {
			e.cache = nil
		}
	}
}

// NewTemplateEmbedder wraps model with document/query templates.
func NewTemplateEmbedder(model Model, opts ...Option) *TemplateEmbedder {
	e := &TemplateEmbedder{
		model:            model,
		documentTemplate: DefaultTemplate,
		queryTemplate:    DefaultTemplate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyTemplate substitutes every placeholder in tmpl with text.
func ApplyTemplate(tmpl, text string) string {
	return strings.ReplaceAll(tmpl, TextPlaceholder, text)
}

// EmbedDocument embeds texts using the document template.
func (e *TemplateEmbedder) EmbedDocument(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, e.documentTemplate, texts)
}

// EmbedQuery embeds texts using the query template.
func (e *TemplateEmbedder) EmbedQuery(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, e.queryTemplate, texts)
}

func (e *TemplateEmbedder) embed(ctx context.Context, tmpl string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var (
		missing    []string
		missingPos []int
	)
	for i, text := range texts {
		templated := ApplyTemplate(tmpl, text)
		if e.cache != nil {
			if cached, ok := e.cache.Lookup(templated); ok {
				out[i] = cached
				continue
			}
		}
		missing = append(missing, templated)
		missingPos = append(missingPos, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.model.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(missing))
	}
	for j, vec := range vectors {
		out[missingPos[j]] = vec
		if e.cache != nil {
			e.cache.Store(missing[j], vec)
		}
	}
	return out, nil
}

// Dimensions returns the model's embedding dimension.
func (e *TemplateEmbedder) Dimensions() int {
	return e.model.Dimensions()
}

// Close releases the underlying model.
func (e *TemplateEmbedder) Close() error {
	return e.model.Close()
}
