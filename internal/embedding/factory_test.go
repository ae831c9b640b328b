package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/chunkrecall/internal/config"
	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
)

func TestNew_Mock(t *testing.T) {
	e, err := New(&config.EmbeddingConfig{Type: "mock", Dimensions: 4, QueryTemplate: "q: <|text|>"})
	if err != nil {
		t.Fatalf("New(mock): %v", err)
	}
	defer e.Close()
	if e.Dimensions() != 4 {
		t.Errorf("Dimensions=%d, want 4", e.Dimensions())
	}
	doc, _ := e.EmbedDocument(context.Background(), []string{"x"})
	query, _ := e.EmbedQuery(context.Background(), []string{"x"})
	same := true
	for i := range doc[0] {
		if doc[0][i] != query[0][i] {
			same = false
		}
	}
	if same {
		t.Error("query template should change the embedded text")
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(&config.EmbeddingConfig{Type: "word2vec"})
	if err == nil {
		t.Fatal("expected error for unknown embedder type")
	}
	if !recallerr.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	fields := recallerr.FieldsOf(err)
	if fields["type"] != "word2vec" {
		t.Errorf("error should name the rejected type, got %v", fields)
	}
	if _, ok := fields["supported"]; !ok {
		t.Error("error should list supported types")
	}
}

func TestNew_OpenAIMissingKey(t *testing.T) {
	t.Setenv("CHUNKRECALL_TEST_MISSING_KEY", "")
	_, err := New(&config.EmbeddingConfig{
		Type:   "openai",
		OpenAI: config.OpenAIConfig{APIKeyEnv: "CHUNKRECALL_TEST_MISSING_KEY"},
	})
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestNew_EmptyTypeUsesDefault(t *testing.T) {
	t.Cleanup(ResetDefault)
	want := NewMockEmbedder(3)
	SetDefault(want)

	got, err := New(&config.EmbeddingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Error("empty type should return the installed default embedder")
	}
}

func TestInitDefault(t *testing.T) {
	t.Cleanup(ResetDefault)
	e, err := InitDefault(&config.EmbeddingConfig{Type: "mock", Dimensions: 5})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Error("Default should return the embedder installed by InitDefault")
	}
	if got.Dimensions() != 5 {
		t.Errorf("Dimensions=%d, want 5", got.Dimensions())
	}
}

func TestInitDefault_UnknownType(t *testing.T) {
	t.Cleanup(ResetDefault)
	if _, err := InitDefault(&config.EmbeddingConfig{Type: "nope"}); !recallerr.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
