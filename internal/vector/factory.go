package vector

import (
	"context"

	"github.com/google/uuid"

	"github.com/hyperjump/chunkrecall/internal/config"
	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for small corpora.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeSQLite uses a sqlite-vec virtual table. Requires CGO.
	IndexTypeSQLite IndexType = "sqlite"
	// IndexTypeQdrant uses a Qdrant server over gRPC.
	IndexTypeQdrant IndexType = "qdrant"
)

// SupportedIndexTypes lists the index types accepted by NewVectorIndex.
var SupportedIndexTypes = []IndexType{IndexTypeMemory, IndexTypeSQLite, IndexTypeQdrant}

// NewVectorIndex creates the vector index selected by cfg.Type. An empty type means memory.
// A Qdrant index without a collection name gets a fresh "context-xxxxxxxx" collection.
func NewVectorIndex(ctx context.Context, cfg *config.IndexConfig, dimensions int) (VectorIndex, error) {
	var (
		idx VectorIndex
		err error
	)
	switch IndexType(cfg.Type) {
	case IndexTypeMemory, "":
		idx, err = NewMemoryIndex(dimensions)
	case IndexTypeSQLite:
		idx, err = NewSQLiteIndex(cfg.SQLitePath, dimensions)
	case IndexTypeQdrant:
		collection := cfg.Qdrant.Collection
		if collection == "" {
			collection = NewCollectionName()
		}
		idx, err = NewQdrantIndex(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, collection, dimensions)
	default:
		return nil, recallerr.New(recallerr.CodeIndexFactoryUnsupported,
			"unknown index type; supported: memory, sqlite, qdrant",
			recallerr.Field("type", cfg.Type),
			recallerr.Field("supported", SupportedIndexTypes),
		)
	}
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeIndexUpstreamFailure, "failed to open vector index",
			recallerr.Field("type", cfg.Type),
		)
	}
	return idx, nil
}

// NewCollectionName returns a unique collection name of the form "context-" plus eight hex digits.
func NewCollectionName() string {
	return "context-" + uuid.New().String()[:8]
}
