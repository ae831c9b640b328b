package collector

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkrecall/internal/chunker"
	"github.com/hyperjump/chunkrecall/internal/config"
	"github.com/hyperjump/chunkrecall/internal/embedding"
	"github.com/hyperjump/chunkrecall/internal/vector"
	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// NewFromConfig builds the embedder and vector index described by cfg and returns a collector
// that owns them; Close releases both. An empty embedding type uses the process default
// embedder, which is shared and therefore not closed.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*EmbeddingCollector, error) {
	logger = utils.OrNop(logger)

	emb, err := embedding.New(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	ownsEmbedder := cfg.Embedding.Type != ""

	idx, err := vector.NewVectorIndex(ctx, &cfg.Index, emb.Dimensions())
	if err != nil {
		if ownsEmbedder {
			_ = emb.Close()
		}
		return nil, err
	}

	logger.Debug("collector created",
		zap.String("embedder", cfg.Embedding.Type),
		zap.Int("dimensions", emb.Dimensions()),
		zap.String("index", idx.Type()),
	)

	c := New(emb, idx, WithLogger(logger))
	c.closers = append(c.closers, idx.Close)
	if ownsEmbedder {
		c.closers = append(c.closers, emb.Close)
	}
	return c, nil
}

// Close releases the collaborators the collector was built with by NewFromConfig.
// Collectors created with New own nothing and Close is a no-op.
func (c *EmbeddingCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// QueryOptions translates the collector section of a config into GetIDsTimeWeighted options.
// An NInitial of zero leaves the candidate pool at n_results.
func QueryOptions(cfg *config.CollectorConfig) []QueryOption {
	opts := []QueryOption{WithTimeWeight(cfg.TimeWeightOrDefault())}
	if cfg.NInitial != 0 {
		opts = append(opts, WithInitialCandidates(cfg.NInitial))
	}
	return opts
}

// NewChunker returns a chunker using the configured chunk size and overlap.
func NewChunker(cfg *config.CollectorConfig) *chunker.Chunker {
	return chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
}
