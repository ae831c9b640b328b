// Package collector keeps a corpus of text chunks in a vector index and answers nearest-neighbour
// queries over it, optionally re-ranking candidates so that later chunks win close calls.
//
// Chunk ids are dense integers assigned in insertion order; a higher id means a more recent
// chunk. A corpus is built by exactly one Add after a Clear (see AddChunks).
package collector

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkrecall/internal/embedding"
	"github.com/hyperjump/chunkrecall/internal/vector"
	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// TracerName is the instrumentation scope of collector spans.
const TracerName = "github.com/hyperjump/chunkrecall/collector"

// Collector is the capability set shared by collector implementations.
type Collector interface {
	Add(ctx context.Context, chunks []string) error
	Get(ctx context.Context, searchStrings []string, nResults int) ([]string, error)
	Clear(ctx context.Context) error
}

// EmbeddingCollector is a Collector backed by an Embedder and a VectorIndex.
// Queries run concurrently with each other; Add and Clear are exclusive.
type EmbeddingCollector struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	logger   *zap.Logger
	tracer   trace.Tracer

	mu      sync.RWMutex
	ids     []int
	closers []func() error
}

// Option configures an EmbeddingCollector.
type Option func(*EmbeddingCollector)

// WithLogger sets a logger for debug output (corpus added, cleared).
func WithLogger(l *zap.Logger) Option {
	return func(c *EmbeddingCollector) { c.logger = utils.OrNop(l) }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *EmbeddingCollector) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates an empty collector over embedder and index. The collector does not own either
// collaborator; Close them separately.
func New(embedder embedding.Embedder, index vector.VectorIndex, opts ...Option) *EmbeddingCollector {
	c := &EmbeddingCollector{
		embedder: embedder,
		index:    index,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Collector = (*EmbeddingCollector)(nil)

// Size returns the number of chunks in the corpus.
func (c *EmbeddingCollector) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Add embeds chunks and inserts them under ids 0..len(chunks)-1. Empty input is a no-op.
// Adding to a populated corpus is a state error; call Clear first.
func (c *EmbeddingCollector) Add(ctx context.Context, chunks []string) (err error) {
	ctx, span := c.tracer.Start(ctx, "collector.add",
		trace.WithAttributes(attribute.Int("collector.chunks", len(chunks))))
	defer func() { endSpan(span, err) }()

	if len(chunks) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ids) > 0 {
		return recallerr.New(recallerr.CodeCollectorAddConflict,
			"collector already holds a corpus; clear it before adding",
			recallerr.Field("corpus_size", len(c.ids)),
		)
	}

	ids := make([]int, len(chunks))
	for i := range ids {
		ids[i] = i
	}

	vectors, err := c.embedder.EmbedDocument(ctx, chunks)
	if err != nil {
		return recallerr.Wrap(err, recallerr.CodeEmbeddingUpstreamFailure, "failed to embed documents",
			recallerr.Field("chunks", len(chunks)))
	}
	if len(vectors) != len(chunks) {
		return recallerr.New(recallerr.CodeEmbeddingUpstreamFailure, "embedder returned wrong number of vectors",
			recallerr.Field("got", len(vectors)),
			recallerr.Field("want", len(chunks)),
		)
	}

	if err := c.index.Insert(ctx, chunks, vectors, ids); err != nil {
		if errors.Is(err, vector.ErrDuplicateID) {
			return recallerr.Wrap(err, recallerr.CodeCollectorAddConflict, "index already holds these ids")
		}
		return recallerr.Wrap(err, recallerr.CodeIndexUpstreamFailure, "failed to insert vectors",
			recallerr.Field("index", c.index.Type()))
	}

	c.ids = ids
	c.logger.Debug("corpus added",
		zap.Int("chunks", len(chunks)),
		zap.String("index", c.index.Type()),
		zap.String("newest", utils.Truncate(chunks[len(chunks)-1], 60)),
	)
	return nil
}

// Clear removes every chunk of the corpus from the index. Clearing an empty corpus does nothing.
func (c *EmbeddingCollector) Clear(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, "collector.clear")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ids) == 0 {
		return nil
	}
	if err := c.index.Delete(ctx, c.ids); err != nil {
		return recallerr.Wrap(err, recallerr.CodeIndexUpstreamFailure, "failed to delete vectors",
			recallerr.Field("index", c.index.Type()),
			recallerr.Field("corpus_size", len(c.ids)),
		)
	}
	span.SetAttributes(attribute.Int("collector.corpus_size", len(c.ids)))
	c.logger.Debug("corpus cleared", zap.Int("corpus_size", len(c.ids)))
	c.ids = nil
	return nil
}

// QueryRaw returns up to nResults nearest chunks for the first search string, in the index's
// ascending-distance order. nResults is clamped to the corpus size; a non-positive result
// returns no matches without touching the embedder or the index.
func (c *EmbeddingCollector) QueryRaw(ctx context.Context, searchStrings []string, nResults int) (_ []vector.Match, err error) {
	ctx, span := c.startQuerySpan(ctx, "collector.query_raw", searchStrings, nResults)
	defer func() { endSpan(span, err) }()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query(ctx, searchStrings, nResults)
}

// Get returns the documents of QueryRaw.
func (c *EmbeddingCollector) Get(ctx context.Context, searchStrings []string, nResults int) ([]string, error) {
	matches, err := c.QueryRaw(ctx, searchStrings, nResults)
	if err != nil {
		return nil, err
	}
	return documents(matches), nil
}

// GetIDs returns the ids of QueryRaw.
func (c *EmbeddingCollector) GetIDs(ctx context.Context, searchStrings []string, nResults int) ([]int, error) {
	matches, err := c.QueryRaw(ctx, searchStrings, nResults)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, nil
}

// GetSorted returns the documents of QueryRaw in chronological (ascending id) order.
func (c *EmbeddingCollector) GetSorted(ctx context.Context, searchStrings []string, nResults int) ([]string, error) {
	matches, err := c.QueryRaw(ctx, searchStrings, nResults)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return documents(matches), nil
}

// query does the work of QueryRaw. The caller holds at least the read lock.
func (c *EmbeddingCollector) query(ctx context.Context, searchStrings []string, nResults int) ([]vector.Match, error) {
	n := min(nResults, len(c.ids))
	if n <= 0 {
		return []vector.Match{}, nil
	}
	if len(searchStrings) == 0 {
		return nil, recallerr.New(recallerr.CodeCollectorQueryInvalidInput, "at least one search string is required")
	}

	queries, err := c.embedder.EmbedQuery(ctx, searchStrings)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeEmbeddingUpstreamFailure, "failed to embed query",
			recallerr.Field("search_strings", len(searchStrings)))
	}
	if len(queries) == 0 {
		return nil, recallerr.New(recallerr.CodeEmbeddingUpstreamFailure, "embedder returned no query vectors")
	}

	results, err := c.index.Query(ctx, queries, n)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeIndexUpstreamFailure, "failed to query vectors",
			recallerr.Field("index", c.index.Type()),
			recallerr.Field("n_results", n),
		)
	}
	if len(results) == 0 {
		return []vector.Match{}, nil
	}
	// Only the first query's neighbours are used.
	matches := results[0]
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]vector.Match, len(matches))
	copy(out, matches)
	return out, nil
}

func (c *EmbeddingCollector) startQuerySpan(ctx context.Context, name string, searchStrings []string, nResults int) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int("collector.search_strings", len(searchStrings)),
		attribute.Int("collector.n_results", nResults),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func documents(matches []vector.Match) []string {
	docs := make([]string, len(matches))
	for i, m := range matches {
		docs[i] = m.Document
	}
	return docs
}

// AddChunks replaces the corpus of c with chunks: Clear, then Add.
func AddChunks(ctx context.Context, c Collector, chunks []string) error {
	if err := c.Clear(ctx); err != nil {
		return err
	}
	return c.Add(ctx, chunks)
}
