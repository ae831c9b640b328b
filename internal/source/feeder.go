package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkrecall/internal/chunker"
	"github.com/hyperjump/chunkrecall/internal/collector"
	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// Feeder loads files, splits them into chunks and replaces a collector's corpus with them.
// Files are concatenated in the order given, so chunks of later files get higher ids.
type Feeder struct {
	loader    *Loader
	chunker   *chunker.Chunker
	collector collector.Collector
	logger    *zap.Logger
}

// FeederOption configures a Feeder.
type FeederOption func(*Feeder)

// WithFeederLogger sets a logger for debug output.
func WithFeederLogger(l *zap.Logger) FeederOption {
	return func(f *Feeder) { f.logger = utils.OrNop(l) }
}

// NewFeeder creates a feeder for c.
func NewFeeder(c collector.Collector, ch *chunker.Chunker, opts ...FeederOption) *Feeder {
	f := &Feeder{
		loader:    NewLoader(),
		chunker:   ch,
		collector: c,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Chunks loads every path and returns their chunks in order.
func (f *Feeder) Chunks(paths []string) ([]string, error) {
	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		text, err := f.loader.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		texts = append(texts, text)
	}
	return f.chunker.SplitAll(texts), nil
}

// Feed replaces the collector's corpus with the chunks of paths.
func (f *Feeder) Feed(ctx context.Context, paths []string) error {
	chunks, err := f.Chunks(paths)
	if err != nil {
		return err
	}
	if err := collector.AddChunks(ctx, f.collector, chunks); err != nil {
		return err
	}
	f.logger.Debug("corpus fed", zap.Strings("paths", paths), zap.Int("chunks", len(chunks)))
	return nil
}

// FeedText replaces the collector's corpus with the chunks of raw text.
func (f *Feeder) FeedText(ctx context.Context, text string) error {
	return collector.AddChunks(ctx, f.collector, f.chunker.SplitAll([]string{text}))
}
