package collector

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	recallerr "github.com/hyperjump/chunkrecall/pkg/errors"
)

// AllCandidates as an initial candidate count means every chunk in the corpus.
const AllCandidates = -1

// DefaultTimeWeight is the time weight used when WithTimeWeight is not given.
const DefaultTimeWeight = 1.0

type queryOptions struct {
	nInitial    int
	hasNInitial bool
	timeWeight  float64
}

// QueryOption configures GetIDsTimeWeighted.
type QueryOption func(*queryOptions)

// WithInitialCandidates sets how many nearest neighbours are fetched before re-ranking.
// It must not be below nResults; AllCandidates fetches the whole corpus.
// AllCandidates on a corpus smaller than nResults does not error: the pool becomes
// nResults and the query returns every stored chunk.
func WithInitialCandidates(n int) QueryOption {
	return func(o *queryOptions) {
		o.nInitial = n
		o.hasNInitial = true
	}
}

// WithTimeWeight sets how strongly recency discounts distance. Zero or less disables re-ranking.
func WithTimeWeight(w float64) QueryOption {
	return func(o *queryOptions) { o.timeWeight = w }
}

// ApplyTimeWeight scales each distance by 1 - id/(corpusSize-1)*w, so the newest chunk's
// distance shrinks the most. Distances are returned unchanged (as a copy) when corpusSize <= 1.
func ApplyTimeWeight(ids []int, distances []float64, corpusSize int, w float64) []float64 {
	out := make([]float64, len(distances))
	copy(out, distances)
	if corpusSize <= 1 {
		return out
	}
	last := float64(corpusSize - 1)
	for i := range out {
		out[i] *= 1 - float64(ids[i])/last*w
	}
	return out
}

// GetIDsTimeWeighted fetches initial candidates, re-ranks them by time-weighted distance,
// keeps the best nResults and returns their ids in ascending (chronological) order.
//
// Without WithInitialCandidates the candidate pool is nResults, which makes re-ranking
// reorder nothing; pass a larger pool (or AllCandidates) to let recent chunks move up.
func (c *EmbeddingCollector) GetIDsTimeWeighted(ctx context.Context, searchStrings []string, nResults int, opts ...QueryOption) (_ []int, err error) {
	o := queryOptions{timeWeight: DefaultTimeWeight}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := c.startQuerySpan(ctx, "collector.get_ids_time_weighted", searchStrings, nResults)
	span.SetAttributes(attribute.Float64("collector.time_weight", o.timeWeight))
	defer func() { endSpan(span, err) }()

	c.mu.RLock()
	defer c.mu.RUnlock()
	corpusSize := len(c.ids)

	nInitial := nResults
	if o.hasNInitial {
		nInitial = o.nInitial
		if nInitial == AllCandidates {
			nInitial = max(corpusSize, nResults)
		}
		if nInitial < nResults {
			return nil, recallerr.New(recallerr.CodeCollectorQueryInvalidInput,
				"initial candidate count must not be below n_results",
				recallerr.Field("n_initial", nInitial),
				recallerr.Field("n_results", nResults),
			)
		}
	}
	weighted := o.timeWeight > 0
	if !weighted {
		nInitial = nResults
	}
	span.SetAttributes(attribute.Int("collector.n_initial", nInitial))

	matches, err := c.query(ctx, searchStrings, nInitial)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(matches))
	distances := make([]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		distances[i] = m.Distance
	}
	if weighted {
		distances = ApplyTimeWeight(ids, distances, corpusSize, o.timeWeight)
	}

	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return distances[order[i]] < distances[order[j]] })
	if len(order) > nResults {
		order = order[:max(nResults, 0)]
	}

	selected := make([]int, len(order))
	for i, pos := range order {
		selected[i] = ids[pos]
	}
	sort.Ints(selected)
	return selected, nil
}
