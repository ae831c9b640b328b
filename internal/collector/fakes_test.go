package collector

import (
	"context"
	"sort"

	"github.com/hyperjump/chunkrecall/internal/vector"
)

// scriptedIndex answers every query with fixed per-id distances.
type scriptedIndex struct {
	docs      map[int]string
	distances map[int]float64

	insertErr error
	queryErr  error
	deleteErr error

	queries    int
	lastK      int
	lastNQuery int
	deleted    [][]int
}

func newScriptedIndex(distances ...float64) *scriptedIndex {
	idx := &scriptedIndex{docs: map[int]string{}, distances: map[int]float64{}}
	for i, d := range distances {
		idx.distances[i] = d
	}
	return idx
}

func (s *scriptedIndex) Insert(_ context.Context, documents []string, _ [][]float32, ids []int) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for i, id := range ids {
		s.docs[id] = documents[i]
	}
	return nil
}

func (s *scriptedIndex) Query(_ context.Context, queries [][]float32, k int) ([][]vector.Match, error) {
	s.queries++
	s.lastK = k
	s.lastNQuery = len(queries)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	all := make([]vector.Match, 0, len(s.docs))
	for id, doc := range s.docs {
		all = append(all, vector.Match{ID: id, Document: doc, Distance: s.distances[id]})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})
	if k < len(all) {
		all = all[:k]
	}
	out := make([][]vector.Match, len(queries))
	for i := range out {
		out[i] = all
	}
	return out, nil
}

func (s *scriptedIndex) Delete(_ context.Context, ids []int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, append([]int(nil), ids...))
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

func (s *scriptedIndex) Count(context.Context) (int, error) { return len(s.docs), nil }
func (s *scriptedIndex) Type() string                        { return "scripted" }
func (s *scriptedIndex) Close() error                        { return nil }

// countingEmbedder returns constant vectors and counts calls.
type countingEmbedder struct {
	documentCalls int
	queryCalls    int
	err           error
}

func (e *countingEmbedder) vectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out
}

func (e *countingEmbedder) EmbedDocument(_ context.Context, texts []string) ([][]float32, error) {
	e.documentCalls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors(texts), nil
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, texts []string) ([][]float32, error) {
	e.queryCalls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors(texts), nil
}

func (e *countingEmbedder) Dimensions() int { return 2 }
func (e *countingEmbedder) Close() error    { return nil }
