package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/chunkrecall/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force L2 search.
// Ties in distance keep insertion order.
type MemoryIndex struct {
	dimensions int
	entries    []memoryEntry
	byID       map[int]int // id -> position in entries
	mu         sync.RWMutex
}

type memoryEntry struct {
	id       int
	document string
	vector   []float32
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byID:       make(map[int]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Insert appends the batch, or stores nothing if any id is already present.
func (m *MemoryIndex) Insert(ctx context.Context, documents []string, vectors [][]float32, ids []int) error {
	if err := validateBatch(documents, vectors, ids, m.dimensions); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
	}
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.byID[id] = len(m.entries)
		m.entries = append(m.entries, memoryEntry{id: id, document: documents[i], vector: vec})
	}
	return nil
}

// Query returns the k nearest entries per query vector.
func (m *MemoryIndex) Query(ctx context.Context, queries [][]float32, k int) ([][]Match, error) {
	if err := validateQueries(queries, m.dimensions); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([][]Match, len(queries))
	if k <= 0 || len(m.entries) == 0 {
		for i := range results {
			results[i] = []Match{}
		}
		return results, nil
	}
	if k > len(m.entries) {
		k = len(m.entries)
	}
	for qi, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored := make([]Match, len(m.entries))
		for i, e := range m.entries {
			scored[i] = Match{ID: e.id, Document: e.document, Distance: utils.L2Distance(query, e.vector)}
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
		results[qi] = scored[:k]
	}
	return results, nil
}

// Delete removes entries by id, keeping the remaining entries in insertion order.
func (m *MemoryIndex) Delete(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	remove := make(map[int]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !remove[e.id] {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	m.byID = make(map[int]int, len(kept))
	for i, e := range kept {
		m.byID[e.id] = i
	}
	return nil
}

// Count returns the number of vectors in the index.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
