// Package vector provides the VectorIndex contract and its adapters: an in-process brute-force
// index, SQLite with sqlite-vec, and Qdrant.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateID is returned by Insert when an id is already stored or repeated in the batch.
var ErrDuplicateID = errors.New("vector: duplicate id")

// VectorIndex stores vectors with their documents under integer ids and answers
// k-nearest-neighbour queries. All adapters use Euclidean (L2) distance.
type VectorIndex interface {
	// Insert stores one (document, vector, id) triple per position. It fails with
	// ErrDuplicateID without storing anything if an id is already present.
	Insert(ctx context.Context, documents []string, vectors [][]float32, ids []int) error
	// Query returns, for each query vector, up to k matches in ascending distance order.
	Query(ctx context.Context, queries [][]float32, k int) ([][]Match, error)
	// Delete removes the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids []int) error
	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)
	Type() string
	Close() error
}

// Match is a single nearest-neighbour hit.
type Match struct {
	ID       int
	Document string
	Distance float64
}

func validateBatch(documents []string, vectors [][]float32, ids []int, dimensions int) error {
	if len(documents) != len(vectors) || len(vectors) != len(ids) {
		return fmt.Errorf("documents, vectors and ids length mismatch: %d, %d, %d",
			len(documents), len(vectors), len(ids))
	}
	seen := make(map[int]struct{}, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), dimensions)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %d repeated in batch", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateQueries(queries [][]float32, dimensions int) error {
	for _, q := range queries {
		if len(q) != dimensions {
			return fmt.Errorf("query dimension mismatch: got %d, expected %d", len(q), dimensions)
		}
	}
	return nil
}

// batchIDs splits ids into consecutive slices of at most size elements.
func batchIDs(ids []int, size int) [][]int {
	batches := make([][]int, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
