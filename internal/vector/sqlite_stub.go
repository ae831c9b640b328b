//go:build !cgo
// +build !cgo

package vector

import (
	"context"
	"fmt"
)

// SQLiteIndex is a stub that returns an error when built without CGO.
// sqlite-vec and go-sqlite3 both need CGO.
type SQLiteIndex struct{}

// NewSQLiteIndex returns an error because CGO is not available.
func NewSQLiteIndex(dbPath string, dimensions int) (*SQLiteIndex, error) {
	return nil, fmt.Errorf("SQLite index not available: build with CGO_ENABLED=1")
}

// Insert is not implemented without CGO.
func (s *SQLiteIndex) Insert(context.Context, []string, [][]float32, []int) error {
	return fmt.Errorf("SQLite index not available")
}

// Query is not implemented without CGO.
func (s *SQLiteIndex) Query(context.Context, [][]float32, int) ([][]Match, error) {
	return nil, fmt.Errorf("SQLite index not available")
}

// Delete is not implemented without CGO.
func (s *SQLiteIndex) Delete(context.Context, []int) error {
	return fmt.Errorf("SQLite index not available")
}

// Count returns 0 without CGO.
func (s *SQLiteIndex) Count(context.Context) (int, error) {
	return 0, nil
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// Close is a no-op without CGO.
func (s *SQLiteIndex) Close() error {
	return nil
}
