//go:build cgo
// +build cgo

package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

const memoryDSN = ":memory:"

// sqliteMaxBatch keeps IN lists well below SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxBatch = 500

// SQLiteIndex stores vectors in a sqlite-vec vec0 virtual table keyed by rowid, with the
// documents in a companion table. Distances are L2.
type SQLiteIndex struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteIndex opens (or creates) the database at dbPath and initialises the tables.
// ":memory:" keeps everything in a private in-memory database.
func NewSQLiteIndex(dbPath string, dimensions int) (*SQLiteIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	dsn := memoryDSN
	if dbPath != "" && dbPath != memoryDSN {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if err := initVectorSchema(db, dimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing vector schema: %w", err)
	}
	return &SQLiteIndex{db: db, dimensions: dimensions}, nil
}

func initVectorSchema(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating chunk_vectors virtual table: %w", err)
	}

	const docDDL = `
CREATE TABLE IF NOT EXISTS chunk_documents (
	id       INTEGER PRIMARY KEY,
	document TEXT NOT NULL
)`
	if _, err := db.Exec(docDDL); err != nil {
		return fmt.Errorf("creating chunk_documents table: %w", err)
	}
	return nil
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// Insert stores the batch in one transaction, or nothing if any id is already present.
func (s *SQLiteIndex) Insert(ctx context.Context, documents []string, vectors [][]float32, ids []int) error {
	if err := validateBatch(documents, vectors, ids, s.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, batch := range batchIDs(ids, sqliteMaxBatch) {
		placeholders, args := inClause(batch)
		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM chunk_documents WHERE id IN (`+placeholders+`) LIMIT 1`, args...,
		).Scan(&existing); err == nil {
			return fmt.Errorf("%w: %d", ErrDuplicateID, existing)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking existing ids: %w", err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunk_documents(id, document) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunk_vectors(rowid, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing vector insert: %w", err)
	}
	defer vecStmt.Close()

	for i, id := range ids {
		blob, err := sqlite_vec.SerializeFloat32(vectors[i])
		if err != nil {
			return fmt.Errorf("serializing embedding %d: %w", id, err)
		}
		if _, err := docStmt.ExecContext(ctx, int64(id), documents[i]); err != nil {
			return fmt.Errorf("inserting document %d: %w", id, err)
		}
		if _, err := vecStmt.ExecContext(ctx, int64(id), blob); err != nil {
			return fmt.Errorf("inserting vector %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector insert: %w", err)
	}
	return nil
}

// Query runs one vec0 KNN search per query vector.
func (s *SQLiteIndex) Query(ctx context.Context, queries [][]float32, k int) ([][]Match, error) {
	if err := validateQueries(queries, s.dimensions); err != nil {
		return nil, err
	}
	results := make([][]Match, len(queries))
	for i, query := range queries {
		matches, err := s.search(ctx, query, k)
		if err != nil {
			return nil, err
		}
		results[i] = matches
	}
	return results, nil
}

func (s *SQLiteIndex) search(ctx context.Context, query []float32, k int) ([]Match, error) {
	matches := []Match{}
	if k <= 0 {
		return matches, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	const q = `WITH knn AS (
	SELECT rowid, distance FROM chunk_vectors WHERE embedding MATCH ? AND k = ?
)
SELECT knn.rowid, knn.distance, d.document
FROM knn
JOIN chunk_documents d ON d.id = knn.rowid
ORDER BY knn.distance, knn.rowid`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			m  Match
			id int64
		)
		if err := rows.Scan(&id, &m.Distance, &m.Document); err != nil {
			return nil, fmt.Errorf("scanning vector result: %w", err)
		}
		m.ID = int(id)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector results: %w", err)
	}
	return matches, nil
}

// Delete removes vectors and their documents by id.
func (s *SQLiteIndex) Delete(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, batch := range batchIDs(ids, sqliteMaxBatch) {
		placeholders, args := inClause(batch)
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE rowid IN (`+placeholders+`)`, args...); err != nil {
			return fmt.Errorf("deleting vectors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_documents WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector delete: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func inClause(ids []int) (string, []any) {
	placeholders := strings.Repeat("?,", len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return placeholders[:len(placeholders)-1], args
}
