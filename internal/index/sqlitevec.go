//go:build sqlite_vec

package index

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// sqliteVecMaxK is the largest k a vec0 KNN query accepts.
const sqliteVecMaxK = 4096

type sqliteVec struct{}

func newSQLiteVec() Backend { return sqliteVec{} }

func (sqliteVec) Name() string { return BackendSQLiteVec }

func (sqliteVec) Available() error {
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return fmt.Errorf("sqlite-vec extension: %w", err)
	}
	return nil
}

// Build loads the vectors into an in-memory vec0 table.
func (sqliteVec) Build(v *Vectors) (VectorSearcher, error) {
	if v == nil {
		return nil, fmt.Errorf("sqlite-vec: nil vectors")
	}
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &sqliteVecSearcher{db: db, dim: v.Dim, n: v.Len()}
	if err := s.load(v); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

type sqliteVecSearcher struct {
	db  *sql.DB
	dim int
	n   int
}

func (s *sqliteVecSearcher) load(v *Vectors) error {
	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE vec_items USING vec0(
		embedding float[%d] distance_metric=cosine
	)`, v.Dim)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create vec0 table: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO vec_items(rowid, embedding) VALUES (?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range v.Len() {
		blob, err := sqlite_vec.SerializeFloat32(v.Row(i))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("serialize vector %d: %w", i, err)
		}
		// rowid 0 is reserved, positions are stored shifted by one
		if _, err := stmt.Exec(i+1, blob); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *sqliteVecSearcher) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query dim %d, index dim %d", domain.ErrVectorDimMismatch, len(query), s.dim)
	}
	k = min(clampK(k, s.n), sqliteVecMaxK)
	if k == 0 {
		return []Neighbor{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT rowid, distance FROM vec_items WHERE embedding MATCH ? AND k = ? ORDER BY distance",
		blob, k)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Neighbor, 0, k)
	for rows.Next() {
		var (
			rowid    int64
			distance float64
		)
		if err := rows.Scan(&rowid, &distance); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, Neighbor{Position: int(rowid - 1), Score: float32(1 - distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knn rows: %w", err)
	}
	return out, nil
}

func (s *sqliteVecSearcher) Len() int     { return s.n }
func (s *sqliteVecSearcher) Dim() int     { return s.dim }
func (s *sqliteVecSearcher) Close() error { return s.db.Close() }
