//go:build !sqlite_vec

package index

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

type sqliteVec struct{}

func newSQLiteVec() Backend { return sqliteVec{} }

func (sqliteVec) Name() string { return BackendSQLiteVec }

func (sqliteVec) Available() error {
	return errors.New("binary built without the sqlite_vec tag")
}

func (sqliteVec) Build(*Vectors) (VectorSearcher, error) {
	return nil, fmt.Errorf("%s: %w", BackendSQLiteVec, domain.ErrBackendUnavailable)
}
