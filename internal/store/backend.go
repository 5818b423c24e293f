package store

import (
	"fmt"

	"github.com/dmitrijs2005/tagzilla/internal/common"
)

// Backend kinds accepted by NewBackend.
const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindFile     = "file"
	KindMemory   = "memory"
)

// NewBackend builds the backend named by kind. dsn is used by the SQL
// backends, dir by the file backend.
func NewBackend(kind, dsn, dir string) (Backend, error) {
	switch kind {
	case KindSQLite, "":
		return OpenSQLite(dsn)
	case KindPostgres:
		return OpenPostgres(dsn)
	case KindFile:
		if dir == "" {
			return nil, fmt.Errorf("%w: file backend needs a data directory", common.ErrValidation)
		}
		return NewFileBackend(dir), nil
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrValidation, kind)
	}
}
