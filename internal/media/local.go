package media

import (
	"context"
	"path/filepath"

	"github.com/dmitrijs2005/tagzilla/internal/filex"
	"github.com/google/uuid"
)

// LocalStore keeps pictures under dir/<account id>/.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (l *LocalStore) Save(_ context.Context, accountID, contentType string, data []byte) (string, error) {
	ext, err := Validate(accountID, contentType, data)
	if err != nil {
		return "", err
	}

	dir, err := filex.EnsureDir(filepath.Join(l.dir, accountID))
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, uuid.NewString()+ext)
	if err := filex.WriteFileAtomic(path, data, 0o640); err != nil {
		return "", err
	}
	return path, nil
}
