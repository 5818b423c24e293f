package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/filex"
)

// FileBackend keeps collections in memory and, when a directory is set,
// mirrors each collection to <dir>/<collection>.json after every write.
// Files are replaced atomically. With an empty directory nothing touches disk.
type FileBackend struct {
	dir string

	mu      sync.RWMutex
	schemas map[string]Schema
	data    map[string]map[string]Record
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{
		dir:     dir,
		schemas: map[string]Schema{},
		data:    map[string]map[string]Record{},
	}
}

// NewMemoryBackend returns a FileBackend that never persists.
func NewMemoryBackend() *FileBackend {
	return NewFileBackend("")
}

func (b *FileBackend) Name() string {
	if b.dir == "" {
		return "memory"
	}
	return "file"
}

func (b *FileBackend) Init(ctx context.Context, schemas []Schema) error {
	if b.dir != "" {
		dir, err := filex.EnsureDir(b.dir)
		if err != nil {
			return err
		}
		b.dir = dir
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sc := range schemas {
		b.schemas[sc.Name] = sc
		recs, err := b.load(sc.Name)
		if err != nil {
			return err
		}
		b.data[sc.Name] = recs
	}
	return nil
}

func (b *FileBackend) path(collection string) string {
	return filepath.Join(b.dir, collection+".json")
}

func (b *FileBackend) load(collection string) (map[string]Record, error) {
	out := map[string]Record{}
	if b.dir == "" {
		return out, nil
	}

	content, err := os.ReadFile(b.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	var recs []Record
	if err := json.Unmarshal(content, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	for _, r := range recs {
		out[r.Key] = r
	}
	return out, nil
}

// persist must be called with b.mu held.
func (b *FileBackend) persist(collection string) error {
	if b.dir == "" {
		return nil
	}

	recs := make([]Record, 0, len(b.data[collection]))
	for _, r := range b.data[collection] {
		recs = append(recs, r)
	}
	sortByKey(recs)

	content, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(b.path(collection), content, 0o600)
}

func (b *FileBackend) conflict(collection string, rec Record) error {
	for _, name := range b.schemas[collection].uniqueIndexes() {
		value := rec.Indexes[name]
		if value == "" {
			continue
		}
		for key, other := range b.data[collection] {
			if key != rec.Key && other.Indexes[name] == value {
				return fmt.Errorf("%w: %s %q already taken", common.ErrConflict, name, value)
			}
		}
	}
	return nil
}

func (b *FileBackend) table(collection string) (map[string]Record, error) {
	t, ok := b.data[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not initialized", collection)
	}
	return t, nil
}

// write applies rec and persists, restoring the previous state if the file
// cannot be written.
func (b *FileBackend) write(collection string, rec Record) error {
	t, err := b.table(collection)
	if err != nil {
		return err
	}

	prev, had := t[rec.Key]
	t[rec.Key] = clone(rec)

	if err := b.persist(collection); err != nil {
		if had {
			t[rec.Key] = prev
		} else {
			delete(t, rec.Key)
		}
		return err
	}
	return nil
}

func (b *FileBackend) Insert(_ context.Context, collection string, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(collection)
	if err != nil {
		return err
	}
	if _, exists := t[rec.Key]; exists {
		return fmt.Errorf("%w: key %q exists", common.ErrConflict, rec.Key)
	}
	if err := b.conflict(collection, rec); err != nil {
		return err
	}
	return b.write(collection, rec)
}

func (b *FileBackend) Upsert(_ context.Context, collection string, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.conflict(collection, rec); err != nil {
		return err
	}
	return b.write(collection, rec)
}

func (b *FileBackend) Get(_ context.Context, collection, key string) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.table(collection)
	if err != nil {
		return Record{}, err
	}
	rec, ok := t[key]
	if !ok {
		return Record{}, common.ErrNotFound
	}
	return clone(rec), nil
}

func (b *FileBackend) FindByIndex(_ context.Context, collection, index, value string) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.table(collection)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range t {
		if value != "" && rec.Indexes[index] == value {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (b *FileBackend) List(_ context.Context, collection string) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.table(collection)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(t))
	for _, rec := range t {
		out = append(out, clone(rec))
	}
	return out, nil
}

func (b *FileBackend) Delete(_ context.Context, collection, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.table(collection)
	if err != nil {
		return err
	}
	prev, ok := t[key]
	if !ok {
		return nil
	}
	delete(t, key)
	if err := b.persist(collection); err != nil {
		t[key] = prev
		return err
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

func clone(r Record) Record {
	out := Record{Key: r.Key, Data: append(json.RawMessage(nil), r.Data...)}
	if r.Indexes != nil {
		out.Indexes = make(map[string]string, len(r.Indexes))
		for k, v := range r.Indexes {
			out.Indexes[k] = v
		}
	}
	return out
}
