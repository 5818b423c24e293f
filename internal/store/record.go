package store

import (
	"context"
	"encoding/json"
)

// Index declares a secondary index on a collection.
type Index struct {
	Name   string
	Unique bool
}

// Schema declares a collection and its secondary indexes.
type Schema struct {
	Name    string
	Indexes []Index
}

func (s Schema) index(name string) (Index, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

func (s Schema) uniqueIndexes() []string {
	var names []string
	for _, idx := range s.Indexes {
		if idx.Unique {
			names = append(names, idx.Name)
		}
	}
	return names
}

// Record is a stored document: a primary key, a JSON body and the values
// of its secondary indexes. An empty index value means the record is not
// indexed under that name.
type Record struct {
	Key     string            `json:"key"`
	Data    json.RawMessage   `json:"data"`
	Indexes map[string]string `json:"indexes,omitempty"`
}

// Backend is the durable storage a Store drives. Implementations do not
// need their own per-collection serialization; the Store holds the
// collection lock around every call. Insert and Upsert must perform their
// uniqueness checks and the write atomically.
type Backend interface {
	Name() string
	Init(ctx context.Context, schemas []Schema) error
	// Insert fails with common.ErrConflict on a duplicate key or unique index value.
	Insert(ctx context.Context, collection string, rec Record) error
	// Upsert replaces the record, failing with common.ErrConflict when a unique
	// index value belongs to a different key.
	Upsert(ctx context.Context, collection string, rec Record) error
	// Get fails with common.ErrNotFound.
	Get(ctx context.Context, collection, key string) (Record, error)
	FindByIndex(ctx context.Context, collection, index, value string) ([]Record, error)
	List(ctx context.Context, collection string) ([]Record, error)
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, collection, key string) error
	Close() error
}
