package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/google/uuid"
)

// ModelHandlers tell a Collection how to read and assign a model's key and
// which index values it carries.
type ModelHandlers[T any] struct {
	GetID   func(T) string
	SetID   func(T, string)
	Indexes func(T) map[string]string
}

// Collection is typed access to one collection. Models are stored as JSON.
type Collection[T any] struct {
	store    *Store
	name     string
	handlers ModelHandlers[T]
}

func NewCollection[T any](s *Store, name string, handlers ModelHandlers[T]) *Collection[T] {
	return &Collection[T]{store: s, name: name, handlers: handlers}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) encode(v T) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode %s: %w", common.ErrTransactionFailure, c.name, err)
	}
	rec := Record{Key: c.handlers.GetID(v), Data: data}
	if c.handlers.Indexes != nil {
		rec.Indexes = c.handlers.Indexes(v)
	}
	return rec, nil
}

func (c *Collection[T]) decode(rec Record) (T, error) {
	var v T
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return v, fmt.Errorf("%w: decode %s/%s: %w", common.ErrTransactionFailure, c.name, rec.Key, err)
	}
	return v, nil
}

func (c *Collection[T]) decodeAll(recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := c.decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Create assigns a fresh id when v has none and inserts it.
func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	if c.handlers.GetID(v) == "" {
		c.handlers.SetID(v, uuid.NewString())
	}
	rec, err := c.encode(v)
	if err != nil {
		return v, err
	}
	if _, err := c.store.Create(ctx, c.name, rec); err != nil {
		return v, err
	}
	return v, nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	rec, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(rec)
}

func (c *Collection[T]) GetByIndex(ctx context.Context, index, value string) (T, error) {
	rec, err := c.store.GetByIndex(ctx, c.name, index, value)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(rec)
}

func (c *Collection[T]) GetAllByIndex(ctx context.Context, index, value string) ([]T, error) {
	recs, err := c.store.GetAllByIndex(ctx, c.name, index, value)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(recs)
}

func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	recs, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(recs)
}

// Put replaces the stored model with v.
func (c *Collection[T]) Put(ctx context.Context, v T) error {
	rec, err := c.encode(v)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.name, rec)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}
