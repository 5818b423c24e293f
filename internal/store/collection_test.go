package store

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Note  string `json:"note"`
}

func widgets(s *Store) *Collection[*widget] {
	return NewCollection(s, "accounts", ModelHandlers[*widget]{
		GetID:   func(w *widget) string { return w.ID },
		SetID:   func(w *widget, id string) { w.ID = id },
		Indexes: func(w *widget) map[string]string { return map[string]string{"email": w.Email} },
	})
}

func TestCollection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := widgets(openStore(t, NewMemoryBackend()))
	assert.Equal(t, "accounts", c.Name())

	w, err := c.Create(ctx, &widget{Email: "a@x.com", Note: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)

	got, err := c.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got, "the generated id is part of the stored body")

	got.Note = "second"
	require.NoError(t, c.Put(ctx, got))

	byEmail, err := c.GetByIndex(ctx, "email", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "second", byEmail.Note)

	_, err = c.Create(ctx, &widget{Email: "a@x.com"})
	require.ErrorIs(t, err, common.ErrConflict)

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	list, err := c.GetAllByIndex(ctx, "email", "a@x.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, w.ID))
	_, err = c.Get(ctx, w.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCollection_CorruptBodyIsTransactionFailure(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, NewMemoryBackend())
	require.NoError(t, s.Put(ctx, "accounts", Record{Key: "bad", Data: []byte(`"not an object"`)}))

	_, err := widgets(s).Get(ctx, "bad")
	require.ErrorIs(t, err, common.ErrTransactionFailure)
}
