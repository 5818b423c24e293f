package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
	"github.com/dmitrijs2005/tagzilla/internal/store"
	"github.com/dmitrijs2005/tagzilla/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *timex.FakeClock, *repomanager.RepositoryManager) {
	t.Helper()
	rm := repomanager.New(store.NewMemoryBackend(), logging.NewNop())
	require.NoError(t, <-rm.Store().Open(context.Background()))

	clock := timex.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewManager(rm.Sessions(), opts...), clock, rm
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc-1")
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Token, common.SessionTokenBytes*2)
	assert.True(t, s.Active)
	assert.Equal(t, clock.Now(), s.CreatedAt)
	assert.Equal(t, clock.Now().Add(24*time.Hour), s.ExpiresAt)
	assert.True(t, m.IsValid(s))

	other, err := m.Create(ctx, "acc-1")
	require.NoError(t, err)
	assert.NotEqual(t, s.Token, other.Token)
}

func TestCreate_CustomTTL(t *testing.T) {
	m, clock, _ := newTestManager(t, WithTTL(time.Hour))
	s, err := m.Create(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), s.ExpiresAt)
	assert.Equal(t, time.Hour, m.TTL())
}

func TestGetByToken(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc")
	require.NoError(t, err)

	got, err := m.GetByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = m.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = m.GetByToken(ctx, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIsValid_ExpiresWithClock(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc")
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Second)
	assert.True(t, m.IsValid(s))

	clock.Advance(time.Second)
	assert.False(t, m.IsValid(s), "now == expiresAt is no longer valid")

	// the row still exists; only the predicate changed
	got, err := m.GetByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.False(t, m.IsValid(got))

	assert.False(t, m.IsValid(nil))
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc")
	require.NoError(t, err)

	require.NoError(t, m.Deactivate(ctx, s.Token))

	got, err := m.GetByToken(ctx, s.Token)
	require.NoError(t, err, "tombstoned row is retained")
	assert.False(t, got.Active)
	assert.False(t, m.IsValid(got))

	require.NoError(t, m.Deactivate(ctx, s.Token))

	err = m.Deactivate(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc")
	require.NoError(t, err)

	got, err := m.Validate(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc", got.AccountID)

	_, err = m.Validate(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	clock.Advance(25 * time.Hour)
	_, err = m.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, common.ErrExpired)

	stored, err := m.GetByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.False(t, stored.Active, "expired session deactivated on discovery")

	_, err = m.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestValidate_AfterLogout(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	s, err := m.Create(ctx, "acc")
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, s.Token))

	_, err = m.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestListAndDeactivateAll(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestManager(t)

	var tokens []string
	for i := 0; i < 3; i++ {
		s, err := m.Create(ctx, "acc")
		require.NoError(t, err)
		tokens = append(tokens, s.Token)
		clock.Advance(time.Minute)
	}
	_, err := m.Create(ctx, "someone-else")
	require.NoError(t, err)

	list, err := m.ListForAccount(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, s := range list {
		assert.Equal(t, tokens[i], s.Token, "oldest first")
	}

	n, err := m.DeactivateAll(ctx, "acc", tokens[1])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.Validate(ctx, tokens[0])
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = m.Validate(ctx, tokens[1])
	assert.NoError(t, err)
	_, err = m.Validate(ctx, tokens[2])
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	n, err = m.DeactivateAll(ctx, "acc", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	m, clock, rm := newTestManager(t)

	old, err := m.Create(ctx, "acc")
	require.NoError(t, err)
	loggedOut, err := m.Create(ctx, "acc")
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, loggedOut.Token))

	clock.Advance(23 * time.Hour)
	fresh, err := m.Create(ctx, "acc")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := rm.Sessions().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, fresh.ID, all[0].ID)

	_, err = m.GetByToken(ctx, old.Token)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

type failingRepo struct {
	Repository
	err error
}

func (f failingRepo) Create(context.Context, *models.Session) (*models.Session, error) {
	return nil, f.err
}

func (f failingRepo) GetByIndex(context.Context, string, string) (*models.Session, error) {
	return nil, f.err
}

func TestErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := NewManager(failingRepo{err: boom})

	_, err := m.Create(ctx, "acc")
	assert.ErrorIs(t, err, boom)

	_, err = m.Validate(ctx, "tok")
	assert.ErrorIs(t, err, boom)

	err = m.Deactivate(ctx, "tok")
	assert.ErrorIs(t, err, boom)
}

func TestNotReadyStore(t *testing.T) {
	rm := repomanager.New(store.NewMemoryBackend(), logging.NewNop())
	m := NewManager(rm.Sessions())

	_, err := m.Create(context.Background(), "acc")
	assert.ErrorIs(t, err, common.ErrNotReady)
}
