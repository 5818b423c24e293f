// Package sessions issues, validates and retires session tokens.
//
// A session is valid iff it is active and the current time is before its
// expiry. Expiry is checked when a token is used; Sweep only reclaims space.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
)

const DefaultTTL = 24 * time.Hour

// Repository is the slice of the session collection the manager needs.
type Repository interface {
	Create(ctx context.Context, s *models.Session) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	GetByIndex(ctx context.Context, index, value string) (*models.Session, error)
	GetAllByIndex(ctx context.Context, index, value string) ([]*models.Session, error)
	GetAll(ctx context.Context) ([]*models.Session, error)
	Put(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(repo Repository, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("component", "sessions")
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) generateToken() (string, error) {
	return common.MakeRandHexString(common.SessionTokenBytes)
}

// Create issues a new active session for accountID.
func (m *Manager) Create(ctx context.Context, accountID string) (*models.Session, error) {
	token, err := m.generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := m.now()
	s := &models.Session{
		AccountID: accountID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Active:    true,
	}

	s, err = m.repo.Create(ctx, s)
	if err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "session created", "session_id", s.ID, "account_id", accountID, "expires_at", s.ExpiresAt)
	return s, nil
}

// GetByToken loads the session row for token, valid or not.
func (m *Manager) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, common.ErrNotFound
	}
	return m.repo.GetByIndex(ctx, repomanager.IndexToken, token)
}

// IsValid reports whether s is active and unexpired now.
func (m *Manager) IsValid(s *models.Session) bool {
	return s != nil && s.ValidAt(m.now())
}

// Validate loads the session for token and checks it. An active session
// found past its expiry is deactivated on the spot and ErrExpired returned;
// an inactive one yields ErrInvalidToken.
func (m *Manager) Validate(ctx context.Context, token string) (*models.Session, error) {
	s, err := m.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	if m.IsValid(s) {
		return s, nil
	}

	if !s.Active {
		return nil, common.ErrInvalidToken
	}

	s.Active = false
	if err := m.repo.Put(ctx, s); err != nil {
		m.logger.Warn(ctx, "failed to deactivate stale session", "session_id", s.ID, "error", err)
	} else {
		m.logger.Info(ctx, "stale session deactivated", "session_id", s.ID, "account_id", s.AccountID)
	}
	return nil, common.ErrExpired
}

// Deactivate tombstones the session for token. The row is kept.
func (m *Manager) Deactivate(ctx context.Context, token string) error {
	s, err := m.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if !s.Active {
		return nil
	}

	s.Active = false
	if err := m.repo.Put(ctx, s); err != nil {
		return err
	}

	m.logger.Info(ctx, "session deactivated", "session_id", s.ID, "account_id", s.AccountID)
	return nil
}

// ListForAccount returns every session row of an account, oldest first.
func (m *Manager) ListForAccount(ctx context.Context, accountID string) ([]*models.Session, error) {
	list, err := m.repo.GetAllByIndex(ctx, repomanager.IndexAccountID, accountID)
	if err != nil {
		return nil, err
	}
	sortByCreated(list)
	return list, nil
}

// DeactivateAll tombstones every active session of accountID except the one
// holding keepToken. It returns how many were deactivated.
func (m *Manager) DeactivateAll(ctx context.Context, accountID, keepToken string) (int, error) {
	list, err := m.repo.GetAllByIndex(ctx, repomanager.IndexAccountID, accountID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range list {
		if !s.Active || (keepToken != "" && s.Token == keepToken) {
			continue
		}
		s.Active = false
		if err := m.repo.Put(ctx, s); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		m.logger.Info(ctx, "sessions deactivated", "account_id", accountID, "count", n)
	}
	return n, nil
}

// Sweep deletes every session that is no longer valid, expired or
// tombstoned, and returns how many rows were removed. It is maintenance
// only; validity never depends on it having run.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	all, err := m.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	n := 0
	for _, s := range all {
		if s.ValidAt(now) {
			continue
		}
		if err := m.repo.Delete(ctx, s.ID); err != nil {
			return n, err
		}
		n++
	}

	m.logger.Info(ctx, "session sweep finished", "removed", n, "scanned", len(all))
	return n, nil
}
