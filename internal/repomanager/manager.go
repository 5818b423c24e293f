// Package repomanager declares the three collections of the core (accounts,
// sessions, activities) and hands out typed access to them.
package repomanager

import (
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/store"
)

const (
	CollectionAccounts   = "accounts"
	CollectionSessions   = "sessions"
	CollectionActivities = "activities"

	IndexEmail     = "email"
	IndexToken     = "token"
	IndexAccountID = "account_id"
)

type (
	Accounts   = store.Collection[*models.Account]
	Sessions   = store.Collection[*models.Session]
	Activities = store.Collection[*models.Activity]
)

// Schemas returns the collection layout shared by every backend.
func Schemas() []store.Schema {
	return []store.Schema{
		{Name: CollectionAccounts, Indexes: []store.Index{{Name: IndexEmail, Unique: true}}},
		{Name: CollectionSessions, Indexes: []store.Index{{Name: IndexToken, Unique: true}, {Name: IndexAccountID}}},
		{Name: CollectionActivities, Indexes: []store.Index{{Name: IndexAccountID}}},
	}
}

type RepositoryManager struct {
	store      *store.Store
	accounts   *Accounts
	sessions   *Sessions
	activities *Activities
}

// New wraps backend in a Store with the core collections. The store still
// has to be opened.
func New(backend store.Backend, logger logging.Logger) *RepositoryManager {
	s := store.New(backend, logger, Schemas()...)

	return &RepositoryManager{
		store: s,
		accounts: store.NewCollection(s, CollectionAccounts, store.ModelHandlers[*models.Account]{
			GetID: func(a *models.Account) string { return a.ID },
			SetID: func(a *models.Account, id string) { a.ID = id },
			Indexes: func(a *models.Account) map[string]string {
				return map[string]string{IndexEmail: a.Email}
			},
		}),
		sessions: store.NewCollection(s, CollectionSessions, store.ModelHandlers[*models.Session]{
			GetID: func(x *models.Session) string { return x.ID },
			SetID: func(x *models.Session, id string) { x.ID = id },
			Indexes: func(x *models.Session) map[string]string {
				return map[string]string{IndexToken: x.Token, IndexAccountID: x.AccountID}
			},
		}),
		activities: store.NewCollection(s, CollectionActivities, store.ModelHandlers[*models.Activity]{
			GetID: func(x *models.Activity) string { return x.ID },
			SetID: func(x *models.Activity, id string) { x.ID = id },
			Indexes: func(x *models.Activity) map[string]string {
				return map[string]string{IndexAccountID: x.AccountID}
			},
		}),
	}
}

func (m *RepositoryManager) Store() *store.Store { return m.store }
func (m *RepositoryManager) Accounts() *Accounts { return m.accounts }
func (m *RepositoryManager) Sessions() *Sessions { return m.sessions }
func (m *RepositoryManager) Activities() *Activities { return m.activities }
