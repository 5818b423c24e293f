package otp

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
)

// Cache keeps challenges by verification id for a limited time.
// Get returns common.ErrNotFound once an entry is gone or past its ttl.
type Cache interface {
	Put(ctx context.Context, c *Challenge, ttl time.Duration) error
	Get(ctx context.Context, verificationID string) (*Challenge, error)
	Delete(ctx context.Context, verificationID string) error
}

// Sweeper is implemented by caches that need explicit eviction.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

type memoryEntry struct {
	challenge Challenge
	deadline  time.Time
}

// MemoryCache is an in-process TTL map. Expired entries are dropped when read
// and by Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{now: now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Put(_ context.Context, c *Challenge, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[c.VerificationID] = memoryEntry{challenge: *c, deadline: m.now().Add(ttl)}
	return nil
}

func (m *MemoryCache) Get(_ context.Context, verificationID string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[verificationID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !m.now().Before(e.deadline) {
		delete(m.entries, verificationID)
		return nil, common.ErrNotFound
	}
	c := e.challenge
	return &c, nil
}

func (m *MemoryCache) Delete(_ context.Context, verificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, verificationID)
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes entries past their ttl and returns how many were dropped.
func (m *MemoryCache) Sweep(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, e := range m.entries {
		if !now.Before(e.deadline) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}
