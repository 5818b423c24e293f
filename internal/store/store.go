// Package store implements the record store: named collections of JSON
// documents with primary-key access and unique or non-unique secondary
// indexes, on top of a pluggable Backend.
//
// A Store is opened once, asynchronously. Until the bootstrap finishes every
// operation fails fast with common.ErrNotReady; if it fails, operations keep
// failing with ErrNotReady wrapping the cause.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/google/uuid"
)

// State is the readiness of a Store.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Status describes a Store for health reporting.
type Status struct {
	State       string   `json:"state"`
	Backend     string   `json:"backend"`
	Collections []string `json:"collections"`
	Error       string   `json:"error,omitempty"`
}

type Store struct {
	backend Backend
	logger  logging.Logger
	schemas map[string]Schema
	names   []string
	locks   map[string]*sync.RWMutex

	state   atomic.Int32
	once    sync.Once
	done    chan struct{}
	initErr error
}

// New returns an unopened Store over backend with the given collections.
func New(backend Backend, logger logging.Logger, schemas ...Schema) *Store {
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "store", "backend", backend.Name()),
		schemas: make(map[string]Schema, len(schemas)),
		locks:   make(map[string]*sync.RWMutex, len(schemas)),
		done:    make(chan struct{}),
	}
	for _, sc := range schemas {
		s.schemas[sc.Name] = sc
		s.names = append(s.names, sc.Name)
		s.locks[sc.Name] = &sync.RWMutex{}
	}
	sort.Strings(s.names)
	return s
}

// Open starts the one-time bootstrap in the background and returns at once.
// The returned channel yields the bootstrap outcome; repeated calls observe
// the first outcome.
func (s *Store) Open(ctx context.Context) <-chan error {
	s.once.Do(func() {
		go s.bootstrap(context.WithoutCancel(ctx))
	})

	res := make(chan error, 1)
	go func() {
		<-s.done
		res <- s.initErr
		close(res)
	}()
	return res
}

func (s *Store) bootstrap(ctx context.Context) {
	defer close(s.done)

	schemas := make([]Schema, 0, len(s.names))
	for _, name := range s.names {
		schemas = append(schemas, s.schemas[name])
	}

	if err := s.backend.Init(ctx, schemas); err != nil {
		s.initErr = fmt.Errorf("store init: %w", err)
		s.state.Store(int32(StateFailed))
		s.logger.Error(ctx, "store bootstrap failed", "error", err)
		return
	}

	s.state.Store(int32(StateReady))
	s.logger.Info(ctx, "store ready", "collections", s.names)
}

// Wait blocks until the bootstrap settles or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) State() State {
	return State(s.state.Load())
}

func (s *Store) Status() Status {
	st := Status{
		State:       s.State().String(),
		Backend:     s.backend.Name(),
		Collections: append([]string(nil), s.names...),
	}
	if s.State() == StateFailed {
		st.Error = s.initErr.Error()
	}
	return st
}

// Close releases the backend. Operations after Close are undefined.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) admit(collection string) (Schema, *sync.RWMutex, error) {
	switch s.State() {
	case StateReady:
	case StateFailed:
		return Schema{}, nil, fmt.Errorf("%w: %w", common.ErrNotReady, s.initErr)
	default:
		return Schema{}, nil, common.ErrNotReady
	}

	sc, ok := s.schemas[collection]
	if !ok {
		return Schema{}, nil, fmt.Errorf("%w: unknown collection %q", common.ErrTransactionFailure, collection)
	}
	return sc, s.locks[collection], nil
}

func checkIndexes(sc Schema, rec Record) error {
	for name := range rec.Indexes {
		if _, ok := sc.index(name); !ok {
			return fmt.Errorf("%w: unknown index %q on %q", common.ErrTransactionFailure, name, sc.Name)
		}
	}
	return nil
}

// wrap keeps NotFound and Conflict as they are and turns any other backend
// fault into TransactionFailure.
func wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrConflict) ||
		errors.Is(err, common.ErrTransactionFailure) {
		return fmt.Errorf("%s %s: %w", op, collection, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, collection, common.ErrTransactionFailure, err)
}

// Create inserts rec under a fresh key (rec.Key is used when set) and
// returns the stored record.
func (s *Store) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	sc, lock, err := s.admit(collection)
	if err != nil {
		return Record{}, err
	}
	if err := checkIndexes(sc, rec); err != nil {
		return Record{}, err
	}
	if rec.Key == "" {
		rec.Key = uuid.NewString()
	}

	ctx = context.WithoutCancel(ctx)
	lock.Lock()
	defer lock.Unlock()

	if err := s.backend.Insert(ctx, collection, rec); err != nil {
		return Record{}, wrap("create", collection, err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (Record, error) {
	_, lock, err := s.admit(collection)
	if err != nil {
		return Record{}, err
	}

	ctx = context.WithoutCancel(ctx)
	lock.RLock()
	defer lock.RUnlock()

	rec, err := s.backend.Get(ctx, collection, key)
	return rec, wrap("get", collection, err)
}

// GetByIndex returns the record whose index equals value. For a non-unique
// index the record with the smallest key is returned.
func (s *Store) GetByIndex(ctx context.Context, collection, index, value string) (Record, error) {
	recs, err := s.GetAllByIndex(ctx, collection, index, value)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("get %s by %s: %w", collection, index, common.ErrNotFound)
	}
	return recs[0], nil
}

// GetAllByIndex returns every record whose index equals value, ordered by key.
func (s *Store) GetAllByIndex(ctx context.Context, collection, index, value string) ([]Record, error) {
	sc, lock, err := s.admit(collection)
	if err != nil {
		return nil, err
	}
	if _, ok := sc.index(index); !ok {
		return nil, fmt.Errorf("%w: unknown index %q on %q", common.ErrTransactionFailure, index, collection)
	}

	ctx = context.WithoutCancel(ctx)
	lock.RLock()
	defer lock.RUnlock()

	recs, err := s.backend.FindByIndex(ctx, collection, index, value)
	if err != nil {
		return nil, wrap("find", collection, err)
	}
	sortByKey(recs)
	return recs, nil
}

// GetAll returns every record of a collection, ordered by key.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	_, lock, err := s.admit(collection)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	lock.RLock()
	defer lock.RUnlock()

	recs, err := s.backend.List(ctx, collection)
	if err != nil {
		return nil, wrap("list", collection, err)
	}
	sortByKey(recs)
	return recs, nil
}

// Put replaces the record stored under rec.Key, creating it if needed.
func (s *Store) Put(ctx context.Context, collection string, rec Record) error {
	sc, lock, err := s.admit(collection)
	if err != nil {
		return err
	}
	if rec.Key == "" {
		return fmt.Errorf("put %s: %w: record key is required", collection, common.ErrTransactionFailure)
	}
	if err := checkIndexes(sc, rec); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	lock.Lock()
	defer lock.Unlock()

	return wrap("put", collection, s.backend.Upsert(ctx, collection, rec))
}

// Delete removes a record. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, lock, err := s.admit(collection)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	lock.Lock()
	defer lock.Unlock()

	return wrap("delete", collection, s.backend.Delete(ctx, collection, key))
}

func sortByKey(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
}
