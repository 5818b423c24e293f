package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
)

const snapshotVersion = 1

// Snapshot is a portable copy of some or all collections.
type Snapshot struct {
	Version     int                 `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Collections map[string][]Record `json:"collections"`
}

// Export copies the named collections, or every collection when none is named.
func (s *Store) Export(ctx context.Context, now time.Time, collections ...string) (*Snapshot, error) {
	if len(collections) == 0 {
		collections = s.names
	}

	snap := &Snapshot{
		Version:     snapshotVersion,
		ExportedAt:  now.UTC(),
		Collections: make(map[string][]Record, len(collections)),
	}
	for _, name := range collections {
		recs, err := s.GetAll(ctx, name)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []Record{}
		}
		snap.Collections[name] = recs
	}
	return snap, nil
}

// Import writes every record of snap with Put, so existing keys are
// replaced. It stops at the first failure; records already written stay.
// It returns the number of records written.
func (s *Store) Import(ctx context.Context, snap *Snapshot) (int, error) {
	if snap == nil {
		return 0, nil
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported snapshot version %d", common.ErrValidation, snap.Version)
	}

	for name := range snap.Collections {
		if _, ok := s.schemas[name]; !ok {
			return 0, fmt.Errorf("%w: unknown collection %q in snapshot", common.ErrValidation, name)
		}
	}

	n := 0
	for _, name := range s.names {
		for _, rec := range snap.Collections[name] {
			if err := s.Put(ctx, name, rec); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
