package auth

import (
	"context"

	"github.com/dmitrijs2005/tagzilla/internal/store"
)

// Export snapshots every collection, secret hashes included. It is meant
// for local backups, not for end users.
func (s *Service) Export(ctx context.Context) Result {
	snap, err := s.repos.Store().Export(ctx, s.now())
	if err != nil {
		return s.failure(ctx, "export", err)
	}
	return ok("Data exported.", snap)
}

func (s *Service) Import(ctx context.Context, snap *store.Snapshot) Result {
	n, err := s.repos.Store().Import(ctx, snap)
	if err != nil {
		return s.failure(ctx, "import", err)
	}
	s.logger.Info(ctx, "snapshot imported", "records", n)
	return ok("Data imported.", map[string]int{"records": n})
}

// Status reports store readiness; it never fails.
func (s *Service) Status() Result {
	st := s.repos.Store().Status()
	if st.State != store.StateReady.String() {
		return Result{Code: CodeNotReady, Message: "Storage is " + st.State + ".", Payload: st}
	}
	return ok("Storage is ready.", st)
}
