// Package auth composes the record store, session manager and OTP verifier
// into the caller-facing account flows. It is the single place where typed
// failures are turned into a Result.
package auth

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/media"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
	"github.com/dmitrijs2005/tagzilla/internal/sessions"
)

const accountLockStripes = 64

type Deps struct {
	Repos    *repomanager.RepositoryManager
	Sessions *sessions.Manager
	OTP      *otp.Verifier
	Media    media.Store
}

type Service struct {
	repos    *repomanager.RepositoryManager
	sessions *sessions.Manager
	otp      *otp.Verifier
	media    media.Store
	logger   logging.Logger
	now      func() time.Time
	region   string

	// read-merge-write of one account is serialized
	locks [accountLockStripes]sync.Mutex
}

type Option func(*Service)

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		repos:    deps.Repos,
		sessions: deps.Sessions,
		otp:      deps.OTP,
		media:    deps.Media,
		logger:   logging.NewNop(),
		now:      time.Now,
		region:   otp.DefaultRegion,
	}
	if deps.OTP != nil {
		s.region = deps.OTP.Region()
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "auth")
	return s
}

func (s *Service) lockAccount(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%accountLockStripes]
	mu.Lock()
	return mu.Unlock
}

// failure logs unexpected errors and maps err to a Result.
func (s *Service) failure(ctx context.Context, op string, err error) Result {
	r := fail(err)
	switch r.Code {
	case CodeInternal, CodeTransactionFailure:
		s.logger.Error(ctx, op+" failed", "error", err)
	case CodeNotReady:
		s.logger.Warn(ctx, op+" rejected, store not ready", "error", err)
	default:
		s.logger.Debug(ctx, op+" rejected", "code", string(r.Code), "error", err)
	}
	return r
}

func (s *Service) addActivity(ctx context.Context, accountID string, typ models.ActivityType, title, description string, status models.ActivityStatus, meta map[string]any) *models.Activity {
	a := &models.Activity{
		ID:          newActivityID(),
		AccountID:   accountID,
		Type:        typ,
		Title:       title,
		Description: description,
		Timestamp:   s.now(),
		Metadata:    meta,
		Status:      status,
	}
	a, err := s.repos.Activities().Create(ctx, a)
	if err != nil {
		s.logger.Warn(ctx, "failed to append activity", "account_id", accountID, "type", string(typ), "error", err)
		return nil
	}
	return a
}

func (s *Service) account(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repos.Accounts().Get(ctx, accountID)
}
