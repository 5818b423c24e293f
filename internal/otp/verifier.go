package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	codeFloor = big.NewInt(100000)
	codeSpan  = big.NewInt(900000)
)

// generateCode draws uniformly from 100000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return n.Add(n, codeFloor).String(), nil
}

type Verifier struct {
	cache     Cache
	deliverer Deliverer
	logger    logging.Logger
	now       func() time.Time

	ttl         time.Duration
	retention   time.Duration
	maxAttempts int
	region      string

	sendBurst    int
	sendInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	deliveries sync.WaitGroup
}

type Option func(*Verifier)

func WithTTL(ttl time.Duration) Option {
	return func(v *Verifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithRetention sets how long a challenge stays in the cache after expiry,
// so that late verify calls still see Expired rather than an unknown id.
func WithRetention(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.retention = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithSendLimit allows burst sends per phone, refilled one per interval.
// A burst of zero disables the limit.
func WithSendLimit(burst int, interval time.Duration) Option {
	return func(v *Verifier) {
		v.sendBurst = burst
		v.sendInterval = interval
	}
}

func WithRegion(region string) Option {
	return func(v *Verifier) {
		if region != "" {
			v.region = region
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

func NewVerifier(cache Cache, deliverer Deliverer, opts ...Option) *Verifier {
	v := &Verifier{
		cache:       cache,
		deliverer:   deliverer,
		logger:      logging.NewNop(),
		now:         time.Now,
		ttl:         DefaultTTL,
		retention:   DefaultRetention,
		maxAttempts: DefaultMaxAttempts,
		region:      DefaultRegion,
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, o := range opts {
		o(v)
	}
	v.logger = v.logger.With("component", "otp")
	return v
}

func (v *Verifier) Region() string { return v.region }

// cacheTTL is how long an entry stays readable from now on.
func (v *Verifier) cacheTTL(c *Challenge) time.Duration {
	ttl := c.ExpiresAt.Add(v.retention).Sub(v.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (v *Verifier) allow(phone string) bool {
	if v.sendBurst <= 0 {
		return true
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.limiters[phone]
	if !ok {
		l = rate.NewLimiter(rate.Every(v.sendInterval), v.sendBurst)
		v.limiters[phone] = l
	}
	return l.AllowN(v.now(), 1)
}

// Send issues a fresh challenge for phone and dispatches its code in the
// background. The code is never part of the result.
func (v *Verifier) Send(ctx context.Context, phone string) (*Status, error) {
	normalized, err := NormalizePhone(phone, v.region)
	if err != nil {
		return nil, err
	}
	if !v.allow(normalized) {
		return nil, common.ErrRateLimited
	}
	return v.issue(ctx, normalized)
}

func (v *Verifier) issue(ctx context.Context, phone string) (*Status, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := v.now()
	id := verificationPrefix + uuid.NewString()
	c := &Challenge{
		VerificationID: id,
		Phone:          phone,
		CodeHash:       hashCode(id, code),
		CreatedAt:      now,
		ExpiresAt:      now.Add(v.ttl),
		MaxAttempts:    v.maxAttempts,
	}

	if err := v.cache.Put(ctx, c, v.cacheTTL(c)); err != nil {
		return nil, err
	}
	v.logger.Info(ctx, "otp challenge issued", "verification_id", id, "phone", phone, "expires_at", c.ExpiresAt)

	v.dispatch(ctx, id, phone, code)

	return c.status(), nil
}

func (v *Verifier) dispatch(ctx context.Context, id, phone, code string) {
	ctx = context.WithoutCancel(ctx)

	v.deliveries.Add(1)
	go func() {
		defer v.deliveries.Done()
		if err := v.deliverer.Deliver(ctx, phone, code); err != nil {
			v.logger.Error(ctx, "otp delivery failed", "verification_id", id, "phone", phone,
				"error", fmt.Errorf("%w: %w", common.ErrDeliveryFailed, err))
		}
	}()
}

// Wait blocks until every pending delivery has returned.
func (v *Verifier) Wait() {
	v.deliveries.Wait()
}

func (v *Verifier) load(ctx context.Context, verificationID string) (*Challenge, error) {
	c, err := v.cache.Get(ctx, verificationID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidVerificationID
		}
		return nil, err
	}
	return c, nil
}

func (v *Verifier) discard(ctx context.Context, c *Challenge, reason string) {
	if err := v.cache.Delete(ctx, c.VerificationID); err != nil {
		v.logger.Warn(ctx, "failed to discard otp challenge", "verification_id", c.VerificationID, "error", err)
		return
	}
	v.logger.Info(ctx, "otp challenge discarded", "verification_id", c.VerificationID, "reason", reason)
}

// Verify checks code against the challenge. Only a code comparison charges
// an attempt: unknown id, expiry, an exhausted budget and a phone mismatch
// all return before the counter moves.
func (v *Verifier) Verify(ctx context.Context, phone, code, verificationID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, err := v.load(ctx, verificationID)
	if err != nil {
		return err
	}

	if c.expiredAt(v.now()) {
		v.discard(ctx, c, "expired")
		return common.ErrExpired
	}

	if c.exhausted() {
		v.discard(ctx, c, "exhausted")
		return common.ErrExhausted
	}

	if v.normalizeLoose(phone) != c.Phone {
		return common.ErrPhoneMismatch
	}

	c.Attempts++
	if err := v.cache.Put(ctx, c, v.cacheTTL(c)); err != nil {
		return err
	}

	if !c.matches(code) {
		v.logger.Info(ctx, "otp code mismatch", "verification_id", c.VerificationID, "attempts", c.Attempts)
		return common.ErrInvalidCode
	}

	v.discard(ctx, c, "verified")
	return nil
}

// normalizeLoose formats phone as E.164 when it parses and leaves it raw
// otherwise, so an unparsable phone simply mismatches.
func (v *Verifier) normalizeLoose(phone string) string {
	if n, err := NormalizePhone(phone, v.region); err == nil {
		return n
	}
	return phone
}

// Resend discards the named challenge, if any, and issues a new one with a
// fresh expiry and attempt budget.
func (v *Verifier) Resend(ctx context.Context, phone, verificationID string) (*Status, error) {
	normalized, err := NormalizePhone(phone, v.region)
	if err != nil {
		return nil, err
	}
	if !v.allow(normalized) {
		return nil, common.ErrRateLimited
	}

	if verificationID != "" {
		if err := v.cache.Delete(ctx, verificationID); err != nil {
			return nil, err
		}
	}
	return v.issue(ctx, normalized)
}

// Status reports expiry and remaining attempts of a live challenge.
func (v *Verifier) Status(ctx context.Context, verificationID string) (*Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, err := v.load(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if c.expiredAt(v.now()) {
		v.discard(ctx, c, "expired")
		return nil, common.ErrExpired
	}
	return c.status(), nil
}

// Sweep evicts dead cache entries when the cache needs it and drops send
// limiters that have fully refilled.
func (v *Verifier) Sweep(ctx context.Context) int {
	n := 0
	if s, ok := v.cache.(Sweeper); ok {
		n = s.Sweep(ctx)
	}

	v.mu.Lock()
	now := v.now()
	for phone, l := range v.limiters {
		if l.TokensAt(now) >= float64(v.sendBurst) {
			delete(v.limiters, phone)
		}
	}
	v.mu.Unlock()

	v.logger.Debug(ctx, "otp sweep finished", "evicted", n)
	return n
}
