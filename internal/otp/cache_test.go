package otp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/timex"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	clock := timex.NewFakeClock(time.Now())
	c := NewMemoryCache(clock.Now)

	ch := &Challenge{VerificationID: "ver_1", Phone: testPhone, Attempts: 1}
	require.NoError(t, c.Put(ctx, ch, time.Minute))

	ch.Attempts = 2
	got, err := c.Get(ctx, "ver_1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts, "cache keeps a copy")

	clock.Advance(time.Minute)
	_, err = c.Get(ctx, "ver_1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, c.Len(), "expired entry evicted on read")

	require.NoError(t, c.Put(ctx, &Challenge{VerificationID: "ver_2"}, time.Minute))
	require.NoError(t, c.Put(ctx, &Challenge{VerificationID: "ver_3"}, time.Hour))
	require.NoError(t, c.Delete(ctx, "ver_missing"))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.Sweep(ctx))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "ver_3"))
	assert.Zero(t, c.Len())
}

type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	c := NewRedisCache(fr)

	ch := &Challenge{VerificationID: "ver_1", Phone: testPhone, CodeHash: "h", MaxAttempts: 3}
	require.NoError(t, c.Put(ctx, ch, 10*time.Minute))

	raw, ok := fr.data["otp:challenge:ver_1"]
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, fr.ttl["otp:challenge:ver_1"])

	var stored Challenge
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, testPhone, stored.Phone)

	got, err := c.Get(ctx, "ver_1")
	require.NoError(t, err)
	assert.Equal(t, *ch, *got)

	require.NoError(t, c.Delete(ctx, "ver_1"))
	_, err = c.Get(ctx, "ver_1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRedisCache_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	fr := newFakeRedis()
	fr.err = boom
	c := NewRedisCache(fr)

	assert.ErrorIs(t, c.Put(ctx, &Challenge{VerificationID: "x"}, time.Minute), boom)
	_, err := c.Get(ctx, "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "x"), boom)

	fr.err = nil
	fr.data["otp:challenge:bad"] = "{not json"
	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
}

func TestVerifier_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	clock := timex.NewFakeClock(time.Now())
	fr := newFakeRedis()
	rec := newRecorder()
	v := NewVerifier(NewRedisCache(fr), rec, WithClock(clock.Now))

	st, err := v.Send(ctx, testPhone)
	require.NoError(t, err)
	v.Wait()

	assert.Equal(t, DefaultTTL+DefaultRetention, fr.ttl["otp:challenge:"+st.VerificationID])

	require.ErrorIs(t, v.Verify(ctx, testPhone, wrongCode(rec.last(testPhone)), st.VerificationID), common.ErrInvalidCode)
	require.NoError(t, v.Verify(ctx, testPhone, rec.last(testPhone), st.VerificationID))
	assert.Empty(t, fr.data)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url://")
	assert.Error(t, err)
}
