package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/common"

	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/kv"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

// AttemptKeyPrefix prefixes the per-identity login failure counters.
const AttemptKeyPrefix = "login_attempts:"

type attemptWindow struct {
	Count     int64     `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttemptStore is a limiter.Store that keeps its counters in the kv store,
// so failures counted by one process still throttle the next one.
// Increments are serialized within a process only.
type AttemptStore struct {
	kv  kv.Store
	now func() time.Time

	mu sync.Mutex
}

var _ limiter.Store = (*AttemptStore)(nil)

type AttemptStoreOption func(*AttemptStore)

func WithAttemptClock(now func() time.Time) AttemptStoreOption {
	return func(s *AttemptStore) { s.now = now }
}

func NewAttemptStore(store kv.Store, opts ...AttemptStoreOption) *AttemptStore {
	s := &AttemptStore{kv: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AttemptStore) Get(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	return s.Increment(ctx, key, 1, rate)
}

func (s *AttemptStore) Increment(ctx context.Context, key string, count int64, rate limiter.Rate) (limiter.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, err := s.load(ctx, key, now)
	if err != nil {
		return limiter.Context{}, err
	}
	if w.Count == 0 {
		w.ExpiresAt = now.Add(rate.Period)
	}
	w.Count += count

	payload, err := json.Marshal(w)
	if err != nil {
		return limiter.Context{}, apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to encode login attempts")
	}
	if err := s.kv.Set(ctx, AttemptKeyPrefix+key, payload); err != nil {
		return limiter.Context{}, apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to write login attempts")
	}
	return common.GetContextFromState(now, rate, w.ExpiresAt, w.Count), nil
}

func (s *AttemptStore) Peek(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	now := s.now()
	w, err := s.load(ctx, key, now)
	if err != nil {
		return limiter.Context{}, err
	}
	if w.Count == 0 {
		w.ExpiresAt = now
	}
	return common.GetContextFromState(now, rate, w.ExpiresAt, w.Count), nil
}

func (s *AttemptStore) Reset(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, AttemptKeyPrefix+key); err != nil {
		return limiter.Context{}, apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to clear login attempts")
	}
	now := s.now()
	return common.GetContextFromState(now, rate, now, 0), nil
}

// load returns the live window for key. A missing, expired or unreadable
// counter starts from zero.
func (s *AttemptStore) load(ctx context.Context, key string, now time.Time) (attemptWindow, error) {
	raw, err := s.kv.Get(ctx, AttemptKeyPrefix+key)
	if errors.Is(err, kv.ErrNotFound) {
		return attemptWindow{}, nil
	}
	if err != nil {
		return attemptWindow{}, apperror.Wrap(err, apperror.ErrCodeReadFailed, "failed to read login attempts")
	}

	var w attemptWindow
	if err := json.Unmarshal(raw, &w); err != nil || !now.Before(w.ExpiresAt) {
		return attemptWindow{}, nil
	}
	return w, nil
}
