package storage

import (
	"context"
	"time"
)

type latencyStore struct {
	AssetStore
	delay time.Duration
}

// WithLatency delays every Store call by d. The wait ends early with the
// context error if ctx is cancelled, and nothing is stored then.
func WithLatency(store AssetStore, d time.Duration) AssetStore {
	if d <= 0 {
		return store
	}
	return &latencyStore{AssetStore: store, delay: d}
}

func (s *latencyStore) Store(ctx context.Context, data []byte) (string, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return s.AssetStore.Store(ctx, data)
}
