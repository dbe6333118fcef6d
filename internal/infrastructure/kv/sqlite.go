package kv

import (
	"context"
	"sync"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/goroutine"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const DefaultPollInterval = 500 * time.Millisecond

// SQLite stores entries in a local database file. Changes made by other
// processes on the same file are discovered by polling the row stamps.
type SQLite struct {
	sqlKV
	hub    *events.Hub
	log    logrus.FieldLogger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	seen map[string]int64
}

type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	pollInterval time.Duration
}

// WithPollInterval sets how often foreign writes are looked for; zero
// disables polling.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) { o.pollInterval = d }
}

// NewSQLite wraps an open, migrated database.
func NewSQLite(ctx context.Context, conn *sqlx.DB, log logrus.FieldLogger, opts ...SQLiteOption) (*SQLite, error) {
	options := sqliteOptions{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&options)
	}

	s := &SQLite{
		sqlKV: sqlKV{db: conn, origin: newOrigin()},
		hub:   events.NewHub(log),
		log:   logger.OrDiscard(log),
		seen:  make(map[string]int64),
	}

	rows, err := s.stamps(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.seen[row.Name] = row.UpdatedAt
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	recovery := goroutine.NewRecoveryHandler(s.log)
	recovery.SafeGoWithContext(runCtx, s.hub.Run)
	if options.pollInterval > 0 {
		s.wg.Add(1)
		recovery.SafeGoWithContext(runCtx, func(ctx context.Context) {
			defer s.wg.Done()
			s.poll(ctx, options.pollInterval)
		})
	}

	return s, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, key)
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	stamp := time.Now().UnixNano()
	if err := s.set(ctx, key, value, stamp); err != nil {
		return err
	}
	s.mu.Lock()
	s.seen[key] = stamp
	s.mu.Unlock()

	s.hub.Publish(newEvent(key, events.KindSet, s.origin))
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	deleted, err := s.delete(ctx, key)
	if err != nil || !deleted {
		return err
	}
	s.mu.Lock()
	delete(s.seen, key)
	s.mu.Unlock()

	s.hub.Publish(newEvent(key, events.KindDelete, s.origin))
	return nil
}

func (s *SQLite) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	return s.hub.Subscribe(ctx)
}

func (s *SQLite) Origin() string {
	return s.origin
}

// Close stops polling and the change feed. The database handle belongs to
// the caller.
func (s *SQLite) Close() error {
	s.cancel()
	s.wg.Wait()
	<-s.hub.Done()
	return nil
}

func (s *SQLite) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.detectChanges(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("kv: sqlite poll failed")
			}
		}
	}
}

// detectChanges compares the stored stamps with the last ones seen and
// publishes an event for every key written or removed by someone else.
func (s *SQLite) detectChanges(ctx context.Context) error {
	rows, err := s.stamps(ctx)
	if err != nil {
		return err
	}

	var changed []events.Event
	s.mu.Lock()
	current := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		current[row.Name] = struct{}{}
		if s.seen[row.Name] != row.UpdatedAt {
			s.seen[row.Name] = row.UpdatedAt
			changed = append(changed, newEvent(row.Name, events.KindSet, ""))
		}
	}
	for name := range s.seen {
		if _, ok := current[name]; !ok {
			delete(s.seen, name)
			changed = append(changed, newEvent(name, events.KindDelete, ""))
		}
	}
	s.mu.Unlock()

	for _, ev := range changed {
		s.hub.Publish(ev)
	}
	return nil
}
