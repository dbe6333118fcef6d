package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/goroutine"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const DefaultNotifyChannel = "campuscare_kv"

// Postgres stores entries in PostgreSQL and announces every write with
// NOTIFY inside the same transaction, so listeners only see committed
// changes.
type Postgres struct {
	sqlKV
	dsn     string
	channel string
	hub     *events.Hub
	log     logrus.FieldLogger
	cancel  context.CancelFunc
	runCtx  context.Context

	listenOnce sync.Once
	listenErr  error
	listener   *pq.Listener
}

func NewPostgres(conn *sqlx.DB, dsn string, log logrus.FieldLogger) *Postgres {
	p := &Postgres{
		sqlKV:   sqlKV{db: conn, origin: newOrigin()},
		dsn:     dsn,
		channel: DefaultNotifyChannel,
		hub:     events.NewHub(log),
		log:     logger.OrDiscard(log),
	}
	p.afterWrite = p.notify

	p.runCtx, p.cancel = context.WithCancel(context.Background())
	goroutine.NewRecoveryHandler(p.log).SafeGoWithContext(p.runCtx, p.hub.Run)
	return p
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	return p.get(ctx, key)
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	return p.set(ctx, key, value, time.Now().UnixNano())
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.delete(ctx, key)
	return err
}

// Subscribe starts the shared LISTEN connection on first use.
func (p *Postgres) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	p.listenOnce.Do(func() {
		p.listenErr = p.startListener()
	})
	if p.listenErr != nil {
		return nil, p.listenErr
	}
	return p.hub.Subscribe(ctx)
}

func (p *Postgres) Origin() string {
	return p.origin
}

func (p *Postgres) Close() error {
	p.cancel()
	<-p.hub.Done()
	if p.listener != nil {
		return p.listener.Close()
	}
	return nil
}

func (p *Postgres) notify(ctx context.Context, tx *sqlx.Tx, key string, deleted bool) error {
	kind := events.KindSet
	if deleted {
		kind = events.KindDelete
	}
	payload, err := json.Marshal(newEvent(key, kind, p.origin))
	if err != nil {
		return fmt.Errorf("kv: encode event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		return fmt.Errorf("kv: notify %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) startListener() error {
	p.listener = pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.log.WithError(err).WithField("listener_event", ev).Warn("kv: postgres listener problem")
		}
	})
	if err := p.listener.Listen(p.channel); err != nil {
		return fmt.Errorf("kv: listen %s: %w", p.channel, err)
	}

	goroutine.NewRecoveryHandler(p.log).SafeGoWithContext(p.runCtx, p.forward)
	return nil
}

func (p *Postgres) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; anything may have changed meanwhile.
			if n == nil {
				p.hub.Publish(newEvent("", events.KindSet, ""))
				continue
			}
			ev, err := decodeEvent([]byte(n.Extra))
			if err != nil {
				p.log.WithError(err).Warn("kv: malformed notification")
				continue
			}
			p.hub.Publish(ev)
		}
	}
}

func decodeEvent(payload []byte) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return events.Event{}, fmt.Errorf("kv: decode event: %w", err)
	}
	if ev.Key == "" && ev.Kind == "" {
		return events.Event{}, fmt.Errorf("kv: empty event")
	}
	return ev, nil
}
