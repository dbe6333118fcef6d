package complaint

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/goroutine"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
)

// Subscriber is the change feed of the shared store.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan events.Event, error)
}

const resubscribeDelay = 200 * time.Millisecond

// Watch calls refresh every time key changes until ctx is done. Events with
// an empty key mean the backend may have missed changes and also trigger a
// refresh. If the feed drops this watcher it resubscribes after
// resubscribeDelay and refreshes once, since events may have been lost in
// between. A panicking refresh is logged and does not stop the watch.
func Watch(ctx context.Context, sub Subscriber, key string, refresh func(events.Event), log logrus.FieldLogger) error {
	log = logger.OrDiscard(log)
	rh := goroutine.NewRecoveryHandler(log)

	feed, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				log.WithField("key", key).Warn("change feed closed, resubscribing")
				feed, err = resubscribe(ctx, sub)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				rh.Call(func() { refresh(events.Event{Key: key, Kind: events.KindSet, At: time.Now().UTC()}) })
				continue
			}
			if ev.Key != key && ev.Key != "" {
				continue
			}
			rh.Call(func() { refresh(ev) })
		}
	}
}

// resubscribe waits resubscribeDelay before every attempt.
func resubscribe(ctx context.Context, sub Subscriber) (<-chan events.Event, error) {
	timer := time.NewTimer(resubscribeDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		feed, err := sub.Subscribe(ctx)
		if err == nil {
			return feed, nil
		}
		if errors.Is(err, events.ErrHubClosed) {
			return nil, err
		}
		timer.Reset(resubscribeDelay)
	}
}
