package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/goroutine"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis keeps entries as plain string keys under a prefix and publishes
// change events on "<prefix>:events" in the same MULTI block as the write.
type Redis struct {
	client *redis.Client
	prefix string
	origin string
	log    logrus.FieldLogger
}

func NewRedis(client *redis.Client, prefix string, log logrus.FieldLogger) *Redis {
	if prefix == "" {
		prefix = "campuscare"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		origin: newOrigin(),
		log:    logger.OrDiscard(log),
	}
}

func (r *Redis) entryKey(key string) string {
	return r.prefix + ":" + key
}

func (r *Redis) eventChannel() string {
	return r.prefix + ":events"
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	payload, err := json.Marshal(newEvent(key, events.KindSet, r.origin))
	if err != nil {
		return fmt.Errorf("kv: encode event: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.entryKey(key), value, 0)
		pipe.Publish(ctx, r.eventChannel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv: redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	payload, err := json.Marshal(newEvent(key, events.KindDelete, r.origin))
	if err != nil {
		return fmt.Errorf("kv: encode event: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.entryKey(key))
		pipe.Publish(ctx, r.eventChannel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv: redis delete %s: %w", key, err)
	}
	return nil
}

// Subscribe opens a dedicated Pub/Sub connection for this subscriber.
func (r *Redis) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	pubsub := r.client.Subscribe(ctx, r.eventChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("kv: redis subscribe: %w", err)
	}

	out := make(chan events.Event, 16)
	goroutine.NewRecoveryHandler(r.log).SafeGoWithContext(ctx, func(ctx context.Context) {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ev, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					r.log.WithError(err).Warn("kv: malformed redis event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	})

	return out, nil
}

func (r *Redis) Origin() string {
	return r.origin
}

func (r *Redis) Close() error {
	return r.client.Close()
}
