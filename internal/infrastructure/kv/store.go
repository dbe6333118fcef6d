// Package kv is the opaque key/value blob store the record store and the
// session cache persist into. Every backend reports changes to subscribers,
// including writes made by other processes sharing the same medium.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Subscribe streams change events until ctx is done. The channel may
	// also close early if the backend drops the subscriber; callers
	// resubscribe.
	Subscribe(ctx context.Context) (<-chan events.Event, error)
	// Origin identifies this handle in the events it emits.
	Origin() string
	Close() error
}

func newOrigin() string {
	return uuid.NewString()
}

func newEvent(key string, kind events.Kind, origin string) events.Event {
	return events.Event{
		Key:    key,
		Kind:   kind,
		Origin: origin,
		At:     time.Now().UTC(),
	}
}
