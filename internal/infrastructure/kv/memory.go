package kv

import (
	"context"
	"slices"
	"sync"

	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/goroutine"
	"github.com/sirupsen/logrus"
)

type memoryBacking struct {
	mu     sync.RWMutex
	data   map[string][]byte
	hub    *events.Hub
	cancel context.CancelFunc
}

// Memory is an in-process store. Handles returned by View share the data
// and the change feed but carry their own origin, which models several
// contexts attached to one backing store.
type Memory struct {
	backing *memoryBacking
	origin  string
	owner   bool
}

func NewMemory(log logrus.FieldLogger) *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	backing := &memoryBacking{
		data:   make(map[string][]byte),
		hub:    events.NewHub(log),
		cancel: cancel,
	}
	goroutine.NewRecoveryHandler(log).SafeGoWithContext(ctx, backing.hub.Run)

	return &Memory{backing: backing, origin: newOrigin(), owner: true}
}

// View returns another handle on the same backing store.
func (m *Memory) View() *Memory {
	return &Memory{backing: m.backing, origin: newOrigin()}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.backing.mu.RLock()
	defer m.backing.mu.RUnlock()

	value, ok := m.backing.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.backing.mu.Lock()
	m.backing.data[key] = slices.Clone(value)
	m.backing.mu.Unlock()

	m.backing.hub.Publish(newEvent(key, events.KindSet, m.origin))
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.backing.mu.Lock()
	_, existed := m.backing.data[key]
	delete(m.backing.data, key)
	m.backing.mu.Unlock()

	if existed {
		m.backing.hub.Publish(newEvent(key, events.KindDelete, m.origin))
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	return m.backing.hub.Subscribe(ctx)
}

func (m *Memory) Origin() string {
	return m.origin
}

// Close stops the change feed. Only the handle created by NewMemory owns it.
func (m *Memory) Close() error {
	if m.owner {
		m.backing.cancel()
		<-m.backing.hub.Done()
	}
	return nil
}
