package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindSet    Kind = "set"
	KindDelete Kind = "delete"
)

// Event tells subscribers that a key of the shared store changed.
type Event struct {
	Key    string    `json:"key" yaml:"key"`
	Kind   Kind      `json:"kind" yaml:"kind"`
	Origin string    `json:"origin" yaml:"origin"`
	At     time.Time `json:"at" yaml:"at"`
}

var ErrHubClosed = errors.New("events: hub is closed")

const subscriberBuffer = 16

type subscriber struct {
	ch chan Event
}

// Hub fans events out to in-process subscribers. A subscriber that cannot
// keep up is dropped and its channel closed; consumers resubscribe and
// re-read.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	register    chan *subscriber
	unregister  chan *subscriber
	broadcast   chan Event
	done        chan struct{}
	log         logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan Event, 64),
		done:        make(chan struct{}),
		log:         logger.OrDiscard(log),
	}
}

// Run is the hub loop. It returns when ctx is cancelled, closing every
// subscriber channel.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-h.register:
			h.addSubscriber(sub)
		case sub := <-h.unregister:
			h.removeSubscriber(sub)
		case ev := <-h.broadcast:
			h.send(ev)
		}
	}
}

// Publish queues ev for delivery. It is a no-op after the hub stopped.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// Subscribe returns a channel of events that is closed when ctx is done or
// the hub stops.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	select {
	case h.register <- sub:
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		select {
		case <-ctx.Done():
			select {
			case h.unregister <- sub:
			case <-h.done:
			}
		case <-h.done:
		}
	}()

	return sub.ch, nil
}

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) addSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *Hub) removeSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}

func (h *Hub) send(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- ev:
		default:
			h.log.WithField("key", ev.Key).Warn("events: dropping slow subscriber")
			delete(h.subscribers, sub)
			close(sub.ch)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
	close(h.done)
}
