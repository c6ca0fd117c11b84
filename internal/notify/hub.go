package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrClosed = errors.New("notifier closed")

// Hub fans events out to subscribers in this process. Each subscriber
// buffers one pending event; bursts collapse into a single wake-up.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[chan Event]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[chan Event]struct{}),
	}
}

func (h *Hub) Publish(_ context.Context, code string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	ev := Event{RoomCode: code, At: time.Now().UTC()}
	for ch := range h.rooms[code] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, code string) (<-chan Event, error) {
	ch := make(chan Event, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[chan Event]struct{})
	}
	h.rooms[code][ch] = struct{}{}
	log.Printf("notify: subscriber added to room %s (total: %d)", code, len(h.rooms[code]))
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(code, ch)
	}()

	return ch, nil
}

func (h *Hub) remove(code string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[code]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.rooms, code)
	}
}

// Subscribers reports how many channels are listening on code.
func (h *Hub) Subscribers(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for code, subs := range h.rooms {
		for ch := range subs {
			close(ch)
		}
		delete(h.rooms, code)
	}
	h.closed = true
	return nil
}
