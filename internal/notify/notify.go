// Package notify delivers "room changed" events. Events carry no state;
// subscribers re-read the room after each one.
package notify

import (
	"context"
	"time"
)

type Event struct {
	RoomCode string    `json:"room_code"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, code string) error
	// Subscribe returns a channel that is closed once ctx is done.
	Subscribe(ctx context.Context, code string) (<-chan Event, error)
	Close() error
}

// Nop never delivers anything. Clients fall back to pulling on demand.
type Nop struct{}

func (Nop) Publish(context.Context, string) error { return nil }

func (Nop) Subscribe(ctx context.Context, _ string) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (Nop) Close() error { return nil }
