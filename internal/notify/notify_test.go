package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before event")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestHubDeliversToRoomOnly(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := hub.Subscribe(ctx, "AAAA")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b, err := hub.Subscribe(ctx, "BBBB")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := hub.Publish(ctx, "AAAA"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ev := receive(t, a); ev.RoomCode != "AAAA" {
		t.Fatalf("expected AAAA, got %q", ev.RoomCode)
	}
	select {
	case ev := <-b:
		t.Fatalf("unexpected event for BBBB: %#v", ev)
	default:
	}
}

func TestHubCoalescesBursts(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := hub.Subscribe(ctx, "AAAA")
	for i := 0; i < 5; i++ {
		if err := hub.Publish(ctx, "AAAA"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	receive(t, ch)
	select {
	case <-ch:
		t.Fatalf("expected burst to collapse into one event")
	default:
	}
}

func TestHubUnsubscribesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := hub.Subscribe(ctx, "AAAA")
	if n := hub.Subscribers("AAAA"); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
	if n := hub.Subscribers("AAAA"); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := hub.Subscribe(ctx, "AAAA")
	if err := hub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if err := hub.Publish(ctx, "AAAA"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := hub.Subscribe(ctx, "AAAA"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNopClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Nop{}.Subscribe(ctx, "AAAA")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected no events")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestRedisNotifierRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	n, err := NewRedisNotifier(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := n.Subscribe(ctx, "RDS1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := n.Publish(ctx, "RDS1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ev := receive(t, ch); ev.RoomCode != "RDS1" {
		t.Fatalf("expected RDS1, got %q", ev.RoomCode)
	}
}
