package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "stocking:room:"

// RedisNotifier carries events between server processes over pub/sub.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(redisURL string) (*RedisNotifier, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{client: client}, nil
}

func channelFor(code string) string {
	return channelPrefix + code
}

func (n *RedisNotifier) Publish(ctx context.Context, code string) error {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	return n.client.Publish(ctx, channelFor(code), stamp).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, code string) (<-chan Event, error) {
	ps := n.client.Subscribe(ctx, channelFor(code))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", code, err)
	}

	out := make(chan Event, 1)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				at, err := time.Parse(time.RFC3339Nano, msg.Payload)
				if err != nil {
					log.Printf("notify: bad payload on %s: %v", msg.Channel, err)
					at = time.Now().UTC()
				}
				select {
				case out <- Event{RoomCode: code, At: at}:
				default:
				}
			}
		}
	}()

	return out, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
