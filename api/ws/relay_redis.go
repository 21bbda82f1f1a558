package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisRelay shares events between server instances over a Redis pub/sub channel
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay connects to addr and verifies the connection
func NewRedisRelay(ctx context.Context, addr, channel string) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisRelay{client: client, channel: channel}, nil
}

// Publish implements Relay
func (r *RedisRelay) Publish(ctx context.Context, msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Forward delivers every relayed event to hub until ctx is done
func (r *RedisRelay) Forward(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log.WithField("channel", r.channel).Info("relaying events through redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				log.WithError(err).Warn("dropping malformed relayed event")
				continue
			}
			hub.Deliver(env)
		}
	}
}

// Close releases the Redis connection
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
