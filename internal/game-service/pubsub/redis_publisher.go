// Package pubsub entrega os envelopes ao vivo do jogo no canal Redis que o
// live-service assina.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

type RedisBroadcaster struct {
	client  *redis.Client
	channel string

	// OnPublish recebe quantos assinantes receberam o envelope (métricas).
	OnPublish func(receivers int64)
}

func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, u events.LiveUpdate) error {
	if u.GameID == "" {
		return fmt.Errorf("live update %q without game id", u.Type)
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode live update %s: %w", u.Type, err)
	}
	n, err := b.client.Publish(ctx, b.channel, raw).Result()
	if err != nil {
		return fmt.Errorf("publish on %s: %w", b.channel, err)
	}
	if b.OnPublish != nil {
		b.OnPublish(n)
	}
	return nil
}
