package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

// Broadcaster recebe cada update lido do canal (o Hub, em produção).
type Broadcaster interface {
	Broadcast(events.LiveUpdate)
}

// StartRedisSubscriber assina o canal ao vivo e repassa cada update ao hub.
// Só retorna depois que o Redis confirmou a assinatura.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub Broadcaster, log *zap.Logger) error {
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				upd, err := Decode([]byte(msg.Payload))
				if err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
	return nil
}

// Decode lê um envelope do canal ao vivo; o payload segue como JSON cru.
func Decode(b []byte) (events.LiveUpdate, error) {
	var raw struct {
		GameID  string          `json:"gameId"`
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return events.LiveUpdate{}, err
	}
	return events.LiveUpdate{GameID: raw.GameID, Type: raw.Type, Payload: raw.Payload}, nil
}
