package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

func TestBroadcast_PublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	sub := client.Subscribe(ctx, "live")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	var receivers []int64
	b := NewRedisBroadcaster(client, "live")
	b.OnPublish = func(n int64) { receivers = append(receivers, n) }

	require.NoError(t, b.Broadcast(ctx, events.LiveUpdate{GameID: "g1", Type: events.LiveNumberCalled, Payload: map[string]int{"number": 7}}))

	select {
	case msg := <-sub.Channel():
		var got struct {
			GameID  string         `json:"gameId"`
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "g1", got.GameID)
		assert.Equal(t, events.LiveNumberCalled, got.Type)
		assert.Equal(t, 7, got.Payload["number"])
	case <-time.After(2 * time.Second):
		t.Fatal("no message on channel")
	}
	assert.Equal(t, []int64{1}, receivers)
}

func TestBroadcast_RejectsMissingGame(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	called := false
	b := NewRedisBroadcaster(client, "live")
	b.OnPublish = func(int64) { called = true }

	err := b.Broadcast(context.Background(), events.LiveUpdate{Type: events.LiveStatus})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestBroadcast_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisBroadcaster(client, "live").Broadcast(context.Background(), events.LiveUpdate{GameID: "g1", Type: events.LiveStatus})
	assert.ErrorContains(t, err, "publish on live")
}
