package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/tambola-live-platform/internal/game-service/coordinator"
)

// BoardCache guarda o quadro de números de cada jogo no Redis com TTL.
type BoardCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewBoardCache(c *redis.Client, ttl time.Duration) *BoardCache {
	return &BoardCache{Client: c, TTL: ttl}
}

func key(gameID string) string { return "tambola:board:" + gameID }

func (c *BoardCache) SetBoard(ctx context.Context, b coordinator.Board) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(b.GameID), raw, c.TTL).Err()
}

func (c *BoardCache) GetBoard(ctx context.Context, gameID string) (coordinator.Board, bool, error) {
	raw, err := c.Client.Get(ctx, key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return coordinator.Board{}, false, nil
	}
	if err != nil {
		return coordinator.Board{}, false, err
	}
	var b coordinator.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return coordinator.Board{}, false, err
	}
	return b, true, nil
}
