package events

import "time"

type GameStatusChanged struct {
	GameID string    `json:"game_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Ts     time.Time `json:"ts"`
}
