package dto

import (
	"time"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// GameResponse é o jogo como a API expõe: prêmios como lista e delay em segundos.
type GameResponse struct {
	game.Game
	SelectedPrizes     []string `json:"selected_prizes"`
	NumberCallingDelay int      `json:"number_calling_delay"`
}

func NewGameResponse(g game.Game) GameResponse {
	return GameResponse{
		Game:               g,
		SelectedPrizes:     g.SelectedPrizes.Strings(),
		NumberCallingDelay: int(g.NumberCallingDelay / time.Second),
	}
}

func NewGameList(games []game.Game) []GameResponse {
	out := make([]GameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, NewGameResponse(g))
	}
	return out
}
