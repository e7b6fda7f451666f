package events

// Evento publicado no tópico "number_called" a cada chamada do host.
type NumberCalled struct {
	GameID    string `json:"game_id"`
	Number    int    `json:"number"`
	Position  int    `json:"position"` // índice em numbers_called (0-based)
	Remaining int    `json:"remaining"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
