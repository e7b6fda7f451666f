package events

import "time"

// Evento emitido pelo winner-worker para cada ganhador efetivamente gravado.
type WinnerDeclared struct {
	WinnerID      string    `json:"winner_id"`
	GameID        string    `json:"game_id"`
	PrizeType     string    `json:"prize_type"`
	TicketID      int64     `json:"ticket_id"`
	TicketNumber  int       `json:"ticket_number"`
	PlayerName    string    `json:"player_name"`
	WinningNumber int       `json:"winning_number"`
	SheetTickets  []int     `json:"sheet_tickets,omitempty"`
	Ts            time.Time `json:"ts"`
}
