package coordinator

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
)

type BookingRequest struct {
	PlayerName    string
	PlayerPhone   *string
	TicketNumbers []int
}

// BookingResult separa o que foi reservado dos bilhetes que outro jogador já tinha.
type BookingResult struct {
	Booked    []game.Booking `json:"booked"`
	Conflicts []int          `json:"conflicts"`
}

// Book reserva um ou mais bilhetes para um jogador. Cada bilhete é uma
// disputa independente no banco: perder um não desfaz os outros.
func (c *Coordinator) Book(ctx context.Context, gameID string, req BookingRequest) (BookingResult, error) {
	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		return BookingResult{}, validation("player_name is required")
	}
	phone := normalizePhone(req.PlayerPhone)
	if len(req.TicketNumbers) == 0 {
		return BookingResult{}, validation("at least one ticket is required")
	}

	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return BookingResult{}, err
	}
	if g.Status == game.StatusEnded {
		return BookingResult{}, game.ErrGameEnded
	}

	seen := make(map[int]bool, len(req.TicketNumbers))
	numbers := make([]int, 0, len(req.TicketNumbers))
	for _, n := range req.TicketNumbers {
		if n < 1 || n > g.MaxTickets {
			return BookingResult{}, validation("ticket %d outside 1..%d", n, g.MaxTickets)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	// todos os bilhetes são resolvidos antes da primeira escrita
	tickets := make([]ticket.Ticket, 0, len(numbers))
	for _, n := range numbers {
		t, err := c.store.GetTicket(ctx, g.TicketSet, n)
		if errors.Is(err, repo.ErrNotFound) {
			return BookingResult{}, validation("ticket %d is not in set %s", n, g.TicketSet)
		}
		if err != nil {
			return BookingResult{}, err
		}
		tickets = append(tickets, t)
	}

	res := BookingResult{Booked: []game.Booking{}, Conflicts: []int{}}
	for _, t := range tickets {
		b := game.Booking{
			ID:          c.NewID(),
			GameID:      gameID,
			TicketID:    t.ID,
			PlayerName:  name,
			PlayerPhone: phone,
			BookedAt:    c.Now(),
		}
		err := c.store.CreateBooking(ctx, b)
		if errors.Is(err, repo.ErrTicketAlreadyBooked) {
			res.Conflicts = append(res.Conflicts, t.TicketNumber)
			continue
		}
		if err != nil {
			c.fail("db_booking")
			return res, err
		}
		res.Booked = append(res.Booked, b)
	}

	c.log.Info("tickets booked",
		zap.String("game_id", gameID),
		zap.Int("booked", len(res.Booked)),
		zap.Ints("conflicts", res.Conflicts),
	)
	return res, nil
}

// CorrectPlayer corrige nome/telefone da reserva.
func (c *Coordinator) CorrectPlayer(ctx context.Context, gameID, bookingID, name string, phone *string) (game.Booking, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return game.Booking{}, validation("player_name is required")
	}
	return c.store.UpdatePlayer(ctx, gameID, bookingID, name, normalizePhone(phone))
}

// TicketStatus é uma célula da grade de reserva.
type TicketStatus struct {
	TicketNumber int    `json:"ticket_number"`
	TicketID     int64  `json:"ticket_id"`
	Booked       bool   `json:"booked"`
	PlayerName   string `json:"player_name,omitempty"`
}

// TicketBoard lista os bilhetes 1..max_tickets do jogo com o dono de cada um.
func (c *Coordinator) TicketBoard(ctx context.Context, gameID string) ([]TicketStatus, error) {
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	tickets, err := c.store.ListTickets(ctx, g.TicketSet, g.MaxTickets)
	if err != nil {
		return nil, err
	}
	bookings, err := c.store.ListBookings(ctx, gameID)
	if err != nil {
		return nil, err
	}
	owner := make(map[int64]string, len(bookings))
	for _, b := range bookings {
		if _, ok := owner[b.TicketID]; !ok {
			owner[b.TicketID] = b.PlayerName
		}
	}

	out := make([]TicketStatus, 0, len(tickets))
	for _, t := range tickets {
		name, booked := owner[t.ID]
		out = append(out, TicketStatus{TicketNumber: t.TicketNumber, TicketID: t.ID, Booked: booked, PlayerName: name})
	}
	return out, nil
}

// Ticket devolve um bilhete do conjunto do jogo.
func (c *Coordinator) Ticket(ctx context.Context, gameID string, number int) (ticket.Ticket, error) {
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if number < 1 || number > g.MaxTickets {
		return ticket.Ticket{}, repo.ErrNotFound
	}
	return c.store.GetTicket(ctx, g.TicketSet, number)
}

// PlayerTicket é um bilhete reservado com o andamento de cada prêmio.
type PlayerTicket struct {
	Ticket   ticket.Ticket   `json:"ticket"`
	Grid     [3][9]int       `json:"grid"`
	Booking  game.Booking    `json:"booking"`
	Progress winner.Progress `json:"progress"`
}

// PlayerTickets devolve os bilhetes de um jogador (nome sem diferenciar
// maiúsculas) com o andamento calculado sobre os números já chamados.
func (c *Coordinator) PlayerTickets(ctx context.Context, gameID, playerName string) ([]PlayerTicket, error) {
	g, snap, err := c.store.Snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]ticket.Ticket, len(snap.Tickets))
	for _, t := range snap.Tickets {
		byID[t.ID] = t
	}

	want := strings.TrimSpace(playerName)
	out := []PlayerTicket{}
	for _, b := range snap.Bookings {
		if !strings.EqualFold(strings.TrimSpace(b.PlayerName), want) {
			continue
		}
		t, ok := byID[b.TicketID]
		if !ok {
			continue
		}
		out = append(out, PlayerTicket{
			Ticket:   t,
			Grid:     t.Grid(),
			Booking:  b,
			Progress: winner.TicketProgress(t, g.NumbersCalled, g.SelectedPrizes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket.TicketNumber < out[j].Ticket.TicketNumber })
	return out, nil
}

func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
