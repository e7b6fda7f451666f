package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
)

type winnerKey struct {
	gameID   string
	prize    prize.Type
	ticketID int64
}

// Memory guarda tudo em mapas protegidos por mutex. Aplica as mesmas
// restrições do schema: uma reserva por bilhete por jogo, ganhador único por
// (jogo, prêmio, bilhete) e por (jogo, prêmio) nas cartelas.
type Memory struct {
	mu sync.RWMutex

	games    map[string]game.Game
	tickets  map[string]map[int]ticket.Ticket // set -> número -> bilhete
	ticketID int64
	bookings map[string][]game.Booking // game -> reservas em ordem
	winners  map[string][]game.Winner
	winKeys  map[winnerKey]bool
}

func NewMemory() *Memory {
	return &Memory{
		games:    make(map[string]game.Game),
		tickets:  make(map[string]map[int]ticket.Ticket),
		bookings: make(map[string][]game.Booking),
		winners:  make(map[string][]game.Winner),
		winKeys:  make(map[winnerKey]bool),
	}
}

func (m *Memory) CreateGame(_ context.Context, g game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.NumbersCalled = []int{}
	g.CurrentNumber = nil
	g.UpdatedAt = g.CreatedAt
	m.games[g.ID] = cloneGame(g)
	return nil
}

func (m *Memory) GetGame(_ context.Context, id string) (game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	return cloneGame(g), nil
}

func (m *Memory) ListGames(_ context.Context, statuses ...game.Status) ([]game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []game.Game
	for _, g := range m.games {
		if len(statuses) > 0 && !hasStatus(statuses, g.Status) {
			continue
		}
		out = append(out, cloneGame(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateSettings(_ context.Context, g game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok || cur.Status == game.StatusEnded {
		return ErrConcurrentUpdate
	}
	cur.NumberCallingDelay = g.NumberCallingDelay
	cur.TicketSet = g.TicketSet
	cur.SelectedPrizes = g.SelectedPrizes
	cur.MaxTickets = g.MaxTickets
	cur.UpdatedAt = g.UpdatedAt
	m.games[g.ID] = cloneGame(cur)
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, g game.Game, from []game.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok || !hasStatus(from, cur.Status) {
		return ErrConcurrentUpdate
	}
	cur.Status = g.Status
	cur.StartedAt = g.StartedAt
	cur.EndedAt = g.EndedAt
	cur.UpdatedAt = g.UpdatedAt
	m.games[g.ID] = cur
	return nil
}

func (m *Memory) AppendNumber(_ context.Context, gameID string, n int, expectedLen int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[gameID]
	if !ok || cur.Status != game.StatusActive || len(cur.NumbersCalled) != expectedLen {
		return ErrConcurrentUpdate
	}
	next, err := cur.AppendNumber(n)
	if err != nil {
		return ErrConcurrentUpdate
	}
	next.UpdatedAt = now
	m.games[gameID] = next
	return nil
}

func (m *Memory) InsertTickets(_ context.Context, tickets []ticket.Ticket) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, t := range tickets {
		set := m.tickets[t.SetID]
		if set == nil {
			set = make(map[int]ticket.Ticket)
			m.tickets[t.SetID] = set
		}
		if _, exists := set[t.TicketNumber]; exists {
			continue
		}
		m.ticketID++
		t.ID = m.ticketID
		set[t.TicketNumber] = t
		inserted++
	}
	return inserted, nil
}

func (m *Memory) ListTickets(_ context.Context, setID string, maxTickets int) ([]ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTickets(setID, maxTickets), nil
}

func (m *Memory) GetTicket(_ context.Context, setID string, number int) (ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[setID][number]
	if !ok {
		return ticket.Ticket{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) CreateBooking(_ context.Context, b game.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings[b.GameID] {
		if existing.TicketID == b.TicketID {
			return ErrTicketAlreadyBooked
		}
	}
	m.bookings[b.GameID] = append(m.bookings[b.GameID], b)
	return nil
}

func (m *Memory) ListBookings(_ context.Context, gameID string) ([]game.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]game.Booking(nil), m.bookings[gameID]...), nil
}

func (m *Memory) UpdatePlayer(_ context.Context, gameID, bookingID, name string, phone *string) (game.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.bookings[gameID]
	for i := range list {
		if list[i].ID == bookingID {
			list[i].PlayerName = name
			list[i].PlayerPhone = phone
			return list[i], nil
		}
	}
	return game.Booking{}, ErrNotFound
}

func (m *Memory) InsertWinner(_ context.Context, w game.Winner) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := winnerKey{gameID: w.GameID, prize: w.PrizeType, ticketID: w.TicketID}
	if w.PrizeType.SingleWinner() {
		key.ticketID = 0
	}
	if m.winKeys[key] {
		return false, nil
	}
	m.winKeys[key] = true
	m.winners[w.GameID] = append(m.winners[w.GameID], w)
	return true, nil
}

func (m *Memory) ListWinners(_ context.Context, gameID string) ([]game.Winner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]game.Winner(nil), m.winners[gameID]...), nil
}

func (m *Memory) Snapshot(_ context.Context, gameID string) (game.Game, winner.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok {
		return game.Game{}, winner.Snapshot{}, ErrNotFound
	}
	g = cloneGame(g)
	tickets := m.listTickets(g.TicketSet, g.MaxTickets)
	bookings := append([]game.Booking(nil), m.bookings[gameID]...)
	winners := append([]game.Winner(nil), m.winners[gameID]...)
	return g, snapshotOf(g, tickets, bookings, winners), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) listTickets(setID string, maxTickets int) []ticket.Ticket {
	var out []ticket.Ticket
	for n, t := range m.tickets[setID] {
		if n <= maxTickets {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out
}

func snapshotOf(g game.Game, tickets []ticket.Ticket, bookings []game.Booking, winners []game.Winner) winner.Snapshot {
	return winner.Snapshot{
		GameID:         g.ID,
		Tickets:        tickets,
		Bookings:       bookings,
		NumbersCalled:  g.NumbersCalled,
		Existing:       winners,
		MaxTickets:     g.MaxTickets,
		SelectedPrizes: g.SelectedPrizes,
	}
}

func cloneGame(g game.Game) game.Game {
	g.NumbersCalled = append([]int{}, g.NumbersCalled...)
	if g.SelectedPrizes != nil {
		ps := make(prize.Set, len(g.SelectedPrizes))
		for p := range g.SelectedPrizes {
			ps[p] = struct{}{}
		}
		g.SelectedPrizes = ps
	}
	return g
}

func hasStatus(list []game.Status, s game.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
