package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

func seedMemory(t *testing.T) (*Memory, game.Game) {
	t.Helper()
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	g := game.Game{
		ID: "g1", Status: game.StatusWaiting, MaxTickets: 10, TicketSet: "s1",
		SelectedPrizes: prize.NewSet(prize.TopLine), CreatedAt: now,
	}
	require.NoError(t, m.CreateGame(ctx, g))

	gen := ticket.NewGenerator()
	set, err := gen.GenerateSet(12, 3)
	require.NoError(t, err)
	for i := range set {
		set[i].SetID = "s1"
	}
	n, err := m.InsertTickets(ctx, set)
	require.NoError(t, err)
	require.Equal(t, 12, n)
	return m, g
}

func TestMemory_BookingIsExclusive(t *testing.T) {
	m, g := seedMemory(t)
	ctx := context.Background()
	tk, err := m.GetTicket(ctx, "s1", 3)
	require.NoError(t, err)

	b := game.Booking{ID: "b1", GameID: g.ID, TicketID: tk.ID, PlayerName: "Asha"}
	require.NoError(t, m.CreateBooking(ctx, b))
	b.ID = "b2"
	assert.ErrorIs(t, m.CreateBooking(ctx, b), ErrTicketAlreadyBooked)

	// outro jogo pode reservar o mesmo bilhete
	b.GameID = "g2"
	assert.NoError(t, m.CreateBooking(ctx, b))
}

func TestMemory_AppendNumberCAS(t *testing.T) {
	m, g := seedMemory(t)
	ctx := context.Background()
	now := time.Now()

	assert.ErrorIs(t, m.AppendNumber(ctx, g.ID, 5, 0, now), ErrConcurrentUpdate, "not active yet")

	active, err := g.Transition(game.StatusActive, now)
	require.NoError(t, err)
	require.NoError(t, m.UpdateStatus(ctx, active, []game.Status{game.StatusWaiting}))

	require.NoError(t, m.AppendNumber(ctx, g.ID, 5, 0, now))
	assert.ErrorIs(t, m.AppendNumber(ctx, g.ID, 6, 0, now), ErrConcurrentUpdate)
	assert.ErrorIs(t, m.AppendNumber(ctx, g.ID, 5, 1, now), ErrConcurrentUpdate)

	got, err := m.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, got.NumbersCalled)
	assert.Equal(t, 5, *got.CurrentNumber)
}

func TestMemory_WinnerUniqueness(t *testing.T) {
	m, g := seedMemory(t)
	ctx := context.Background()

	ok, err := m.InsertWinner(ctx, game.Winner{ID: "w1", GameID: g.ID, TicketID: 1, PrizeType: prize.TopLine})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.InsertWinner(ctx, game.Winner{ID: "w2", GameID: g.ID, TicketID: 1, PrizeType: prize.TopLine})
	assert.False(t, ok)
	ok, _ = m.InsertWinner(ctx, game.Winner{ID: "w3", GameID: g.ID, TicketID: 2, PrizeType: prize.TopLine})
	assert.True(t, ok)

	ok, _ = m.InsertWinner(ctx, game.Winner{ID: "w4", GameID: g.ID, TicketID: 1, PrizeType: prize.HalfSheet})
	assert.True(t, ok)
	ok, _ = m.InsertWinner(ctx, game.Winner{ID: "w5", GameID: g.ID, TicketID: 4, PrizeType: prize.HalfSheet})
	assert.False(t, ok, "sheet prizes have a single winner per game")

	ws, err := m.ListWinners(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, ws, 3)
}

func TestMemory_SnapshotRespectsMaxTickets(t *testing.T) {
	m, g := seedMemory(t)
	_, snap, err := m.Snapshot(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Tickets, 10)
	assert.Equal(t, 10, snap.MaxTickets)

	_, _, err = m.Snapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateSettingsRejectedAfterEnd(t *testing.T) {
	m, g := seedMemory(t)
	ctx := context.Background()
	ended, err := g.Transition(game.StatusEnded, time.Now())
	require.NoError(t, err)
	require.NoError(t, m.UpdateStatus(ctx, ended, game.Sources(game.StatusEnded)))

	g.MaxTickets = 50
	assert.ErrorIs(t, m.UpdateSettings(ctx, g), ErrConcurrentUpdate)
}
