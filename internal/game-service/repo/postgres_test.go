package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

var gameCols = []string{
	"id", "host_id", "status", "numbers_called", "current_number", "max_tickets",
	"selected_prizes", "number_calling_delay", "ticket_set", "host_phone",
	"started_at", "ended_at", "created_at", "updated_at",
}

func TestPostgres_GetGame(t *testing.T) {
	p, mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM games WHERE id=").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(gameCols).AddRow(
			"g1", "host-1", "active", "{7,42}", 42, 60,
			"{top_line,early_five}", 3, "demo-set-1", nil,
			now, nil, now, now,
		))

	g, err := p.GetGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, g.Status)
	assert.Equal(t, []int{7, 42}, g.NumbersCalled)
	require.NotNil(t, g.CurrentNumber)
	assert.Equal(t, 42, *g.CurrentNumber)
	assert.Equal(t, 3*time.Second, g.NumberCallingDelay)
	assert.True(t, g.SelectedPrizes.Has(prize.QuickFive))
	assert.True(t, g.SelectedPrizes.Has(prize.TopLine))
	require.NotNil(t, g.StartedAt)
	assert.Nil(t, g.EndedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetGameNotFound(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM games WHERE id=").WillReturnError(sql.ErrNoRows)

	_, err := p.GetGame(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_AppendNumber(t *testing.T) {
	p, mock := newMock(t)
	now := time.Now()

	mock.ExpectExec("UPDATE games SET numbers_called = array_append").
		WithArgs("g1", 17, 4, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, p.AppendNumber(context.Background(), "g1", 17, 4, now))

	mock.ExpectExec("UPDATE games SET numbers_called = array_append").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, p.AppendNumber(context.Background(), "g1", 17, 4, now), ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateStatusCompareAndSet(t *testing.T) {
	p, mock := newMock(t)
	now := time.Now()
	g := game.Game{ID: "g1", Status: game.StatusPaused, UpdatedAt: now}

	mock.ExpectExec("UPDATE games SET status=").
		WithArgs("g1", "paused", nil, nil, now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.UpdateStatus(context.Background(), g, []game.Status{game.StatusActive})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateBooking(t *testing.T) {
	p, mock := newMock(t)
	b := game.Booking{ID: "b1", GameID: "g1", TicketID: 11, PlayerName: "Asha", BookedAt: time.Now()}

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b1"))
	require.NoError(t, p.CreateBooking(context.Background(), b))

	// ON CONFLICT DO NOTHING não retorna linha
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	assert.ErrorIs(t, p.CreateBooking(context.Background(), b), ErrTicketAlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertWinner(t *testing.T) {
	p, mock := newMock(t)
	now := time.Now()
	w := game.Winner{ID: "w1", GameID: "g1", TicketID: 11, PrizeType: prize.TopLine, ClaimedAt: &now, CreatedAt: now}

	mock.ExpectQuery("INSERT INTO winners").
		WithArgs("w1", "g1", int64(11), "top_line", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w1"))
	inserted, err := p.InsertWinner(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, inserted)

	mock.ExpectQuery("INSERT INTO winners").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	inserted, err = p.InsertWinner(context.Background(), w)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertTickets(t *testing.T) {
	p, mock := newMock(t)
	tk, err := ticket.New(1, [3][]int{{1, 12, 23, 34, 45}, {5, 16, 27, 38, 49}, {7, 52, 63, 74, 81}})
	require.NoError(t, err)
	tk.SetID = "demo-set-1"
	tk2 := tk
	tk2.TicketNumber = 2

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tickets").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO tickets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := p.InsertTickets(context.Background(), []ticket.Ticket{tk, tk2})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Snapshot(t *testing.T) {
	p, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM games WHERE id=").
		WillReturnRows(sqlmock.NewRows(gameCols).AddRow(
			"g1", "", "active", "{1,12}", 12, 100, "{top_line}", 5, "demo-set-1", nil,
			now, nil, now, now,
		))
	mock.ExpectQuery("FROM tickets WHERE ticket_set=").
		WithArgs("demo-set-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_set", "ticket_number", "row1", "row2", "row3", "numbers"}).
			AddRow(11, "demo-set-1", 1, "{1,12,23,34,45}", "{5,16,27,38,49}", "{7,52,63,74,81}",
				"{1,5,7,12,16,23,27,34,38,45,49,52,63,74,81}"))
	mock.ExpectQuery("FROM bookings WHERE game_id=").
		WillReturnRows(sqlmock.NewRows([]string{"id", "game_id", "ticket_id", "player_name", "player_phone", "booked_at"}).
			AddRow("b1", "g1", 11, "Asha", nil, now))
	mock.ExpectQuery("FROM winners WHERE game_id=").
		WillReturnRows(sqlmock.NewRows([]string{"id", "game_id", "ticket_id", "prize_type", "claimed_at", "created_at"}).
			AddRow("w1", "g1", 11, "first_line", now, now))
	mock.ExpectCommit()

	g, snap, err := p.Snapshot(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, []int{1, 12}, snap.NumbersCalled)
	require.Len(t, snap.Tickets, 1)
	assert.Equal(t, []int{1, 12, 23, 34, 45}, snap.Tickets[0].Row1)
	require.Len(t, snap.Bookings, 1)
	assert.Nil(t, snap.Bookings[0].PlayerPhone)
	require.Len(t, snap.Existing, 1)
	assert.Equal(t, prize.TopLine, snap.Existing[0].PrizeType)
	assert.Equal(t, 100, snap.MaxTickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}
