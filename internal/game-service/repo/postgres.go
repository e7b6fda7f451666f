package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
)

// Postgres implementa a persistência do jogo em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

const gameColumns = `id, host_id, status, numbers_called, current_number, max_tickets,
	selected_prizes, number_calling_delay, ticket_set, host_phone,
	started_at, ended_at, created_at, updated_at`

// CreateGame insere um jogo novo (status waiting, sem números chamados)
func (p *Postgres) CreateGame(ctx context.Context, g game.Game) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO games (id, host_id, status, numbers_called, max_tickets, selected_prizes,
			number_calling_delay, ticket_set, host_phone, created_at, updated_at)
		VALUES ($1,$2,$3,'{}',$4,$5,$6,$7,$8,$9,$9)`,
		g.ID, g.HostID, string(g.Status), g.MaxTickets, pq.Array(g.SelectedPrizes.Strings()),
		delaySeconds(g.NumberCallingDelay), g.TicketSet, nullString(g.HostPhone), g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// GetGame retorna o jogo ou ErrNotFound
func (p *Postgres) GetGame(ctx context.Context, id string) (game.Game, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id=$1`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Game{}, ErrNotFound
	}
	return g, err
}

// ListGames lista jogos filtrando por status (sem filtro retorna todos)
func (p *Postgres) ListGames(ctx context.Context, statuses ...game.Status) ([]game.Game, error) {
	q := `SELECT ` + gameColumns + ` FROM games`
	var args []any
	if len(statuses) > 0 {
		q += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []game.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateSettings grava delay, conjunto, prêmios e limite de bilhetes.
// Jogos encerrados não mudam mais.
func (p *Postgres) UpdateSettings(ctx context.Context, g game.Game) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE games
		SET number_calling_delay=$2, ticket_set=$3, selected_prizes=$4, max_tickets=$5, updated_at=$6
		WHERE id=$1 AND status <> 'ended'`,
		g.ID, delaySeconds(g.NumberCallingDelay), g.TicketSet, pq.Array(g.SelectedPrizes.Strings()),
		g.MaxTickets, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return expectOne(res)
}

// UpdateStatus troca o status só se o status atual estiver em from (compare-and-set)
func (p *Postgres) UpdateStatus(ctx context.Context, g game.Game, from []game.Status) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE games
		SET status=$2, started_at=$3, ended_at=$4, updated_at=$5
		WHERE id=$1 AND status = ANY($6)`,
		g.ID, string(g.Status), g.StartedAt, g.EndedAt, g.UpdatedAt, pq.Array(statusStrings(from)),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return expectOne(res)
}

// AppendNumber adiciona n ao fim de numbers_called se o jogo estiver ativo e a
// sequência ainda tiver expectedLen números.
func (p *Postgres) AppendNumber(ctx context.Context, gameID string, n int, expectedLen int, now time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE games
		SET numbers_called = array_append(numbers_called, $2), current_number=$2, updated_at=$4
		WHERE id=$1 AND status='active' AND cardinality(numbers_called)=$3
		  AND NOT ($2 = ANY(numbers_called))`,
		gameID, n, expectedLen, now,
	)
	if err != nil {
		return fmt.Errorf("append number: %w", err)
	}
	return expectOne(res)
}

// InsertTickets grava bilhetes de um conjunto; números já existentes são ignorados.
// Retorna quantos foram inseridos.
func (p *Postgres) InsertTickets(ctx context.Context, tickets []ticket.Ticket) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, t := range tickets {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (ticket_set, ticket_number, row1, row2, row3, numbers)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (ticket_set, ticket_number) DO NOTHING`,
			t.SetID, t.TicketNumber, pq.Array(int64s(t.Row1)), pq.Array(int64s(t.Row2)),
			pq.Array(int64s(t.Row3)), pq.Array(int64s(t.Numbers)),
		)
		if err != nil {
			return 0, fmt.Errorf("insert ticket %d: %w", t.TicketNumber, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListTickets retorna os bilhetes 1..maxTickets do conjunto
func (p *Postgres) ListTickets(ctx context.Context, setID string, maxTickets int) ([]ticket.Ticket, error) {
	return listTickets(ctx, p.db, setID, maxTickets)
}

// GetTicket busca um bilhete pelo número externo
func (p *Postgres) GetTicket(ctx context.Context, setID string, number int) (ticket.Ticket, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, ticket_set, ticket_number, row1, row2, row3, numbers
		FROM tickets WHERE ticket_set=$1 AND ticket_number=$2`, setID, number)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ticket.Ticket{}, ErrNotFound
	}
	return t, err
}

// CreateBooking reserva o bilhete; a unicidade (game_id, ticket_id) é o compare-and-set
func (p *Postgres) CreateBooking(ctx context.Context, b game.Booking) error {
	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bookings (id, game_id, ticket_id, player_name, player_phone, booked_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (game_id, ticket_id) DO NOTHING
		RETURNING id`,
		b.ID, b.GameID, b.TicketID, b.PlayerName, b.PlayerPhone, b.BookedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTicketAlreadyBooked
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListBookings retorna as reservas do jogo em ordem de criação
func (p *Postgres) ListBookings(ctx context.Context, gameID string) ([]game.Booking, error) {
	return listBookings(ctx, p.db, gameID)
}

// UpdatePlayer corrige nome/telefone de uma reserva
func (p *Postgres) UpdatePlayer(ctx context.Context, gameID, bookingID, name string, phone *string) (game.Booking, error) {
	var b game.Booking
	err := p.db.QueryRowContext(ctx, `
		UPDATE bookings SET player_name=$3, player_phone=$4
		WHERE game_id=$1 AND id=$2
		RETURNING id, game_id, ticket_id, player_name, player_phone, booked_at`,
		gameID, bookingID, name, phone,
	).Scan(&b.ID, &b.GameID, &b.TicketID, &b.PlayerName, &b.PlayerPhone, &b.BookedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Booking{}, ErrNotFound
	}
	if err != nil {
		return game.Booking{}, fmt.Errorf("update booking: %w", err)
	}
	return b, nil
}

// InsertWinner grava o ganhador se ainda não existir (insert-or-ignore).
// inserted=false significa que outra execução já gravou o mesmo prêmio.
func (p *Postgres) InsertWinner(ctx context.Context, w game.Winner) (bool, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO winners (id, game_id, ticket_id, prize_type, claimed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT DO NOTHING
		RETURNING id`,
		w.ID, w.GameID, w.TicketID, string(w.PrizeType), w.ClaimedAt, w.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert winner: %w", err)
	}
	return true, nil
}

// ListWinners retorna os ganhadores do jogo em ordem de gravação
func (p *Postgres) ListWinners(ctx context.Context, gameID string) ([]game.Winner, error) {
	return listWinners(ctx, p.db, gameID)
}

// Snapshot lê jogo, bilhetes, reservas e ganhadores numa única transação
// read-only, para que o detector veja um estado consistente.
func (p *Postgres) Snapshot(ctx context.Context, gameID string) (game.Game, winner.Snapshot, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}
	defer tx.Rollback()

	g, err := scanGame(tx.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id=$1`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return game.Game{}, winner.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}

	tickets, err := listTickets(ctx, tx, g.TicketSet, g.MaxTickets)
	if err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}
	bookings, err := listBookings(ctx, tx, gameID)
	if err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}
	winners, err := listWinners(ctx, tx, gameID)
	if err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}

	if err = tx.Commit(); err != nil {
		return game.Game{}, winner.Snapshot{}, err
	}
	return g, snapshotOf(g, tickets, bookings, winners), nil
}

// Ping usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listTickets(ctx context.Context, q querier, setID string, maxTickets int) ([]ticket.Ticket, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, ticket_set, ticket_number, row1, row2, row3, numbers
		FROM tickets WHERE ticket_set=$1 AND ticket_number <= $2
		ORDER BY ticket_number`, setID, maxTickets)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func listBookings(ctx context.Context, q querier, gameID string) ([]game.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, game_id, ticket_id, player_name, player_phone, booked_at
		FROM bookings WHERE game_id=$1 ORDER BY booked_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []game.Booking
	for rows.Next() {
		var b game.Booking
		if err := rows.Scan(&b.ID, &b.GameID, &b.TicketID, &b.PlayerName, &b.PlayerPhone, &b.BookedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func listWinners(ctx context.Context, q querier, gameID string) ([]game.Winner, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, game_id, ticket_id, prize_type, claimed_at, created_at
		FROM winners WHERE game_id=$1 ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	var out []game.Winner
	for rows.Next() {
		var (
			w  game.Winner
			pt string
		)
		if err := rows.Scan(&w.ID, &w.GameID, &w.TicketID, &pt, &w.ClaimedAt, &w.CreatedAt); err != nil {
			return nil, err
		}
		// linhas antigas podem usar os nomes legados
		if parsed, err := prize.Parse(pt); err == nil {
			w.PrizeType = parsed
		} else {
			w.PrizeType = prize.Type(pt)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanGame(s scanner) (game.Game, error) {
	var (
		g       game.Game
		status  string
		called  []int64
		current sql.NullInt64
		prizes  []string
		delay   int64
		phone   sql.NullString
	)
	err := s.Scan(&g.ID, &g.HostID, &status, pq.Array(&called), &current, &g.MaxTickets,
		pq.Array(&prizes), &delay, &g.TicketSet, &phone,
		&g.StartedAt, &g.EndedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return game.Game{}, err
	}

	g.Status = game.Status(status)
	g.NumbersCalled = ints(called)
	if current.Valid {
		n := int(current.Int64)
		g.CurrentNumber = &n
	}
	g.NumberCallingDelay = time.Duration(delay) * time.Second
	g.HostPhone = phone.String

	set, err := prize.ParseSet(prizes)
	if err != nil {
		return game.Game{}, fmt.Errorf("game %s: %w", g.ID, err)
	}
	g.SelectedPrizes = set
	return g, nil
}

func scanTicket(s scanner) (ticket.Ticket, error) {
	var (
		t                   ticket.Ticket
		r1, r2, r3, numbers []int64
	)
	if err := s.Scan(&t.ID, &t.SetID, &t.TicketNumber,
		pq.Array(&r1), pq.Array(&r2), pq.Array(&r3), pq.Array(&numbers)); err != nil {
		return ticket.Ticket{}, err
	}
	t.Row1, t.Row2, t.Row3, t.Numbers = ints(r1), ints(r2), ints(r3), ints(numbers)
	return t, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func statusStrings(in []game.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func delaySeconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if s <= 0 {
		s = int64(game.DefaultCallDelay / time.Second)
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func int64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func ints(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
