// Package coordinator é dono do registro do jogo: transições de status, a
// chamada de um número por vez, reservas e a gravação dos ganhadores que o
// detector devolve.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrSettingsLocked = errors.New("setting cannot change after the game started")
)

// Store é o que o coordenador precisa da persistência (repo.Postgres, repo.Memory).
type Store interface {
	CreateGame(ctx context.Context, g game.Game) error
	GetGame(ctx context.Context, id string) (game.Game, error)
	ListGames(ctx context.Context, statuses ...game.Status) ([]game.Game, error)
	UpdateSettings(ctx context.Context, g game.Game) error
	UpdateStatus(ctx context.Context, g game.Game, from []game.Status) error
	AppendNumber(ctx context.Context, gameID string, n int, expectedLen int, now time.Time) error

	ListTickets(ctx context.Context, setID string, maxTickets int) ([]ticket.Ticket, error)
	GetTicket(ctx context.Context, setID string, number int) (ticket.Ticket, error)

	CreateBooking(ctx context.Context, b game.Booking) error
	ListBookings(ctx context.Context, gameID string) ([]game.Booking, error)
	UpdatePlayer(ctx context.Context, gameID, bookingID, name string, phone *string) (game.Booking, error)

	InsertWinner(ctx context.Context, w game.Winner) (bool, error)
	ListWinners(ctx context.Context, gameID string) ([]game.Winner, error)

	Snapshot(ctx context.Context, gameID string) (game.Game, winner.Snapshot, error)
}

// Publisher envia os eventos do jogo para o stream (Kafka).
type Publisher interface {
	PublishNumberCalled(ctx context.Context, e events.NumberCalled) error
	PublishStatusChanged(ctx context.Context, e events.GameStatusChanged) error
	PublishWinnerDeclared(ctx context.Context, e events.WinnerDeclared) error
}

// Broadcaster publica atualizações ao vivo (Redis Pub/Sub).
type Broadcaster interface {
	Broadcast(ctx context.Context, u events.LiveUpdate) error
}

// BoardCache guarda o quadro de números chamados na frente do banco.
type BoardCache interface {
	SetBoard(ctx context.Context, b Board) error
	GetBoard(ctx context.Context, gameID string) (Board, bool, error)
}

// Board é o quadro de números de um jogo.
type Board struct {
	GameID        string      `json:"game_id"`
	Status        game.Status `json:"status"`
	NumbersCalled []int       `json:"numbers_called"`
	CurrentNumber *int        `json:"current_number"`
}

// Defaults aplicados em CreateGame quando o pedido não informa o valor.
type Defaults struct {
	MaxTickets int
	CallDelay  time.Duration
	TicketSet  string
}

type Coordinator struct {
	log   *zap.Logger
	store Store
	pub   Publisher

	Live     Broadcaster // opcional
	Boards   BoardCache  // opcional
	Defaults Defaults

	OnWinner func(prize.Type)       // métricas
	OnIssue  func(winner.IssueKind) // métricas
	OnError  func(string)           // métricas por fase

	Now   func() time.Time
	NewID func() string

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(log *zap.Logger, store Store, pub Publisher, rng *rand.Rand) *Coordinator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return &Coordinator{
		log:   log,
		store: store,
		pub:   pub,
		Defaults: Defaults{
			MaxTickets: game.DefaultMaxTickets,
			CallDelay:  game.DefaultCallDelay,
			TicketSet:  game.DefaultTicketSet,
		},
		Now:   time.Now,
		NewID: uuid.NewString,
		rng:   rng,
	}
}

func (c *Coordinator) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}

// broadcast envia o envelope ao canal ao vivo; falhas só são logadas.
func (c *Coordinator) broadcast(ctx context.Context, gameID, kind string, payload any) {
	if c.Live == nil {
		return
	}
	if err := c.Live.Broadcast(ctx, events.LiveUpdate{GameID: gameID, Type: kind, Payload: payload}); err != nil {
		c.log.Warn("live publish failed", zap.String("game_id", gameID), zap.String("type", kind), zap.Error(err))
		c.fail("live_publish")
	}
}

func (c *Coordinator) refreshBoard(ctx context.Context, g game.Game) {
	if c.Boards == nil {
		return
	}
	err := c.Boards.SetBoard(ctx, Board{
		GameID:        g.ID,
		Status:        g.Status,
		NumbersCalled: g.NumbersCalled,
		CurrentNumber: g.CurrentNumber,
	})
	if err != nil {
		c.log.Warn("board cache set failed", zap.String("game_id", g.ID), zap.Error(err))
		c.fail("cache")
	}
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
