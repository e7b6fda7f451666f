package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

// limite do delay entre chamadas
const (
	MinCallDelay = time.Second
	MaxCallDelay = 5 * time.Minute
)

type NewGame struct {
	HostID     string
	HostPhone  string
	MaxTickets int
	CallDelay  time.Duration
	TicketSet  string
	Prizes     []string
}

// SettingsUpdate: campos nil não mudam.
type SettingsUpdate struct {
	CallDelay  *time.Duration
	TicketSet  *string
	Prizes     []string
	MaxTickets *int
}

func (c *Coordinator) CreateGame(ctx context.Context, req NewGame) (game.Game, error) {
	prizes, err := parsePrizes(req.Prizes)
	if err != nil {
		return game.Game{}, err
	}

	g := game.Game{
		ID:                 c.NewID(),
		HostID:             strings.TrimSpace(req.HostID),
		HostPhone:          strings.TrimSpace(req.HostPhone),
		Status:             game.StatusWaiting,
		NumbersCalled:      []int{},
		MaxTickets:         req.MaxTickets,
		SelectedPrizes:     prizes,
		NumberCallingDelay: req.CallDelay,
		TicketSet:          strings.TrimSpace(req.TicketSet),
		CreatedAt:          c.Now(),
	}
	g.UpdatedAt = g.CreatedAt
	if g.MaxTickets == 0 {
		g.MaxTickets = c.Defaults.MaxTickets
	}
	if g.NumberCallingDelay == 0 {
		g.NumberCallingDelay = c.Defaults.CallDelay
	}
	if g.TicketSet == "" {
		g.TicketSet = c.Defaults.TicketSet
	}
	if err := checkLimits(g); err != nil {
		return game.Game{}, err
	}

	if err := c.store.CreateGame(ctx, g); err != nil {
		c.fail("db_create_game")
		return game.Game{}, err
	}
	c.log.Info("game created", zap.String("game_id", g.ID), zap.Strings("prizes", prizes.Strings()))
	return g, nil
}

func (c *Coordinator) GetGame(ctx context.Context, id string) (game.Game, error) {
	return c.store.GetGame(ctx, id)
}

func (c *Coordinator) ListGames(ctx context.Context, statuses ...game.Status) ([]game.Game, error) {
	return c.store.ListGames(ctx, statuses...)
}

// UpdateSettings altera as configurações do jogo. Conjunto de bilhetes e
// limite de bilhetes só mudam enquanto o jogo está em waiting.
func (c *Coordinator) UpdateSettings(ctx context.Context, id string, req SettingsUpdate) (game.Game, error) {
	g, err := c.store.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}
	if g.Status == game.StatusEnded {
		return game.Game{}, game.ErrGameEnded
	}

	if req.CallDelay != nil {
		g.NumberCallingDelay = *req.CallDelay
	}
	if req.Prizes != nil {
		if g.SelectedPrizes, err = parsePrizes(req.Prizes); err != nil {
			return game.Game{}, err
		}
	}
	locked := g.Status != game.StatusWaiting
	if req.TicketSet != nil && strings.TrimSpace(*req.TicketSet) != g.TicketSet {
		if locked {
			return game.Game{}, ErrSettingsLocked
		}
		g.TicketSet = strings.TrimSpace(*req.TicketSet)
	}
	if req.MaxTickets != nil && *req.MaxTickets != g.MaxTickets {
		if locked {
			return game.Game{}, ErrSettingsLocked
		}
		g.MaxTickets = *req.MaxTickets
	}
	if err := checkLimits(g); err != nil {
		return game.Game{}, err
	}

	g.UpdatedAt = c.Now()
	if err := c.store.UpdateSettings(ctx, g); err != nil {
		return game.Game{}, err
	}
	return g, nil
}

// Start: waiting -> active
func (c *Coordinator) Start(ctx context.Context, id string) (game.Game, error) {
	return c.transition(ctx, id, game.StatusActive, game.StatusWaiting)
}

// Pause: active -> paused
func (c *Coordinator) Pause(ctx context.Context, id string) (game.Game, error) {
	return c.transition(ctx, id, game.StatusPaused, game.StatusActive)
}

// Resume: paused -> active
func (c *Coordinator) Resume(ctx context.Context, id string) (game.Game, error) {
	return c.transition(ctx, id, game.StatusActive, game.StatusPaused)
}

// End encerra o jogo a partir de qualquer status não terminal.
func (c *Coordinator) End(ctx context.Context, id string) (game.Game, error) {
	return c.transition(ctx, id, game.StatusEnded, game.Sources(game.StatusEnded)...)
}

func (c *Coordinator) transition(ctx context.Context, id string, to game.Status, from ...game.Status) (game.Game, error) {
	g, err := c.store.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}
	prev := g.Status
	if prev == game.StatusEnded {
		return game.Game{}, game.ErrGameEnded
	}
	if !hasStatus(from, prev) {
		return game.Game{}, fmt.Errorf("%w: %s -> %s", game.ErrInvalidTransition, prev, to)
	}

	next, err := g.Transition(to, c.Now())
	if err != nil {
		return game.Game{}, err
	}
	if err := c.store.UpdateStatus(ctx, next, []game.Status{prev}); err != nil {
		return game.Game{}, err
	}

	c.log.Info("game status changed", zap.String("game_id", id), zap.String("from", string(prev)), zap.String("to", string(to)))

	ev := events.GameStatusChanged{GameID: id, From: string(prev), To: string(to), Ts: next.UpdatedAt}
	if err := c.pub.PublishStatusChanged(ctx, ev); err != nil {
		c.log.Warn("publish status failed", zap.String("game_id", id), zap.Error(err))
		c.fail("publish")
	}
	c.broadcast(ctx, id, events.LiveStatus, ev)
	c.refreshBoard(ctx, next)
	return next, nil
}

// CallNumber sorteia e grava o próximo número a partir do estado que o
// chamador mantém. ErrConcurrentUpdate indica que o estado ficou velho.
func (c *Coordinator) CallNumber(ctx context.Context, state game.Game) (game.Game, error) {
	if state.Status == game.StatusEnded {
		return state, game.ErrGameEnded
	}
	if state.Status != game.StatusActive {
		return state, game.ErrGameNotActive
	}

	c.rngMu.Lock()
	n, err := game.NextNumber(state, c.rng)
	c.rngMu.Unlock()
	if err != nil {
		return state, err
	}

	next, err := state.AppendNumber(n)
	if err != nil {
		return state, err
	}
	next.UpdatedAt = c.Now()

	if err := c.store.AppendNumber(ctx, state.ID, n, len(state.NumbersCalled), next.UpdatedAt); err != nil {
		c.fail("db_append")
		return state, err
	}

	ev := events.NumberCalled{
		GameID:    next.ID,
		Number:    n,
		Position:  len(next.NumbersCalled) - 1,
		Remaining: ticket.MaxNumber - len(next.NumbersCalled),
		TsUnixMs:  next.UpdatedAt.UnixMilli(),
	}
	if err := c.pub.PublishNumberCalled(ctx, ev); err != nil {
		c.log.Warn("publish number failed", zap.String("game_id", next.ID), zap.Int("number", n), zap.Error(err))
		c.fail("publish")
	}
	c.broadcast(ctx, next.ID, events.LiveNumberCalled, ev)
	c.refreshBoard(ctx, next)

	c.log.Debug("number called", zap.String("game_id", next.ID), zap.Int("number", n), zap.Int("position", ev.Position))
	return next, nil
}

// CallNext lê o jogo do banco e chama um número (botão manual do host).
func (c *Coordinator) CallNext(ctx context.Context, id string) (game.Game, error) {
	g, err := c.store.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}
	return c.CallNumber(ctx, g)
}

// Board devolve o quadro de números, preferencialmente do cache.
func (c *Coordinator) Board(ctx context.Context, id string) (Board, error) {
	if c.Boards != nil {
		if b, ok, err := c.Boards.GetBoard(ctx, id); err == nil && ok {
			return b, nil
		} else if err != nil {
			c.log.Warn("board cache get failed", zap.String("game_id", id), zap.Error(err))
		}
	}
	g, err := c.store.GetGame(ctx, id)
	if err != nil {
		return Board{}, err
	}
	c.refreshBoard(ctx, g)
	return Board{GameID: g.ID, Status: g.Status, NumbersCalled: g.NumbersCalled, CurrentNumber: g.CurrentNumber}, nil
}

// View é o jogo com reservas e ganhadores, como a tela do host mostra.
type View struct {
	Game     game.Game      `json:"game"`
	Prizes   []string       `json:"selected_prizes"`
	Delay    int            `json:"number_calling_delay"`
	Bookings []game.Booking `json:"bookings"`
	Winners  []game.Winner  `json:"winners"`
}

func (c *Coordinator) GameView(ctx context.Context, id string) (View, error) {
	g, err := c.store.GetGame(ctx, id)
	if err != nil {
		return View{}, err
	}
	bookings, err := c.store.ListBookings(ctx, id)
	if err != nil {
		return View{}, err
	}
	winners, err := c.store.ListWinners(ctx, id)
	if err != nil {
		return View{}, err
	}
	return View{
		Game:     g,
		Prizes:   g.SelectedPrizes.Strings(),
		Delay:    int(g.NumberCallingDelay / time.Second),
		Bookings: bookings,
		Winners:  winners,
	}, nil
}

func parsePrizes(names []string) (prize.Set, error) {
	if len(names) == 0 {
		return nil, validation("at least one prize is required")
	}
	set, err := prize.ParseSet(names)
	if err != nil {
		return nil, validation("%v", err)
	}
	return set, nil
}

func checkLimits(g game.Game) error {
	if g.MaxTickets < 1 {
		return validation("max_tickets must be positive")
	}
	if g.NumberCallingDelay < MinCallDelay || g.NumberCallingDelay > MaxCallDelay {
		return validation("number_calling_delay must be between %s and %s", MinCallDelay, MaxCallDelay)
	}
	if g.TicketSet == "" {
		return validation("ticket_set is required")
	}
	return nil
}

func hasStatus(list []game.Status, s game.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
