// Package caller dispara a chamada automática de números de cada jogo ativo,
// um job do gocron por jogo no intervalo number_calling_delay.
package caller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
)

// Coordinator é o que o caller usa do coordinator.Coordinator.
type Coordinator interface {
	GetGame(ctx context.Context, id string) (game.Game, error)
	ListGames(ctx context.Context, statuses ...game.Status) ([]game.Game, error)
	CallNumber(ctx context.Context, state game.Game) (game.Game, error)
}

type Caller struct {
	log   *zap.Logger
	coord Coordinator
	sched gocron.Scheduler

	Timeout  time.Duration
	OnCalled func()
	OnError  func(stage string)

	mu    sync.Mutex
	games map[string]*run
}

// run é o estado mantido entre ticks; evita reler o jogo do banco a cada chamada.
type run struct {
	job   uuid.UUID
	delay time.Duration
	state game.Game
}

func New(log *zap.Logger, coord Coordinator, sched gocron.Scheduler) *Caller {
	return &Caller{
		log:     log,
		coord:   coord,
		sched:   sched,
		Timeout: 5 * time.Second,
		games:   make(map[string]*run),
	}
}

func (c *Caller) Start() { c.sched.Start() }

func (c *Caller) Shutdown() error { return c.sched.Shutdown() }

// Begin agenda a chamada para um jogo ativo. Chamar de novo atualiza o
// estado e, se o intervalo mudou, recria o job.
func (c *Caller) Begin(g game.Game) error {
	if g.Status != game.StatusActive {
		return game.ErrGameNotActive
	}
	delay := g.NumberCallingDelay
	if delay <= 0 {
		delay = game.DefaultCallDelay
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.games[g.ID]; ok {
		if r.delay == delay {
			r.state = g
			return nil
		}
		c.removeLocked(g.ID)
	}

	j, err := c.sched.NewJob(
		gocron.DurationJob(delay),
		gocron.NewTask(c.tick, g.ID),
		gocron.WithName("call:"+g.ID),
		gocron.WithTags(g.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule game %s: %w", g.ID, err)
	}
	c.games[g.ID] = &run{job: j.ID(), delay: delay, state: g}
	c.log.Info("number calling scheduled", zap.String("game_id", g.ID), zap.Duration("delay", delay))
	return nil
}

// Stop remove o job do jogo, se houver.
func (c *Caller) Stop(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(gameID)
}

func (c *Caller) Running(gameID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.games[gameID]
	return ok
}

// Restore reagenda os jogos ativos depois de um restart.
func (c *Caller) Restore(ctx context.Context) (int, error) {
	games, err := c.coord.ListGames(ctx, game.StatusActive)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, g := range games {
		if len(g.NumbersCalled) >= ticket.MaxNumber {
			continue
		}
		if err := c.Begin(g); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (c *Caller) removeLocked(gameID string) {
	r, ok := c.games[gameID]
	if !ok {
		return
	}
	delete(c.games, gameID)
	if err := c.sched.RemoveJob(r.job); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		c.log.Warn("remove calling job failed", zap.String("game_id", gameID), zap.Error(err))
	}
	c.log.Info("number calling stopped", zap.String("game_id", gameID))
}

func (c *Caller) tick(gameID string) {
	c.mu.Lock()
	r, ok := c.games[gameID]
	if !ok {
		c.mu.Unlock()
		return
	}
	state := r.state
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	next, err := c.coord.CallNumber(ctx, state)
	switch {
	case err == nil:
		c.keep(next)
		if c.OnCalled != nil {
			c.OnCalled()
		}
		if len(next.NumbersCalled) >= ticket.MaxNumber {
			c.log.Info("all numbers called", zap.String("game_id", gameID))
			c.Stop(gameID)
		}
	case errors.Is(err, repo.ErrConcurrentUpdate):
		// outro chamador (botão manual, pause) mudou o jogo; relê e segue
		c.refresh(ctx, gameID)
	case errors.Is(err, game.ErrAllNumbersCalled),
		errors.Is(err, game.ErrGameNotActive),
		errors.Is(err, game.ErrGameEnded):
		c.Stop(gameID)
	default:
		c.log.Error("call number failed", zap.String("game_id", gameID), zap.Error(err))
		c.fail("call")
	}
}

func (c *Caller) refresh(ctx context.Context, gameID string) {
	g, err := c.coord.GetGame(ctx, gameID)
	if err != nil {
		c.log.Error("refresh game failed", zap.String("game_id", gameID), zap.Error(err))
		c.fail("refresh")
		return
	}
	if g.Status != game.StatusActive || len(g.NumbersCalled) >= ticket.MaxNumber {
		c.Stop(gameID)
		return
	}
	c.keep(g)
}

// keep só grava se o jogo ainda estiver agendado.
func (c *Caller) keep(g game.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.games[g.ID]; ok {
		r.state = g
	}
}

func (c *Caller) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
