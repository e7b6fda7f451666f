package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
	"github.com/radieske/tambola-live-platform/internal/engine/ticketset"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
	"github.com/radieske/tambola-live-platform/internal/shared/config"
	"github.com/radieske/tambola-live-platform/internal/shared/db"
	"github.com/radieske/tambola-live-platform/internal/shared/logger"
)

// tentativas por bilhete antes de desistir do conjunto
const generateAttempts = 5

func main() {
	cfg := config.Load()
	log, err := logger.New("ticket-seeder", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	tickets, source, err := loadTickets(cfg)
	if err != nil {
		log.Fatal("build ticket set", zap.String("set", cfg.TicketSet), zap.Error(err))
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	inserted, err := repo.NewPostgres(pg).InsertTickets(ctx, tickets)
	if err != nil {
		log.Fatal("insert tickets", zap.Error(err))
	}
	log.Info("ticket set seeded",
		zap.String("set", cfg.TicketSet),
		zap.String("source", source),
		zap.Int("tickets", len(tickets)),
		zap.Int("inserted", inserted),
	)
}

// loadTickets lê <TICKET_SET_DIR>/<TICKET_SET>.json ou gera o conjunto.
func loadTickets(cfg config.Config) ([]ticket.Ticket, string, error) {
	if cfg.TicketSetDir != "" {
		tickets, err := ticketset.NewLoader(os.DirFS(cfg.TicketSetDir)).Load(cfg.TicketSet, cfg.TicketCount)
		return tickets, "file", err
	}

	seed := uint64(time.Now().UnixNano())
	gen := ticket.NewGenerator(ticket.WithRand(rand.New(rand.NewPCG(seed, seed>>1))))
	tickets, err := gen.GenerateSet(cfg.TicketCount, generateAttempts)
	if err != nil {
		return nil, "generated", err
	}
	for i := range tickets {
		tickets[i].SetID = cfg.TicketSet
	}
	return tickets, "generated", nil
}
