package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/sheet"
	"github.com/radieske/tambola-live-platform/internal/engine/winner"
	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

// Evaluate roda o detector sobre o estado atual do jogo e grava os novos
// ganhadores. Só os registros efetivamente inseridos são publicados, então
// execuções concorrentes não anunciam o mesmo prêmio duas vezes.
func (c *Coordinator) Evaluate(ctx context.Context, gameID string) ([]events.WinnerDeclared, error) {
	_, snap, err := c.store.Snapshot(ctx, gameID)
	if err != nil {
		c.fail("db_snapshot")
		return nil, err
	}

	out := winner.Detect(snap)
	for _, issue := range out.Issues {
		c.log.Warn("winner detection skipped entry",
			zap.String("game_id", gameID),
			zap.String("kind", string(issue.Kind)),
			zap.String("booking_id", issue.BookingID),
			zap.Int64("ticket_id", issue.TicketID),
			zap.String("detail", issue.Detail),
		)
		if c.OnIssue != nil {
			c.OnIssue(issue.Kind)
		}
	}

	declared := []events.WinnerDeclared{}
	for _, r := range out.Winners {
		rec := r.Record(c.NewID(), c.Now())
		inserted, err := c.store.InsertWinner(ctx, rec)
		if err != nil {
			c.fail("db_winner")
			return declared, err
		}
		if !inserted {
			continue
		}

		ev := events.WinnerDeclared{
			WinnerID:      rec.ID,
			GameID:        gameID,
			PrizeType:     string(r.PrizeType),
			TicketID:      r.TicketID,
			TicketNumber:  r.TicketNumber,
			PlayerName:    r.PlayerName,
			WinningNumber: r.WinningNumber,
			SheetTickets:  r.SheetTickets,
			Ts:            rec.CreatedAt,
		}
		declared = append(declared, ev)

		c.log.Info("winner declared",
			zap.String("game_id", gameID),
			zap.String("prize", string(r.PrizeType)),
			zap.Int("ticket_number", r.TicketNumber),
			zap.String("player", r.PlayerName),
			zap.Int("winning_number", r.WinningNumber),
		)
		if c.OnWinner != nil {
			c.OnWinner(r.PrizeType)
		}
		if err := c.pub.PublishWinnerDeclared(ctx, ev); err != nil {
			c.log.Warn("publish winner failed", zap.String("game_id", gameID), zap.Error(err))
			c.fail("publish")
		}
		c.broadcast(ctx, gameID, events.LiveWinner, ev)
	}
	return declared, nil
}

func (c *Coordinator) Winners(ctx context.Context, gameID string) ([]game.Winner, error) {
	if _, err := c.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return c.store.ListWinners(ctx, gameID)
}

// SheetReport lista todas as meias cartelas e cartelas inteiras do jogo com
// dono, validade e se já ganhariam agora.
func (c *Coordinator) SheetReport(ctx context.Context, gameID string) ([]sheet.Report, error) {
	_, snap, err := c.store.Snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return sheet.Inspect(snap.Bookings, snap.Tickets, snap.NumbersCalled, snap.MaxTickets), nil
}
