package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/shared/kafka"
	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

// Evaluator roda o detector para um jogo e grava os novos ganhadores
// (coordinator.Coordinator.Evaluate).
type Evaluator interface {
	Evaluate(ctx context.Context, gameID string) ([]events.WinnerDeclared, error)
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome number_called e reavalia os ganhadores do jogo.
// Mensagens que não decodificam ou que esgotam as tentativas vão para a DLQ.
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Eval   Evaluator
	DLQ    MessageWriter // opcional

	Retries int           // tentativas extras de Evaluate
	Backoff time.Duration // espera entre tentativas

	OnConsumed func()       // métricas
	OnDeclared func(n int)  // métricas
	OnDLQ      func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop de consumo até o contexto ser cancelado.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem. Nunca devolve erro: falhas terminam na DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.NumberCalled
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.GameID == "" {
		if err == nil {
			err = fmt.Errorf("missing game_id")
		}
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return
	}

	var (
		declared []events.WinnerDeclared
		err      error
	)
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 && !sleep(ctx, p.Backoff) {
			return
		}
		declared, err = p.Eval.Evaluate(ctx, ev.GameID)
		if err == nil {
			break
		}
		p.Log.Warn("evaluate failed",
			zap.String("game_id", ev.GameID),
			zap.Int("number", ev.Number),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		p.fail("evaluate")
	}
	if err != nil {
		if ctx.Err() == nil {
			p.deadLetter(ctx, m, "evaluate", err)
		}
		return
	}

	if len(declared) > 0 {
		p.Log.Info("winners declared",
			zap.String("game_id", ev.GameID),
			zap.Int("number", ev.Number),
			zap.Int("position", ev.Position),
			zap.Int("count", len(declared)),
		)
		if p.OnDeclared != nil {
			p.OnDeclared(len(declared))
		}
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	if p.DLQ == nil {
		return
	}
	dl := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(stage)},
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dl); err != nil {
		p.Log.Error("dlq publish failed", zap.String("stage", stage), zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
