package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radieske/tambola-live-platform/internal/shared/kafka"
	"github.com/radieske/tambola-live-platform/pkg/contracts/events"
)

// MessageWriter é o pedaço do kafka.Writer que o publisher usa.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher escreve cada evento no seu tópico, com o game_id como chave
// para manter a ordem por jogo dentro da partição.
type KafkaPublisher struct {
	Numbers MessageWriter
	Status  MessageWriter
	Winners MessageWriter
}

func NewKafkaPublisher(numbers, status, winners MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Numbers: numbers, Status: status, Winners: winners}
}

func (p *KafkaPublisher) PublishNumberCalled(ctx context.Context, e events.NumberCalled) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	return write(ctx, p.Numbers, e.GameID, e)
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, e events.GameStatusChanged) error {
	return write(ctx, p.Status, e.GameID, e)
}

func (p *KafkaPublisher) PublishWinnerDeclared(ctx context.Context, e events.WinnerDeclared) error {
	return write(ctx, p.Winners, e.GameID, e)
}

func write(ctx context.Context, w MessageWriter, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b, Time: time.Now()})
}
