// Package game contém o registro de jogo, reservas de bilhetes e ganhadores,
// junto com as regras da máquina de estados e da chamada de números.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

const (
	DefaultMaxTickets = 100
	DefaultCallDelay  = 5 * time.Second
	DefaultTicketSet  = "demo-set-1"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrGameNotActive       = errors.New("game is not active")
	ErrGameEnded           = errors.New("game has ended")
	ErrNumberOutOfRange    = errors.New("number out of range")
	ErrNumberAlreadyCalled = errors.New("number already called")
	ErrAllNumbersCalled    = errors.New("all numbers called")
)

// transições permitidas; ended é terminal
var transitions = map[Status][]Status{
	StatusWaiting: {StatusActive, StatusEnded},
	StatusActive:  {StatusPaused, StatusEnded},
	StatusPaused:  {StatusActive, StatusEnded},
}

// CanTransition informa se from -> to é permitido.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Sources lista os estados a partir dos quais se chega em to.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusWaiting, StatusActive, StatusPaused} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

type Game struct {
	ID                 string        `json:"id"`
	HostID             string        `json:"host_id,omitempty"`
	Status             Status        `json:"status"`
	NumbersCalled      []int         `json:"numbers_called"`
	CurrentNumber      *int          `json:"current_number"`
	MaxTickets         int           `json:"max_tickets"`
	SelectedPrizes     prize.Set     `json:"-"`
	NumberCallingDelay time.Duration `json:"-"`
	TicketSet          string        `json:"ticket_set"`
	HostPhone          string        `json:"host_phone,omitempty"`
	StartedAt          *time.Time    `json:"started_at"`
	EndedAt            *time.Time    `json:"ended_at"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Transition aplica a mudança de status no valor (não persiste).
func (g Game) Transition(to Status, now time.Time) (Game, error) {
	if !CanTransition(g.Status, to) {
		return g, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, to)
	}
	g.Status = to
	g.UpdatedAt = now
	if to == StatusActive && g.StartedAt == nil {
		g.StartedAt = &now
	}
	if to == StatusEnded {
		g.EndedAt = &now
	}
	return g, nil
}

// AppendNumber devolve uma cópia do jogo com n adicionado ao fim da sequência.
func (g Game) AppendNumber(n int) (Game, error) {
	if g.Status != StatusActive {
		return g, ErrGameNotActive
	}
	if n < ticket.MinNumber || n > ticket.MaxNumber {
		return g, fmt.Errorf("%w: %d", ErrNumberOutOfRange, n)
	}
	if len(g.NumbersCalled) >= ticket.MaxNumber {
		return g, ErrAllNumbersCalled
	}
	for _, c := range g.NumbersCalled {
		if c == n {
			return g, fmt.Errorf("%w: %d", ErrNumberAlreadyCalled, n)
		}
	}
	called := make([]int, len(g.NumbersCalled), len(g.NumbersCalled)+1)
	copy(called, g.NumbersCalled)
	g.NumbersCalled = append(called, n)
	g.CurrentNumber = &n
	return g, nil
}

// Remaining retorna, em ordem crescente, os números ainda não chamados.
func (g Game) Remaining() []int {
	called := make(map[int]bool, len(g.NumbersCalled))
	for _, n := range g.NumbersCalled {
		called[n] = true
	}
	out := make([]int, 0, ticket.MaxNumber-len(called))
	for n := ticket.MinNumber; n <= ticket.MaxNumber; n++ {
		if !called[n] {
			out = append(out, n)
		}
	}
	return out
}

// NextNumber sorteia uniformemente um número ainda não chamado.
func NextNumber(g Game, rng *rand.Rand) (int, error) {
	rem := g.Remaining()
	if len(rem) == 0 {
		return 0, ErrAllNumbersCalled
	}
	if rng == nil {
		return rem[rand.IntN(len(rem))], nil
	}
	return rem[rng.IntN(len(rem))], nil
}

// Booking liga um bilhete a um jogador dentro de um jogo.
type Booking struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	TicketID    int64     `json:"ticket_id"`
	PlayerName  string    `json:"player_name"`
	PlayerPhone *string   `json:"player_phone"`
	BookedAt    time.Time `json:"booked_at"`
}

// Winner é um prêmio gravado.
type Winner struct {
	ID        string     `json:"id"`
	GameID    string     `json:"game_id"`
	TicketID  int64      `json:"ticket_id"`
	PrizeType prize.Type `json:"prize_type"`
	ClaimedAt *time.Time `json:"claimed_at"`
	CreatedAt time.Time  `json:"created_at"`
}
