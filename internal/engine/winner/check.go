package winner

import (
	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

// QuickFiveCount é quantos números do bilhete precisam estar marcados.
const QuickFiveCount = 5

// completion retorna a posição (em numbers_called) da chamada que completou o
// padrão do prêmio no bilhete. Prêmios de cartela não têm padrão por bilhete.
func completion(p prize.Type, t ticket.Ticket, calls game.CallOrder) (int, bool) {
	switch p {
	case prize.QuickFive:
		return calls.CompletedAt(t.Numbers, QuickFiveCount)
	case prize.Corners:
		return calls.AllAt(t.Corners())
	case prize.StarCorners:
		return calls.AllAt(t.StarCorners())
	case prize.TopLine:
		return calls.AllAt(t.Row1)
	case prize.MiddleLine:
		return calls.AllAt(t.Row2)
	case prize.BottomLine:
		return calls.AllAt(t.Row3)
	case prize.FullHouse, prize.SecondFullHouse:
		return calls.AllAt(t.Numbers)
	case prize.HalfSheet, prize.FullSheet:
		return 0, false
	}
	return 0, false
}

// Check informa se o padrão de um prêmio por bilhete está completo.
// Para second_full_house só verifica a casa cheia; a exclusão dos ganhadores de
// full_house fica com Detect.
func Check(p prize.Type, t ticket.Ticket, calledNumbers []int) bool {
	if ticket.CheckShape(t) != nil {
		return false
	}
	_, ok := completion(p, t, game.NewCallOrder(calledNumbers))
	return ok
}

// Progress resume o andamento de um bilhete para a tela do jogador.
type Progress struct {
	TicketNumber int                 `json:"ticket_number"`
	Marked       int                 `json:"marked"`
	Complete     map[prize.Type]bool `json:"complete"`
}

// TicketProgress calcula Progress para os prêmios informados.
func TicketProgress(t ticket.Ticket, calledNumbers []int, prizes prize.Set) Progress {
	calls := game.NewCallOrder(calledNumbers)
	pr := Progress{
		TicketNumber: t.TicketNumber,
		Marked:       calls.Marked(t.Numbers),
		Complete:     make(map[prize.Type]bool),
	}
	if ticket.CheckShape(t) != nil {
		return pr
	}
	for _, p := range prizes.Types() {
		if p.IsSheet() {
			continue
		}
		_, ok := completion(p, t, calls)
		pr.Complete[p] = ok
	}
	return pr
}
