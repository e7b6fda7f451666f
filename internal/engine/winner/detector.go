// Package winner decide o que acabou de ganhar: dado um retrato imutável do
// jogo (bilhetes, reservas, números chamados, ganhadores já gravados), devolve
// apenas os novos ganhadores.
//
// Regras principais:
//   - só prêmios selecionados no jogo são avaliados;
//   - por prêmio, ganha o grupo de bilhetes que completou o padrão na chamada
//     mais antiga; bilhetes que completaram na mesma chamada ganham juntos;
//   - um prêmio por bilhete com ganhador gravado só aceita novos bilhetes que
//     completaram na mesma chamada do ganhador original;
//   - meia cartela e cartela inteira têm um único ganhador por jogo;
//   - second_full_house só é avaliado depois de gravado um full_house.
package winner

import (
	"fmt"
	"sort"
	"time"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/sheet"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

// Snapshot é o estado do jogo passado por valor para Detect.
type Snapshot struct {
	GameID         string
	Tickets        []ticket.Ticket
	Bookings       []game.Booking
	NumbersCalled  []int
	Existing       []game.Winner
	MaxTickets     int
	SelectedPrizes prize.Set
}

// Result é um novo ganhador a ser gravado.
type Result struct {
	GameID        string     `json:"game_id"`
	PrizeType     prize.Type `json:"prize_type"`
	TicketID      int64      `json:"ticket_id"`
	TicketNumber  int        `json:"ticket_number"`
	BookingID     string     `json:"booking_id"`
	PlayerName    string     `json:"player_name"`
	PlayerPhone   *string    `json:"player_phone,omitempty"`
	WinningNumber int        `json:"winning_number"`
	CallPosition  int        `json:"call_position"`
	SheetTickets  []int      `json:"sheet_tickets,omitempty"`
}

// Record converte o resultado no registro persistido.
func (r Result) Record(id string, now time.Time) game.Winner {
	return game.Winner{
		ID:        id,
		GameID:    r.GameID,
		TicketID:  r.TicketID,
		PrizeType: r.PrizeType,
		ClaimedAt: &now,
		CreatedAt: now,
	}
}

type IssueKind string

const (
	IssueOrphanBooking    IssueKind = "orphan_booking"
	IssueForeignBooking   IssueKind = "foreign_booking"
	IssueDuplicateBooking IssueKind = "duplicate_booking"
	IssueMalformedTicket  IssueKind = "malformed_ticket"
	IssueOutOfRange       IssueKind = "ticket_out_of_range"
	IssueUnresolvedWinner IssueKind = "unresolved_winner"
	IssueUnknownPrize     IssueKind = "unknown_prize"
)

// Issue descreve uma entrada ignorada durante a detecção.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	BookingID string    `json:"booking_id,omitempty"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	Detail    string    `json:"detail"`
}

// Outcome agrupa os novos ganhadores e os problemas encontrados.
type Outcome struct {
	Winners []Result
	Issues  []Issue
}

type entry struct {
	ticket  ticket.Ticket
	booking game.Booking
}

type detection struct {
	snap     Snapshot
	calls    game.CallOrder
	entries  []entry
	byTicket map[int64]entry
	bookings []game.Booking
	awarded  map[prize.Type]map[int64]bool
	out      Outcome
}

// Detect é uma função pura: o mesmo Snapshot produz sempre o mesmo Outcome.
func Detect(s Snapshot) Outcome {
	d := &detection{
		snap:     s,
		calls:    game.NewCallOrder(s.NumbersCalled),
		byTicket: make(map[int64]entry),
		awarded:  make(map[prize.Type]map[int64]bool),
	}
	d.prepare()

	var unknown []string
	for p := range s.SelectedPrizes {
		if !p.Valid() {
			unknown = append(unknown, string(p))
		}
	}
	sort.Strings(unknown)
	for _, p := range unknown {
		d.issue(Issue{Kind: IssueUnknownPrize, Detail: fmt.Sprintf("prize %q is not supported", p)})
	}

	for _, p := range prize.All {
		if !s.SelectedPrizes.Has(p) {
			continue
		}
		switch p {
		case prize.HalfSheet, prize.FullSheet:
			d.detectSheet(p)
		case prize.SecondFullHouse:
			d.detectSecondFullHouse()
		case prize.QuickFive, prize.Corners, prize.StarCorners,
			prize.TopLine, prize.MiddleLine, prize.BottomLine, prize.FullHouse:
			d.detectPerTicket(p, nil)
		}
	}
	return d.out
}

// prepare cruza reservas e bilhetes, descartando (e reportando) entradas ruins.
func (d *detection) prepare() {
	tickets := make(map[int64]ticket.Ticket, len(d.snap.Tickets))
	for _, t := range d.snap.Tickets {
		tickets[t.ID] = t
	}

	for _, b := range d.snap.Bookings {
		if d.snap.GameID != "" && b.GameID != "" && b.GameID != d.snap.GameID {
			d.issue(Issue{Kind: IssueForeignBooking, BookingID: b.ID, TicketID: b.TicketID,
				Detail: fmt.Sprintf("booking belongs to game %s", b.GameID)})
			continue
		}
		t, ok := tickets[b.TicketID]
		if !ok {
			d.issue(Issue{Kind: IssueOrphanBooking, BookingID: b.ID, TicketID: b.TicketID,
				Detail: fmt.Sprintf("ticket %d not found", b.TicketID)})
			continue
		}
		if prev, dup := d.byTicket[t.ID]; dup {
			d.issue(Issue{Kind: IssueDuplicateBooking, BookingID: b.ID, TicketID: t.ID,
				Detail: fmt.Sprintf("ticket %d already booked by %s", t.TicketNumber, prev.booking.ID)})
			continue
		}
		if d.snap.MaxTickets > 0 && (t.TicketNumber < 1 || t.TicketNumber > d.snap.MaxTickets) {
			d.issue(Issue{Kind: IssueOutOfRange, BookingID: b.ID, TicketID: t.ID,
				Detail: fmt.Sprintf("ticket number %d outside 1..%d", t.TicketNumber, d.snap.MaxTickets)})
			continue
		}
		if err := ticket.CheckShape(t); err != nil {
			d.issue(Issue{Kind: IssueMalformedTicket, BookingID: b.ID, TicketID: t.ID, Detail: err.Error()})
			continue
		}
		e := entry{ticket: t, booking: b}
		d.byTicket[t.ID] = e
		d.entries = append(d.entries, e)
		d.bookings = append(d.bookings, b)
	}
	sort.Slice(d.entries, func(i, j int) bool {
		return d.entries[i].ticket.TicketNumber < d.entries[j].ticket.TicketNumber
	})

	for _, w := range d.snap.Existing {
		if d.awarded[w.PrizeType] == nil {
			d.awarded[w.PrizeType] = make(map[int64]bool)
		}
		d.awarded[w.PrizeType][w.TicketID] = true
	}
}

// closedAt retorna a posição em que o prêmio foi ganho pelos ganhadores gravados.
// closed indica que existe ganhador; ok é false quando nenhum deles pôde ser
// resolvido no retrato atual.
func (d *detection) closedAt(p prize.Type) (pos int, closed, ok bool) {
	awarded := d.awarded[p]
	if len(awarded) == 0 {
		return 0, false, false
	}
	pos = -1
	ids := make([]int64, 0, len(awarded))
	for id := range awarded {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e, found := d.byTicket[id]
		if !found {
			d.issue(Issue{Kind: IssueUnresolvedWinner, TicketID: id,
				Detail: fmt.Sprintf("%s winner ticket %d is not a booked ticket", p, id)})
			continue
		}
		at, done := completion(p, e.ticket, d.calls)
		if !done {
			d.issue(Issue{Kind: IssueUnresolvedWinner, TicketID: id,
				Detail: fmt.Sprintf("%s winner ticket %d does not satisfy the pattern", p, e.ticket.TicketNumber)})
			continue
		}
		if pos < 0 || at < pos {
			pos = at
		}
	}
	return pos, true, pos >= 0
}

// detectPerTicket aplica a regra de simultaneidade a um prêmio por bilhete.
// accept, quando informado, filtra bilhetes pela posição de conclusão.
func (d *detection) detectPerTicket(p prize.Type, accept func(e entry, pos int) bool) {
	window, closed, resolved := d.closedAt(p)
	if closed && !resolved {
		return
	}

	type hit struct {
		e   entry
		pos int
	}
	var hits []hit
	earliest := -1
	for _, e := range d.entries {
		if d.awarded[p][e.ticket.ID] {
			continue
		}
		pos, ok := completion(p, e.ticket, d.calls)
		if !ok {
			continue
		}
		if accept != nil && !accept(e, pos) {
			continue
		}
		if closed && pos != window {
			continue
		}
		hits = append(hits, hit{e: e, pos: pos})
		if earliest < 0 || pos < earliest {
			earliest = pos
		}
	}

	for _, h := range hits {
		if h.pos != earliest {
			continue
		}
		d.out.Winners = append(d.out.Winners, d.result(p, h.e, h.pos, nil))
	}
}

func (d *detection) detectSecondFullHouse() {
	fullHouse := d.awarded[prize.FullHouse]
	if len(fullHouse) == 0 {
		return
	}
	fhPos, _, fhResolved := d.closedAt(prize.FullHouse)
	d.detectPerTicket(prize.SecondFullHouse, func(e entry, pos int) bool {
		if fullHouse[e.ticket.ID] {
			return false
		}
		// completou junto com o full_house: é co-ganhador dele, não segundo
		return !fhResolved || pos > fhPos
	})
}

// detectSheet escolhe, entre as cartelas vencedoras, a que completou primeiro;
// empate fica com a primeira janela.
func (d *detection) detectSheet(p prize.Type) {
	if len(d.awarded[p]) > 0 {
		return
	}

	var candidates []sheet.Candidate
	switch p {
	case prize.HalfSheet:
		candidates = sheet.FindHalfSheetCandidates(d.bookings, d.snap.Tickets, d.snap.MaxTickets)
	case prize.FullSheet:
		candidates = sheet.FindFullSheetCandidates(d.bookings, d.snap.Tickets, d.snap.MaxTickets)
	default:
		return
	}

	best, bestPos := -1, -1
	for i, c := range candidates {
		if !sheet.ValidateForWinning(c, d.snap.Tickets, d.snap.NumbersCalled).IsWinner {
			continue
		}
		pos, ok := sheet.CompletedAt(c, d.snap.Tickets, d.snap.NumbersCalled)
		if !ok {
			continue
		}
		if best < 0 || pos < bestPos {
			best, bestPos = i, pos
		}
	}
	if best < 0 {
		return
	}

	c := candidates[best]
	for _, e := range d.entries {
		if e.ticket.TicketNumber == c.Tickets[0] {
			r := d.result(p, e, bestPos, c.Tickets)
			r.PlayerName = c.PlayerName
			d.out.Winners = append(d.out.Winners, r)
			return
		}
	}
}

func (d *detection) result(p prize.Type, e entry, pos int, sheetTickets []int) Result {
	return Result{
		GameID:        d.snap.GameID,
		PrizeType:     p,
		TicketID:      e.ticket.ID,
		TicketNumber:  e.ticket.TicketNumber,
		BookingID:     e.booking.ID,
		PlayerName:    e.booking.PlayerName,
		PlayerPhone:   e.booking.PlayerPhone,
		WinningNumber: d.snap.NumbersCalled[pos],
		CallPosition:  pos,
		SheetTickets:  sheetTickets,
	}
}

func (d *detection) issue(i Issue) {
	d.out.Issues = append(d.out.Issues, i)
}
