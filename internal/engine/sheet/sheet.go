// Package sheet identifica e valida grupos de bilhetes consecutivos de um mesmo
// jogador: meia cartela (3 bilhetes) e cartela inteira (6 bilhetes).
package sheet

import (
	"fmt"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

const (
	HalfSize = 3
	FullSize = 6

	// MinMarkedPerTicket é o mínimo de números marcados em cada bilhete da
	// cartela; uma cartela não ganha apoiada num bilhete só.
	MinMarkedPerTicket = 2
)

const reasonMixedOwners = "tickets owned by different players"

// Candidate é uma janela de bilhetes totalmente reservada.
// Valid é false quando os bilhetes pertencem a jogadores diferentes.
type Candidate struct {
	Prize       prize.Type `json:"prize_type"`
	Tickets     []int      `json:"tickets"`
	BookingID   string     `json:"booking_id,omitempty"`
	PlayerName  string     `json:"player_name"`
	PlayerPhone *string    `json:"player_phone,omitempty"`
	Valid       bool       `json:"is_valid"`
	Reason      string     `json:"reason,omitempty"`
}

// Validation é o resultado de ValidateForWinning.
type Validation struct {
	IsWinner bool   `json:"is_winner"`
	Reason   string `json:"reason,omitempty"`
}

// FindHalfSheetCandidates avalia as janelas [n-2, n-1, n] com n múltiplo de 3.
func FindHalfSheetCandidates(bookings []game.Booking, tickets []ticket.Ticket, maxTickets int) []Candidate {
	return findCandidates(prize.HalfSheet, HalfSize, bookings, tickets, maxTickets)
}

// FindFullSheetCandidates avalia as janelas de 6 terminando em múltiplos de 6.
func FindFullSheetCandidates(bookings []game.Booking, tickets []ticket.Ticket, maxTickets int) []Candidate {
	return findCandidates(prize.FullSheet, FullSize, bookings, tickets, maxTickets)
}

func findCandidates(kind prize.Type, size int, bookings []game.Booking, tickets []ticket.Ticket, maxTickets int) []Candidate {
	byNumber := bookingsByTicketNumber(bookings, tickets)

	var out []Candidate
	for end := size; end <= maxTickets; end += size {
		start := end - size + 1
		if start < 1 {
			continue
		}

		window := make([]int, 0, size)
		owners := make([]game.Booking, 0, size)
		for n := start; n <= end; n++ {
			window = append(window, n)
			if b, ok := byNumber[n]; ok {
				owners = append(owners, b)
			}
		}
		// janela parcialmente reservada não é candidata
		if len(owners) != size {
			continue
		}

		first := owners[0]
		same := true
		for _, b := range owners[1:] {
			if b.PlayerName != first.PlayerName {
				same = false
				break
			}
		}
		if same {
			out = append(out, Candidate{
				Prize:       kind,
				Tickets:     window,
				BookingID:   first.ID,
				PlayerName:  first.PlayerName,
				PlayerPhone: first.PlayerPhone,
				Valid:       true,
			})
			continue
		}
		out = append(out, Candidate{
			Prize:      kind,
			Tickets:    window,
			PlayerName: "Multiple players",
			Valid:      false,
			Reason:     reasonMixedOwners,
		})
	}
	return out
}

// HasMinimumMarkedNumbers informa se ao menos min números do bilhete foram chamados.
func HasMinimumMarkedNumbers(t ticket.Ticket, calledNumbers []int, min int) bool {
	return game.NewCallOrder(calledNumbers).Marked(t.Numbers) >= min
}

// ValidateForWinning exige posse única e que cada bilhete da janela tenha
// ao menos MinMarkedPerTicket números marcados.
func ValidateForWinning(c Candidate, tickets []ticket.Ticket, calledNumbers []int) Validation {
	return validate(c, ticketsByNumber(tickets), game.NewCallOrder(calledNumbers))
}

func validate(c Candidate, byNumber map[int]ticket.Ticket, calls game.CallOrder) Validation {
	if !c.Valid {
		return Validation{Reason: c.Reason}
	}
	for _, n := range c.Tickets {
		t, ok := byNumber[n]
		if !ok {
			return Validation{Reason: fmt.Sprintf("ticket %d not found", n)}
		}
		if calls.Marked(t.Numbers) < MinMarkedPerTicket {
			return Validation{Reason: fmt.Sprintf("ticket %d has less than %d marked numbers", n, MinMarkedPerTicket)}
		}
	}
	return Validation{IsWinner: true}
}

// CompletedAt retorna a posição da chamada em que a cartela passou a ganhar:
// o momento em que o último bilhete da janela atingiu o mínimo de marcados.
func CompletedAt(c Candidate, tickets []ticket.Ticket, calledNumbers []int) (int, bool) {
	return completedAt(c, ticketsByNumber(tickets), game.NewCallOrder(calledNumbers))
}

func completedAt(c Candidate, byNumber map[int]ticket.Ticket, calls game.CallOrder) (int, bool) {
	if !c.Valid || len(c.Tickets) == 0 {
		return 0, false
	}
	last := -1
	for _, n := range c.Tickets {
		t, ok := byNumber[n]
		if !ok {
			return 0, false
		}
		p, ok := calls.CompletedAt(t.Numbers, MinMarkedPerTicket)
		if !ok {
			return 0, false
		}
		if p > last {
			last = p
		}
	}
	return last, true
}

// WinningHalfSheet retorna a primeira meia cartela (em ordem de janela) que ganha agora.
func WinningHalfSheet(bookings []game.Booking, tickets []ticket.Ticket, calledNumbers []int, maxTickets int) (Candidate, bool) {
	return firstWinner(FindHalfSheetCandidates(bookings, tickets, maxTickets), tickets, calledNumbers)
}

// WinningFullSheet retorna a primeira cartela inteira que ganha agora.
func WinningFullSheet(bookings []game.Booking, tickets []ticket.Ticket, calledNumbers []int, maxTickets int) (Candidate, bool) {
	return firstWinner(FindFullSheetCandidates(bookings, tickets, maxTickets), tickets, calledNumbers)
}

func firstWinner(candidates []Candidate, tickets []ticket.Ticket, calledNumbers []int) (Candidate, bool) {
	byNumber := ticketsByNumber(tickets)
	calls := game.NewCallOrder(calledNumbers)
	for _, c := range candidates {
		if validate(c, byNumber, calls).IsWinner {
			return c, true
		}
	}
	return Candidate{}, false
}

// Report é a visão de diagnóstico de uma candidata.
type Report struct {
	Candidate
	Validation
	CompletedAt *int `json:"completed_at,omitempty"`
}

// Inspect avalia todas as candidatas (meia e inteira) para exibição.
func Inspect(bookings []game.Booking, tickets []ticket.Ticket, calledNumbers []int, maxTickets int) []Report {
	byNumber := ticketsByNumber(tickets)
	calls := game.NewCallOrder(calledNumbers)

	candidates := append(
		FindHalfSheetCandidates(bookings, tickets, maxTickets),
		FindFullSheetCandidates(bookings, tickets, maxTickets)...,
	)
	out := make([]Report, 0, len(candidates))
	for _, c := range candidates {
		r := Report{Candidate: c, Validation: validate(c, byNumber, calls)}
		if r.IsWinner {
			if p, ok := completedAt(c, byNumber, calls); ok {
				r.CompletedAt = &p
			}
		}
		out = append(out, r)
	}
	return out
}

func ticketsByNumber(tickets []ticket.Ticket) map[int]ticket.Ticket {
	m := make(map[int]ticket.Ticket, len(tickets))
	for _, t := range tickets {
		if _, dup := m[t.TicketNumber]; !dup {
			m[t.TicketNumber] = t
		}
	}
	return m
}

// bookingsByTicketNumber ignora reservas cujo bilhete não existe.
func bookingsByTicketNumber(bookings []game.Booking, tickets []ticket.Ticket) map[int]game.Booking {
	numberByID := make(map[int64]int, len(tickets))
	for _, t := range tickets {
		numberByID[t.ID] = t.TicketNumber
	}
	m := make(map[int]game.Booking, len(bookings))
	for _, b := range bookings {
		n, ok := numberByID[b.TicketID]
		if !ok {
			continue
		}
		if _, dup := m[n]; !dup {
			m[n] = b
		}
	}
	return m
}
