package sheet

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

// fixtureTickets gera bilhetes 1..n com IDs 1000+n.
func fixtureTickets(t *testing.T, n int) []ticket.Ticket {
	t.Helper()
	g := ticket.NewGenerator(ticket.WithRand(rand.New(rand.NewPCG(42, 7))))
	set, err := g.GenerateSet(n, 1)
	require.NoError(t, err)
	for i := range set {
		set[i].ID = int64(1000 + set[i].TicketNumber)
	}
	return set
}

func book(owner string, numbers ...int) []game.Booking {
	out := make([]game.Booking, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, game.Booking{
			ID:         owner + "-" + string(rune('a'+n)),
			GameID:     "g1",
			TicketID:   int64(1000 + n),
			PlayerName: owner,
		})
	}
	return out
}

// markTwo chama os dois primeiros números de cada bilhete informado.
func markTwo(tickets []ticket.Ticket, numbers ...int) []int {
	var called []int
	seen := map[int]bool{}
	for _, n := range numbers {
		for _, v := range tickets[n-1].Numbers[:2] {
			if !seen[v] {
				seen[v] = true
				called = append(called, v)
			}
		}
	}
	return called
}

// markExclusive chama, para cada bilhete em mark, k números que não aparecem
// em nenhum outro bilhete de mark ou avoid.
func markExclusive(tickets []ticket.Ticket, k int, mark, avoid []int) []int {
	var called []int
	for _, n := range mark {
		others := map[int]bool{}
		for _, o := range append(append([]int(nil), mark...), avoid...) {
			if o == n {
				continue
			}
			for _, v := range tickets[o-1].Numbers {
				others[v] = true
			}
		}
		picked := 0
		for _, v := range tickets[n-1].Numbers {
			if picked == k {
				break
			}
			if !others[v] {
				called = append(called, v)
				picked++
			}
		}
	}
	return called
}

func TestFindHalfSheetCandidates(t *testing.T) {
	tickets := fixtureTickets(t, 12)
	bookings := append(book("Asha", 10, 11, 12), book("Ravi", 4, 5)...)
	bookings = append(bookings, book("Meera", 6)...)

	got := FindHalfSheetCandidates(bookings, tickets, 12)
	require.Len(t, got, 2)

	assert.Equal(t, []int{4, 5, 6}, got[0].Tickets)
	assert.False(t, got[0].Valid)
	assert.Equal(t, reasonMixedOwners, got[0].Reason)

	assert.Equal(t, []int{10, 11, 12}, got[1].Tickets)
	assert.True(t, got[1].Valid)
	assert.Equal(t, "Asha", got[1].PlayerName)
	assert.Equal(t, prize.HalfSheet, got[1].Prize)
}

func TestFindCandidates_PartialWindowsAreAbsent(t *testing.T) {
	tickets := fixtureTickets(t, 12)
	bookings := book("Asha", 1, 2, 7, 8, 9, 10, 11)

	half := FindHalfSheetCandidates(bookings, tickets, 12)
	require.Len(t, half, 1)
	assert.Equal(t, []int{7, 8, 9}, half[0].Tickets)

	assert.Empty(t, FindFullSheetCandidates(bookings, tickets, 12))
}

func TestFindCandidates_RespectsMaxTickets(t *testing.T) {
	tickets := fixtureTickets(t, 12)
	bookings := book("Asha", 10, 11, 12)
	assert.Empty(t, FindHalfSheetCandidates(bookings, tickets, 11))
}

func TestFindFullSheetCandidates(t *testing.T) {
	tickets := fixtureTickets(t, 12)
	bookings := book("Asha", 7, 8, 9, 10, 11, 12)

	got := FindFullSheetCandidates(bookings, tickets, 12)
	require.Len(t, got, 1)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, got[0].Tickets)
	assert.True(t, got[0].Valid)
}

func TestHasMinimumMarkedNumbers(t *testing.T) {
	tk := fixtureTickets(t, 1)[0]
	assert.False(t, HasMinimumMarkedNumbers(tk, tk.Numbers[:1], 2))
	assert.True(t, HasMinimumMarkedNumbers(tk, tk.Numbers[:2], 2))
	assert.True(t, HasMinimumMarkedNumbers(tk, nil, 0))
}

func TestHalfSheetScenario(t *testing.T) {
	tickets := fixtureTickets(t, 12)
	bookings := book("Asha", 10, 11, 12)
	called := markTwo(tickets, 10, 11, 12)

	c, ok := WinningHalfSheet(bookings, tickets, called, 12)
	require.True(t, ok)
	assert.Equal(t, []int{10, 11, 12}, c.Tickets)

	// ticket 11 de outro jogador: janela inválida, nunca ganha
	mixed := append(book("Asha", 10, 12), book("Ravi", 11)...)
	cands := FindHalfSheetCandidates(mixed, tickets, 12)
	require.Len(t, cands, 1)
	assert.False(t, cands[0].Valid)
	v := ValidateForWinning(cands[0], tickets, called)
	assert.False(t, v.IsWinner)
	assert.Equal(t, reasonMixedOwners, v.Reason)

	_, ok = WinningHalfSheet(mixed, tickets, called, 12)
	assert.False(t, ok)
}

func TestValidateForWinning_RequiresEveryTicketMarked(t *testing.T) {
	tickets := fixtureTickets(t, 3)
	bookings := book("Asha", 1, 2, 3)
	cands := FindHalfSheetCandidates(bookings, tickets, 3)
	require.Len(t, cands, 1)

	// um bilhete todo marcado não basta
	v := ValidateForWinning(cands[0], tickets, markExclusive(tickets, 15, []int{1}, []int{2, 3}))
	assert.False(t, v.IsWinner)
	assert.Contains(t, v.Reason, "less than 2")

	v = ValidateForWinning(cands[0], tickets, markTwo(tickets, 1, 2, 3))
	assert.True(t, v.IsWinner)

	v = ValidateForWinning(cands[0], tickets[:2], markTwo(tickets, 1, 2, 3))
	assert.False(t, v.IsWinner)
	assert.Equal(t, "ticket 3 not found", v.Reason)
}

func TestWinningSheet_FirstInWindowOrder(t *testing.T) {
	tickets := fixtureTickets(t, 6)
	bookings := append(book("Asha", 1, 2, 3), book("Ravi", 4, 5, 6)...)
	called := append(markTwo(tickets, 4, 5, 6), markTwo(tickets, 1, 2, 3)...)

	c, ok := WinningHalfSheet(bookings, tickets, called, 6)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, c.Tickets)

	_, ok = WinningFullSheet(bookings, tickets, called, 6)
	assert.False(t, ok, "mixed owners never form a full sheet")
}

func TestCompletedAt(t *testing.T) {
	tickets := fixtureTickets(t, 3)
	bookings := book("Asha", 1, 2, 3)
	cands := FindHalfSheetCandidates(bookings, tickets, 3)
	require.Len(t, cands, 1)

	called := markExclusive(tickets, 2, []int{1, 2, 3}, nil)
	require.Len(t, called, 6)
	pos, ok := CompletedAt(cands[0], tickets, called)
	require.True(t, ok)
	assert.Equal(t, len(called)-1, pos)

	_, ok = CompletedAt(cands[0], tickets, called[:len(called)-1])
	assert.False(t, ok)
}

func TestInspect(t *testing.T) {
	tickets := fixtureTickets(t, 6)
	bookings := append(book("Asha", 1, 2, 3), book("Ravi", 4, 5, 6)...)
	reports := Inspect(bookings, tickets, markExclusive(tickets, 2, []int{1, 2, 3}, []int{4, 5, 6}), 6)

	require.Len(t, reports, 3)
	assert.True(t, reports[0].IsWinner)
	assert.NotNil(t, reports[0].CompletedAt)
	assert.False(t, reports[1].IsWinner)
	assert.Equal(t, prize.FullSheet, reports[2].Prize)
	assert.False(t, reports[2].Valid)
}
