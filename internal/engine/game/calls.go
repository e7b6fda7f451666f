package game

import "sort"

// CallOrder indexa a sequência de números chamados: número -> posição (0-based).
type CallOrder map[int]int

func NewCallOrder(called []int) CallOrder {
	o := make(CallOrder, len(called))
	for i, n := range called {
		if _, dup := o[n]; !dup {
			o[n] = i
		}
	}
	return o
}

func (o CallOrder) Called(n int) bool {
	_, ok := o[n]
	return ok
}

// Marked conta quantos dos números já foram chamados.
func (o CallOrder) Marked(numbers []int) int {
	c := 0
	for _, n := range numbers {
		if o.Called(n) {
			c++
		}
	}
	return c
}

// CompletedAt retorna a posição da chamada em que k dos números passaram a
// estar marcados. ok é false enquanto houver menos de k marcados.
func (o CallOrder) CompletedAt(numbers []int, k int) (pos int, ok bool) {
	if k <= 0 || k > len(numbers) {
		return 0, false
	}
	positions := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if p, called := o[n]; called {
			positions = append(positions, p)
		}
	}
	if len(positions) < k {
		return 0, false
	}
	sort.Ints(positions)
	return positions[k-1], true
}

// AllAt é CompletedAt exigindo todos os números.
func (o CallOrder) AllAt(numbers []int) (int, bool) {
	return o.CompletedAt(numbers, len(numbers))
}
