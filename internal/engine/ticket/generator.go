package ticket

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrPoolExhausted é retornado quando uma coluna escolhida não tem mais números
// disponíveis. Nenhum número é consumido quando a geração falha.
var ErrPoolExhausted = errors.New("column pool exhausted")

// Generator gera bilhetes aleatórios.
// Com WithSharedPools os números são sorteados sem reposição entre todos os
// bilhetes do conjunto (como numa cartela de 6 bilhetes); sem a opção cada
// bilhete começa com as colunas completas.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	shared bool
	pools  [Columns][]int
}

type Option func(*Generator)

// WithRand fixa a fonte de aleatoriedade (útil em testes).
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSharedPools faz os bilhetes gerados compartilharem as colunas.
func WithSharedPools() Option {
	return func(g *Generator) { g.shared = true }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.pools = g.freshPools()
	return g
}

var defaultGenerator = NewGenerator()

// Generate gera um bilhete com o gerador padrão.
func Generate(ticketNumber int) (Ticket, error) {
	return defaultGenerator.Generate(ticketNumber)
}

// Reset devolve todos os números às colunas compartilhadas.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pools = g.freshPools()
}

// Generate sorteia, para cada linha, 5 das 9 colunas e tira um número de cada
// coluna escolhida. Se uma coluna estiver vazia a geração é rejeitada.
func (g *Generator) Generate(ticketNumber int) (Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var pools [Columns][]int
	if g.shared {
		for c := range g.pools {
			pools[c] = append([]int(nil), g.pools[c]...)
		}
	} else {
		pools = g.freshPools()
	}

	var rows [Rows][]int
	for r := 0; r < Rows; r++ {
		cols := g.rng.Perm(Columns)[:NumbersPerRow]
		row := make([]int, 0, NumbersPerRow)
		for _, c := range cols {
			p := pools[c]
			if len(p) == 0 {
				return Ticket{}, fmt.Errorf("%w: ticket %d row %d column %d", ErrPoolExhausted, ticketNumber, r+1, c+1)
			}
			row = append(row, p[len(p)-1])
			pools[c] = p[:len(p)-1]
		}
		rows[r] = row
	}

	t, err := New(ticketNumber, rows)
	if err != nil {
		return Ticket{}, err
	}
	if g.shared {
		g.pools = pools
	}
	return t, nil
}

// GenerateSet gera os bilhetes 1..count, tentando cada um até attempts vezes.
func (g *Generator) GenerateSet(count, attempts int) ([]Ticket, error) {
	if attempts < 1 {
		attempts = 1
	}
	out := make([]Ticket, 0, count)
	for n := 1; n <= count; n++ {
		var (
			t   Ticket
			err error
		)
		for i := 0; i < attempts; i++ {
			if t, err = g.Generate(n); err == nil {
				break
			}
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (g *Generator) freshPools() [Columns][]int {
	var pools [Columns][]int
	for c := 0; c < Columns; c++ {
		lo, hi := ColumnRange(c)
		p := make([]int, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			p = append(p, n)
		}
		g.rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
		pools[c] = p
	}
	return pools
}
