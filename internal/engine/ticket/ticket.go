// Package ticket define o formato do bilhete de Tambola (3 linhas x 9 colunas,
// 5 números por linha, 15 no total) e as regras que todo bilhete precisa cumprir.
package ticket

import (
	"errors"
	"fmt"
	"sort"
)

const (
	Rows             = 3
	Columns          = 9
	NumbersPerRow    = 5
	NumbersPerTicket = Rows * NumbersPerRow

	MinNumber = 1
	MaxNumber = 90
)

// ErrMalformed indica um bilhete que não respeita o formato 3x9/15 números.
var ErrMalformed = errors.New("malformed ticket")

// Ticket é imutável depois de criado.
// TicketNumber é a chave externa (1..max_tickets), ID é a chave interna do banco.
type Ticket struct {
	ID           int64  `json:"id"`
	SetID        string `json:"ticket_set,omitempty"`
	TicketNumber int    `json:"ticket_number"`
	Row1         []int  `json:"row1"`
	Row2         []int  `json:"row2"`
	Row3         []int  `json:"row3"`
	Numbers      []int  `json:"numbers"`
}

// ColumnOf retorna a coluna (0..8) de um número, ou -1 se estiver fora de 1..90.
// A última coluna cobre 80..90.
func ColumnOf(n int) int {
	switch {
	case n < MinNumber || n > MaxNumber:
		return -1
	case n == MaxNumber:
		return Columns - 1
	default:
		return n / 10
	}
}

// ColumnRange retorna o intervalo fechado de números de uma coluna.
func ColumnRange(col int) (lo, hi int) {
	switch col {
	case 0:
		return 1, 9
	case Columns - 1:
		return 80, 90
	default:
		return col * 10, col*10 + 9
	}
}

// New monta um bilhete a partir das três linhas, ordenando cada linha e
// derivando Numbers. Falha se o resultado não for um bilhete válido.
func New(ticketNumber int, rows [Rows][]int) (Ticket, error) {
	t := Ticket{TicketNumber: ticketNumber}
	sorted := make([][]int, Rows)
	all := make([]int, 0, NumbersPerTicket)
	for i, r := range rows {
		cp := append([]int(nil), r...)
		sort.Ints(cp)
		sorted[i] = cp
		all = append(all, cp...)
	}
	sort.Ints(all)
	t.Row1, t.Row2, t.Row3, t.Numbers = sorted[0], sorted[1], sorted[2], all

	if err := Validate(t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// Rows retorna as três linhas na ordem do bilhete.
func (t Ticket) Rows() [Rows][]int {
	return [Rows][]int{t.Row1, t.Row2, t.Row3}
}

// Grid devolve o layout 3x9 do bilhete; células vazias valem 0.
func (t Ticket) Grid() [Rows][Columns]int {
	var g [Rows][Columns]int
	for i, row := range t.Rows() {
		for _, n := range row {
			if c := ColumnOf(n); c >= 0 {
				g[i][c] = n
			}
		}
	}
	return g
}

// Corners são o primeiro e o último número da linha 1 e da linha 3.
// Só deve ser chamado em bilhetes válidos.
func (t Ticket) Corners() []int {
	return []int{t.Row1[0], t.Row1[NumbersPerRow-1], t.Row3[0], t.Row3[NumbersPerRow-1]}
}

// StarCorners são os quatro cantos mais o número central da linha 2.
func (t Ticket) StarCorners() []int {
	return append(t.Corners(), t.Row2[NumbersPerRow/2])
}

// CheckShape confere apenas a estrutura mínima usada na detecção de prêmios:
// três linhas de 5 números e a lista completa de números.
func CheckShape(t Ticket) error {
	for i, row := range t.Rows() {
		if len(row) != NumbersPerRow {
			return fmt.Errorf("%w: ticket %d row %d has %d numbers", ErrMalformed, t.TicketNumber, i+1, len(row))
		}
	}
	if len(t.Numbers) == 0 {
		return fmt.Errorf("%w: ticket %d has no numbers", ErrMalformed, t.TicketNumber)
	}
	return nil
}

// Validate confere o formato completo do bilhete.
func Validate(t Ticket) error {
	seen := make(map[int]bool, NumbersPerTicket)
	for i, row := range t.Rows() {
		if len(row) != NumbersPerRow {
			return fmt.Errorf("%w: ticket %d row %d has %d numbers", ErrMalformed, t.TicketNumber, i+1, len(row))
		}
		usedCols := make(map[int]bool, NumbersPerRow)
		for j, n := range row {
			col := ColumnOf(n)
			if col < 0 {
				return fmt.Errorf("%w: ticket %d number %d out of range", ErrMalformed, t.TicketNumber, n)
			}
			if j > 0 && row[j-1] >= n {
				return fmt.Errorf("%w: ticket %d row %d not ascending", ErrMalformed, t.TicketNumber, i+1)
			}
			if usedCols[col] {
				return fmt.Errorf("%w: ticket %d row %d uses column %d twice", ErrMalformed, t.TicketNumber, i+1, col+1)
			}
			if seen[n] {
				return fmt.Errorf("%w: ticket %d repeats number %d", ErrMalformed, t.TicketNumber, n)
			}
			usedCols[col] = true
			seen[n] = true
		}
	}

	if len(t.Numbers) != NumbersPerTicket {
		return fmt.Errorf("%w: ticket %d has %d numbers", ErrMalformed, t.TicketNumber, len(t.Numbers))
	}
	for i, n := range t.Numbers {
		if !seen[n] || (i > 0 && t.Numbers[i-1] >= n) {
			return fmt.Errorf("%w: ticket %d numbers do not match rows", ErrMalformed, t.TicketNumber)
		}
	}
	return nil
}
