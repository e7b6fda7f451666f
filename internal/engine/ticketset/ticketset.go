// Package ticketset carrega conjuntos de bilhetes pré-gerados a partir de
// arquivos JSON ({setId}.json) e mantém em cache os bilhetes já processados.
package ticketset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/radieske/tambola-live-platform/internal/engine/ticket"
)

var ErrTicketNotInSet = errors.New("ticket not found in set")

// Row é uma linha do arquivo do conjunto. Numbers tem as 9 células da linha,
// com 0 nas células vazias.
type Row struct {
	SetID    int   `json:"setId"`
	TicketID int   `json:"ticketId"`
	RowID    int   `json:"rowId"`
	Numbers  []int `json:"numbers"`
}

// Key identifica um conjunto carregado com um limite de bilhetes.
type Key struct {
	SetID      string
	MaxTickets int
}

// Loader lê os arquivos de um fs.FS e guarda o resultado por Key.
type Loader struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[Key][]ticket.Ticket
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, cache: make(map[Key][]ticket.Ticket)}
}

// Load retorna os bilhetes 1..maxTickets do conjunto, ordenados por número.
func (l *Loader) Load(setID string, maxTickets int) ([]ticket.Ticket, error) {
	key := Key{SetID: setID, MaxTickets: maxTickets}

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	b, err := fs.ReadFile(l.fsys, setID+".json")
	if err != nil {
		return nil, fmt.Errorf("read ticket set %s: %w", setID, err)
	}
	var rows []Row
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode ticket set %s: %w", setID, err)
	}

	tickets, err := Assemble(setID, rows, maxTickets)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = tickets
	l.mu.Unlock()
	return tickets, nil
}

// Ticket retorna um único bilhete do conjunto.
func (l *Loader) Ticket(setID string, ticketNumber, maxTickets int) (ticket.Ticket, error) {
	tickets, err := l.Load(setID, maxTickets)
	if err != nil {
		return ticket.Ticket{}, err
	}
	i := sort.Search(len(tickets), func(i int) bool { return tickets[i].TicketNumber >= ticketNumber })
	if i == len(tickets) || tickets[i].TicketNumber != ticketNumber {
		return ticket.Ticket{}, fmt.Errorf("%w: ticket %d in %s (max %d)", ErrTicketNotInSet, ticketNumber, setID, maxTickets)
	}
	return tickets[i], nil
}

// Clear esvazia o cache.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.cache = make(map[Key][]ticket.Ticket)
	l.mu.Unlock()
}

// Assemble agrupa as linhas por ticketId (até maxTickets) e monta os bilhetes.
// Bilhetes sem as 3 linhas são descartados; um bilhete completo mas inválido
// faz o conjunto inteiro falhar.
func Assemble(setID string, rows []Row, maxTickets int) ([]ticket.Ticket, error) {
	groups := make(map[int]map[int][]int)
	for _, r := range rows {
		if maxTickets > 0 && r.TicketID > maxTickets {
			continue
		}
		if r.RowID < 1 || r.RowID > ticket.Rows {
			continue
		}
		if groups[r.TicketID] == nil {
			groups[r.TicketID] = make(map[int][]int, ticket.Rows)
		}
		groups[r.TicketID][r.RowID] = r.Numbers
	}

	out := make([]ticket.Ticket, 0, len(groups))
	for id, g := range groups {
		if len(g) != ticket.Rows {
			continue
		}
		var grid [ticket.Rows][]int
		for rowID := 1; rowID <= ticket.Rows; rowID++ {
			grid[rowID-1] = nonZero(g[rowID])
		}
		t, err := ticket.New(id, grid)
		if err != nil {
			return nil, fmt.Errorf("ticket set %s: %w", setID, err)
		}
		t.SetID = setID
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out, nil
}

func nonZero(cells []int) []int {
	out := make([]int, 0, ticket.NumbersPerRow)
	for _, n := range cells {
		if n != 0 {
			out = append(out, n)
		}
	}
	return out
}
