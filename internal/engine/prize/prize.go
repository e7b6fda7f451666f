// Package prize define o catálogo fechado de prêmios do jogo.
package prize

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknown = errors.New("unknown prize type")

type Type string

const (
	QuickFive       Type = "quick_five"
	Corners         Type = "corners"
	StarCorners     Type = "star_corners"
	TopLine         Type = "top_line"
	MiddleLine      Type = "middle_line"
	BottomLine      Type = "bottom_line"
	FullHouse       Type = "full_house"
	SecondFullHouse Type = "second_full_house"
	HalfSheet       Type = "half_sheet"
	FullSheet       Type = "full_sheet"
)

// All lista os prêmios na ordem em que são avaliados.
var All = []Type{
	QuickFive, Corners, StarCorners,
	TopLine, MiddleLine, BottomLine,
	FullHouse, SecondFullHouse,
	HalfSheet, FullSheet,
}

// nomes antigos ainda gravados em jogos e telas legadas
var aliases = map[string]Type{
	"early_five":  QuickFive,
	"first_line":  TopLine,
	"second_line": MiddleLine,
	"third_line":  BottomLine,
}

// Parse normaliza um nome de prêmio (aceita os nomes antigos).
func Parse(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := aliases[s]; ok {
		return t, nil
	}
	for _, t := range All {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

// Valid aceita só o nome canônico exato; Parse é quem normaliza.
func (t Type) Valid() bool {
	for _, p := range All {
		if p == t {
			return true
		}
	}
	return false
}

// SingleWinner indica prêmios com no máximo um ganhador por jogo.
func (t Type) SingleWinner() bool {
	return t == HalfSheet || t == FullSheet
}

// IsSheet indica prêmios resolvidos por grupo de bilhetes.
func (t Type) IsSheet() bool {
	return t == HalfSheet || t == FullSheet
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Set é o conjunto de prêmios ativos num jogo.
type Set map[Type]struct{}

func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseSet converte nomes em Set; todos os nomes desconhecidos são reportados.
func ParseSet(names []string) (Set, error) {
	s := make(Set, len(names))
	var bad []string
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			bad = append(bad, n)
			continue
		}
		s[t] = struct{}{}
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, strings.Join(bad, ", "))
	}
	return s, nil
}

func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Types retorna os prêmios do conjunto na ordem de All.
func (s Set) Types() []Type {
	out := make([]Type, 0, len(s))
	for _, t := range All {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Strings é o formato persistido (text[]).
func (s Set) Strings() []string {
	types := s.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	sort.Strings(out)
	return out
}
