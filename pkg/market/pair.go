package market

import (
	"fmt"
	"strings"
)

// Pair is an ordered pair of column names; A is the numerator / minuend.
type Pair struct {
	A string
	B string
}

// NewPair 创建配对
func NewPair(a, b string) Pair {
	return Pair{A: a, B: b}
}

// pairSeparators 可用的分隔符，一个配对只能出现其中一个
const pairSeparators = "/,:"

// ParsePair parses "A/B" (also accepts "A,B" and "A:B").
func ParsePair(s string) (Pair, error) {
	i := strings.IndexAny(s, pairSeparators)
	if i < 0 || strings.ContainsAny(s[i+1:], pairSeparators) {
		return Pair{}, fmt.Errorf("%w: %q (expected A/B)", ErrInvalidPair, s)
	}
	p := Pair{A: strings.TrimSpace(s[:i]), B: strings.TrimSpace(s[i+1:])}
	if p.A == "" || p.B == "" {
		return Pair{}, fmt.Errorf("%w: %q (expected A/B)", ErrInvalidPair, s)
	}
	return p, nil
}

// Reverse swaps the legs.
func (p Pair) Reverse() Pair {
	return Pair{A: p.B, B: p.A}
}

func (p Pair) String() string {
	return p.A + "/" + p.B
}

// Validate checks that both legs are distinct columns of the table.
func (p Pair) Validate(t *PriceTable) error {
	if p.A == "" || p.B == "" || p.A == p.B {
		return fmt.Errorf("%w: %s", ErrInvalidPair, p)
	}
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrUnknownColumn)
	}
	if !t.Has(p.A) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, p.A)
	}
	if !t.Has(p.B) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, p.B)
	}
	return nil
}

// AllPairs enumerates every unordered pair of symbols in input order.
func AllPairs(symbols []string) []Pair {
	pairs := make([]Pair, 0, len(symbols)*(len(symbols)-1)/2)
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			pairs = append(pairs, Pair{A: symbols[i], B: symbols[j]})
		}
	}
	return pairs
}
