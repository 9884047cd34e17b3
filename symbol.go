package pairhuff

import "fmt"

// Symbol is a 2-byte unit taken verbatim from the input.
type Symbol [symbolWidth]byte

func (s Symbol) String() string {
	return fmt.Sprintf("%02x%02x", s[0], s[1])
}

// FrequencyTable counts symbol occurrences and remembers the order in which
// symbols were first seen. It is not modified after CountFrequencies returns.
type FrequencyTable struct {
	counts map[Symbol]uint64
	order  []Symbol
}

// CountFrequencies partitions data into non-overlapping symbols starting at
// offset 0 and counts them. An odd trailing byte is not counted.
func CountFrequencies(data []byte) FrequencyTable {
	ft := FrequencyTable{counts: make(map[Symbol]uint64)}
	forEachSymbol(data, func(s Symbol) {
		if _, ok := ft.counts[s]; !ok {
			ft.order = append(ft.order, s)
		}
		ft.counts[s]++
	})
	return ft
}

// Len returns the number of distinct symbols.
func (ft FrequencyTable) Len() int {
	return len(ft.order)
}

// Count returns the number of occurrences of s.
func (ft FrequencyTable) Count(s Symbol) uint64 {
	return ft.counts[s]
}

// Total returns the number of symbols counted.
func (ft FrequencyTable) Total() uint64 {
	var n uint64
	for _, c := range ft.counts {
		n += c
	}
	return n
}

// Symbols returns the distinct symbols in first-occurrence order.
func (ft FrequencyTable) Symbols() []Symbol {
	return append([]Symbol(nil), ft.order...)
}

// SymbolCount returns the number of complete symbols in data.
func SymbolCount(data []byte) int {
	return len(data) / symbolWidth
}

// forEachSymbol calls fn for every complete symbol in data, in order.
func forEachSymbol(data []byte, fn func(Symbol)) {
	for i := 0; i+symbolWidth <= len(data); i += symbolWidth {
		fn(Symbol{data[i], data[i+1]})
	}
}
