package pairhuff

import (
	"fmt"
	"sort"
	"strings"
)

// Codeword is a variable-length bit string. The Len low bits of Bits hold the
// code, most significant bit first.
type Codeword struct {
	Bits uint64
	Len  uint8
}

func (c Codeword) String() string {
	var sb strings.Builder
	sb.Grow(int(c.Len))
	for i := int(c.Len) - 1; i >= 0; i-- {
		if c.Bits>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// HasPrefix reports whether p is a prefix of c.
func (c Codeword) HasPrefix(p Codeword) bool {
	if p.Len > c.Len {
		return false
	}
	return c.Bits>>(c.Len-p.Len) == p.Bits
}

// CodeTable maps every leaf symbol of a tree to its codeword.
type CodeTable map[Symbol]Codeword

// GenerateCodes walks root depth first, appending 0 on the way to a left
// child and 1 on the way to a right child. A leaf root gets the codeword "0".
func GenerateCodes(root *Node) (CodeTable, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalidInput)
	}
	codes := make(CodeTable)
	if root.Kind() == LeafNode {
		codes[root.Symbol] = Codeword{Bits: 0, Len: 1}
		return codes, nil
	}
	if err := walk(root, Codeword{}, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func walk(n *Node, acc Codeword, codes CodeTable) error {
	switch n.Kind() {
	case LeafNode:
		codes[n.Symbol] = acc
		return nil
	case InternalNode:
		if acc.Len == maxCodewordBits {
			return fmt.Errorf("%w: codeword longer than %d bits", ErrInvalidInput, maxCodewordBits)
		}
		if err := walk(n.Left, Codeword{Bits: acc.Bits << 1, Len: acc.Len + 1}, codes); err != nil {
			return err
		}
		return walk(n.Right, Codeword{Bits: acc.Bits<<1 | 1, Len: acc.Len + 1}, codes)
	default:
		return fmt.Errorf("%w: unknown node kind %v", ErrInvalidInput, n.Kind())
	}
}

// Len returns the number of codewords.
func (ct CodeTable) Len() int {
	return len(ct)
}

// Lookup returns the codeword for s.
func (ct CodeTable) Lookup(s Symbol) (Codeword, bool) {
	c, ok := ct[s]
	return c, ok
}

// IsPrefixFree reports whether no codeword is a prefix of another.
func (ct CodeTable) IsPrefixFree() bool {
	codes := make([]Codeword, 0, len(ct))
	for _, c := range ct {
		codes = append(codes, c)
	}
	// In lexicographic order a prefix sorts directly before the codes that
	// extend it, so comparing neighbours is enough.
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].String() < codes[j].String()
	})
	for i := 1; i < len(codes); i++ {
		if codes[i].HasPrefix(codes[i-1]) {
			return false
		}
	}
	return true
}

// BitLength returns the number of payload bits needed to encode freq with ct.
func (ct CodeTable) BitLength(freq FrequencyTable) uint64 {
	var n uint64
	for s, count := range freq.counts {
		n += count * uint64(ct[s].Len)
	}
	return n
}
