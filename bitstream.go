package pairhuff

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// paddingFor returns the number of zero bits that round n up to a whole byte.
func paddingFor(n uint64) uint8 {
	return uint8((8 - n%8) % 8)
}

// encodeBits packs the codewords of every symbol in data, in order.
//
// The first byte of the result holds the padding count; the codewords follow
// MSB-first and are closed with padding zero bits.
func encodeBits(data []byte, codes CodeTable) ([]byte, uint8, error) {
	var payloadBits uint64
	var missing *Symbol
	forEachSymbol(data, func(s Symbol) {
		c, ok := codes[s]
		if !ok && missing == nil {
			missing = &s
		}
		payloadBits += uint64(c.Len)
	})
	if missing != nil {
		return nil, 0, fmt.Errorf("%w: symbol %v has no codeword", ErrInvalidInput, *missing)
	}

	padding := paddingFor(payloadBits)
	if padding > 7 {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedPadding, padding)
	}

	var buf bytes.Buffer
	buf.Grow(1 + int((payloadBits+7)/8))
	w := bitio.NewWriter(&buf)
	if err := w.WriteByte(padding); err != nil {
		return nil, 0, err
	}

	var werr error
	forEachSymbol(data, func(s Symbol) {
		if werr != nil {
			return
		}
		c := codes[s]
		werr = w.WriteBits(c.Bits, c.Len)
	})
	if werr != nil {
		return nil, 0, werr
	}
	if padding > 0 {
		if err := w.WriteBits(0, padding); err != nil {
			return nil, 0, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), padding, nil
}

// decodeBits walks root against stream, emitting the symbol bytes of every
// leaf reached. A stream that ends inside a codeword is corrupt.
func decodeBits(root *Node, stream []byte) ([]byte, error) {
	if len(stream) == 0 {
		return nil, fmt.Errorf("%w: bitstream has no padding byte", ErrCorruptContainer)
	}
	padding := stream[0]
	if padding > 7 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPadding, padding)
	}
	available := uint64(len(stream)-1) * 8
	if uint64(padding) > available {
		return nil, fmt.Errorf("%w: padding %d exceeds %d payload bits", ErrCorruptContainer, padding, available)
	}
	payloadBits := available - uint64(padding)

	r := bitio.NewReader(bytes.NewReader(stream[1:]))
	out := make([]byte, 0, 2*len(stream))

	if root.Kind() == LeafNode {
		for i := uint64(0); i < payloadBits; i++ {
			bit, err := r.ReadBool()
			if err != nil {
				return nil, fmt.Errorf("%w: read bit %d: %v", ErrCorruptContainer, i, err)
			}
			if bit {
				return nil, fmt.Errorf("%w: bit %d is not a codeword of a single-symbol tree", ErrCorruptContainer, i)
			}
			out = append(out, root.Symbol[:]...)
		}
		return out, nil
	}

	node := root
	for i := uint64(0); i < payloadBits; i++ {
		bit, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%w: read bit %d: %v", ErrCorruptContainer, i, err)
		}
		if bit {
			node = node.Right
		} else {
			node = node.Left
		}
		if node == nil {
			return nil, fmt.Errorf("%w: dead end at bit %d", ErrCorruptContainer, i)
		}
		if node.Kind() == LeafNode {
			out = append(out, node.Symbol[:]...)
			node = root
		}
	}
	if node != root {
		return nil, fmt.Errorf("%w: bitstream ends inside a codeword", ErrCorruptContainer)
	}
	return out, nil
}
