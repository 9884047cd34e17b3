package pairhuff

import (
	"bytes"
	"errors"
	"testing"
)

func TestPaddingFor(t *testing.T) {
	for bits := uint64(0); bits < 64; bits++ {
		p := paddingFor(bits)
		if p > 7 {
			t.Fatalf("paddingFor(%d) = %d", bits, p)
		}
		if (bits+uint64(p))%8 != 0 {
			t.Fatalf("paddingFor(%d) = %d does not align", bits, p)
		}
	}
	if paddingFor(16) != 0 {
		t.Fatalf("aligned length must not be padded")
	}
}

func TestEncodeBitsLayout(t *testing.T) {
	root := NewInternal(NewLeaf(sym("aa")), NewInternal(NewLeaf(sym("bb")), NewLeaf(sym("cc"))))
	codes, err := GenerateCodes(root)
	if err != nil {
		t.Fatalf("GenerateCodes failed: %v", err)
	}
	// aa cc bb cc aa -> 0 11 10 11 0 = 8 bits
	stream, padding, err := encodeBits([]byte("aaccbbccaa"), codes)
	if err != nil {
		t.Fatalf("encodeBits failed: %v", err)
	}
	if padding != 0 {
		t.Fatalf("padding: got %d want 0", padding)
	}
	if want := []byte{0x00, 0b01110110}; !bytes.Equal(stream, want) {
		t.Fatalf("got %08b want %08b", stream, want)
	}

	out, err := decodeBits(root, stream)
	if err != nil {
		t.Fatalf("decodeBits failed: %v", err)
	}
	if string(out) != "aaccbbccaa" {
		t.Fatalf("got %q", out)
	}
}

func TestEncodeBitsUnknownSymbol(t *testing.T) {
	codes := CodeTable{sym("aa"): {Bits: 0, Len: 1}}
	if _, _, err := encodeBits([]byte("aabb"), codes); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeBitsErrors(t *testing.T) {
	tree := NewInternal(NewLeaf(sym("aa")), NewInternal(NewLeaf(sym("bb")), NewLeaf(sym("cc"))))
	leaf := NewLeaf(sym("aa"))
	cases := []struct {
		name   string
		root   *Node
		stream []byte
		want   error
	}{
		{"empty stream", tree, nil, ErrCorruptContainer},
		{"padding eight", tree, []byte{8, 0}, ErrUnsupportedPadding},
		{"padding beyond payload", tree, []byte{3}, ErrCorruptContainer},
		// 0 10 10 1 + pad 2: the last "1" starts a codeword that never ends.
		{"ends inside codeword", tree, []byte{2, 0b01010100}, ErrCorruptContainer},
		{"one bit on leaf root", leaf, []byte{0, 0b00000001}, ErrCorruptContainer},
		{"dead end", NewInternal(NewLeaf(sym("aa")), nil), []byte{7, 0b10000000}, ErrCorruptContainer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := decodeBits(tc.root, tc.stream)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if out != nil {
				t.Fatalf("partial output returned: %q", out)
			}
		})
	}
}

func TestDecodeBitsPaddingOnlyStream(t *testing.T) {
	out, err := decodeBits(NewLeaf(sym("aa")), []byte{0})
	if err != nil {
		t.Fatalf("decodeBits failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no output, got %q", out)
	}
}
