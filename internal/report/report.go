// Package report verifies encode/decode round trips and summarises the
// result the way the command line tool prints it.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/seiflotfy/pairhuff"
)

// Mode selects how an input file is turned into bytes.
type Mode int

const (
	ModeBinary Mode = iota
	ModeText
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "binary"
}

// ModeFor picks text mode for .txt files and binary mode for everything else.
func ModeFor(path string) Mode {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return ModeText
	}
	return ModeBinary
}

// ReadInput reads path in the mode chosen by ModeFor. Text files must be
// valid UTF-8.
func ReadInput(path string) ([]byte, Mode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ModeBinary, err
	}
	mode := ModeFor(path)
	if mode == ModeText && !utf8.Valid(data) {
		return nil, mode, fmt.Errorf("%s: not valid UTF-8 text", path)
	}
	return data, mode, nil
}

// Digest returns the hex xxhash64 of b.
func Digest(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// Report summarises one verified round trip.
type Report struct {
	OriginalBytes   int
	CompressedBytes int
	Ratio           float64
	OriginalDigest  string
	DecodedDigest   string
	DigestMatch     bool
	Stats           pairhuff.EncodeStats
}

// Verify encodes data with enc, decodes the serialized container again and
// compares digests.
func Verify(enc *pairhuff.Encoder, data []byte) (Report, error) {
	c, stats, err := enc.EncodeWithStats(data)
	if err != nil {
		return Report{}, err
	}
	packed, err := c.MarshalBinary()
	if err != nil {
		return Report{}, err
	}
	decoded, err := enc.Decompress(packed)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		OriginalBytes:   len(data),
		CompressedBytes: len(packed),
		OriginalDigest:  Digest(data),
		DecodedDigest:   Digest(decoded),
		Stats:           stats,
	}
	if r.CompressedBytes > 0 {
		r.Ratio = float64(r.OriginalBytes) / float64(r.CompressedBytes)
	}
	r.DigestMatch = r.OriginalDigest == r.DecodedDigest
	if !r.DigestMatch && stats.DroppedTrailingByte {
		// The trailing byte of odd-length input is never encoded.
		r.DigestMatch = bytes.Equal(decoded, data[:len(data)-1])
	}
	return r, nil
}

// WriteTo prints the report in a human readable form.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"Original size: %d bytes\nCompressed size: %d bytes\nCompression ratio: %.2f\nDigest match: %t\n",
		r.OriginalBytes, r.CompressedBytes, r.Ratio, r.DigestMatch)
	if err != nil || !r.Stats.DroppedTrailingByte {
		return int64(n), err
	}
	m, err := fmt.Fprintf(w, "Note: odd input length, trailing byte not encoded\n")
	return int64(n + m), err
}
