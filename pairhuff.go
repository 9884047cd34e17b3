// Package pairhuff implements a Huffman codec over 2-byte symbols.
//
// The input buffer is split into non-overlapping pairs of bytes, a prefix code
// is built from the pair frequencies, and the result is stored in a container
// holding both the serialized code tree and the packed bitstream:
//
//	tree_size = uint32 big-endian
//	tree      = tree_size bytes, pre-order (0x00 internal, 0x01 s0 s1 leaf)
//	stream    = padding byte (0..7), codewords MSB-first, padding zero bits
//
// A container decodes without any external dictionary.
package pairhuff

import (
	"errors"
	"fmt"
)

const (
	symbolWidth = 2     // symbolWidth is the number of input bytes per symbol.
	maxSymbols  = 65536 // maxSymbols is the number of distinct 2-byte values.

	// maxTreeBytes is the size of the largest legal serialized tree:
	// 3 bytes per leaf and one byte per internal node.
	maxTreeBytes = maxSymbols*(1+symbolWidth) + (maxSymbols - 1)

	// maxCodewordBits bounds codeword length. Reaching it needs a Fibonacci
	// shaped frequency table with more than 10^13 symbols.
	maxCodewordBits = 64
)

var (
	// ErrInvalidInput indicates input that cannot be encoded, such as a
	// buffer without a single complete symbol.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCorruptContainer indicates a malformed tree section or a bitstream
	// that does not decode against its tree.
	ErrCorruptContainer = errors.New("corrupt container")
	// ErrUnsupportedPadding indicates a padding count outside 0..7.
	ErrUnsupportedPadding = errors.New("unsupported padding")
)

// Config holds configuration for the codec.
type Config struct {
	MaxTreeBytes int  // Largest tree section accepted on decode (0 = largest legal tree)
	StrictLength bool // Reject odd-length input instead of dropping the trailing byte
}

// Option is a functional option for configuring the codec.
type Option func(*Config)

// WithMaxTreeBytes caps the declared tree size accepted when reading a
// container. Values outside (0, largest legal tree] fall back to the default.
func WithMaxTreeBytes(n int) Option {
	return func(c *Config) {
		c.MaxTreeBytes = n
	}
}

// WithStrictLength makes Encode fail with ErrInvalidInput on odd-length input.
// By default the trailing byte is dropped.
func WithStrictLength() Option {
	return func(c *Config) {
		c.StrictLength = true
	}
}

func resolveMaxTreeBytes(cfg Config) int {
	if cfg.MaxTreeBytes <= 0 || cfg.MaxTreeBytes > maxTreeBytes {
		return maxTreeBytes
	}
	return cfg.MaxTreeBytes
}

// EncodeStats describes a single Encode call.
type EncodeStats struct {
	InputBytes          int
	Symbols             int
	DistinctSymbols     int
	TreeBytes           int
	PayloadBytes        int
	Padding             uint8
	DroppedTrailingByte bool
}

// Encoder builds a fresh code for every input and packs it into a Container.
// An Encoder holds no state between calls and is safe for concurrent use.
type Encoder struct {
	config Config
}

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Encoder{config: cfg}
}

// Encode compresses data into a Container.
func (e *Encoder) Encode(data []byte) (*Container, error) {
	c, _, err := e.EncodeWithStats(data)
	return c, err
}

// EncodeWithStats compresses data and reports what was produced.
func (e *Encoder) EncodeWithStats(data []byte) (*Container, EncodeStats, error) {
	stats := EncodeStats{
		InputBytes:          len(data),
		Symbols:             SymbolCount(data),
		DroppedTrailingByte: len(data)%symbolWidth != 0,
	}
	if stats.DroppedTrailingByte && e.config.StrictLength {
		return nil, EncodeStats{}, fmt.Errorf("%w: odd input length %d", ErrInvalidInput, len(data))
	}

	freq := CountFrequencies(data)
	root, err := BuildTree(freq)
	if err != nil {
		return nil, EncodeStats{}, err
	}
	codes, err := GenerateCodes(root)
	if err != nil {
		return nil, EncodeStats{}, err
	}
	payload, padding, err := encodeBits(data, codes)
	if err != nil {
		return nil, EncodeStats{}, err
	}

	c := &Container{Tree: root, Payload: payload}
	stats.DistinctSymbols = freq.Len()
	stats.TreeBytes = treeSize(root)
	stats.PayloadBytes = len(payload)
	stats.Padding = padding
	return c, stats, nil
}

// Decode reverses Encode.
func (e *Encoder) Decode(c *Container) ([]byte, error) {
	if c == nil || c.Tree == nil {
		return nil, fmt.Errorf("%w: container has no tree", ErrCorruptContainer)
	}
	return decodeBits(c.Tree, c.Payload)
}

// Compress encodes data and returns the serialized container.
func (e *Encoder) Compress(data []byte) ([]byte, error) {
	c, err := e.Encode(data)
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

// Decompress parses a serialized container and decodes it.
func (e *Encoder) Decompress(b []byte) ([]byte, error) {
	c := &Container{}
	if err := c.unmarshal(b, resolveMaxTreeBytes(e.config)); err != nil {
		return nil, err
	}
	return e.Decode(c)
}

// Compress encodes data with the default configuration.
func Compress(data []byte) ([]byte, error) {
	return NewEncoder().Compress(data)
}

// Decompress decodes a serialized container with the default configuration.
func Decompress(b []byte) ([]byte, error) {
	return NewEncoder().Decompress(b)
}
