package pairhuff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// treeSizeLen is the width of the big-endian tree size field.
const treeSizeLen = 4

// Container is the persisted form of an encoded buffer.
//
// Wire format:
//
//	tree_size = uint32 big-endian
//	tree      = tree_size bytes (see MarshalTree)
//	stream    = all remaining bytes; the first one is the padding count
//
// The stream is not length-prefixed, so a container always extends to the end
// of its input.
type Container struct {
	Tree    *Node
	Payload []byte
}

// Size returns the serialized size of the container in bytes.
func (c *Container) Size() int {
	return treeSizeLen + treeSize(c.Tree) + len(c.Payload)
}

func validateTree(n *Node, depth int) error {
	if n == nil {
		return fmt.Errorf("missing node at depth %d", depth)
	}
	switch n.Kind() {
	case LeafNode:
		return nil
	case InternalNode:
		if err := validateTree(n.Left, depth+1); err != nil {
			return err
		}
		return validateTree(n.Right, depth+1)
	default:
		return fmt.Errorf("unknown node kind %v at depth %d", n.Kind(), depth)
	}
}

func validateContainer(c *Container) error {
	if c.Tree == nil {
		return fmt.Errorf("container has no tree")
	}
	if err := validateTree(c.Tree, 0); err != nil {
		return err
	}
	if len(c.Payload) == 0 {
		return fmt.Errorf("payload has no padding byte")
	}
	if c.Payload[0] > 7 {
		return fmt.Errorf("%w: %d", ErrUnsupportedPadding, c.Payload[0])
	}
	if size := treeSize(c.Tree); size > maxTreeBytes {
		return fmt.Errorf("tree section too large: %d", size)
	}
	return nil
}

// WriteTo serializes the container to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	if err := validateContainer(c); err != nil {
		return 0, fmt.Errorf("invalid container: %w", err)
	}
	return c.writeTo(w)
}

func (c *Container) writeTo(w io.Writer) (int64, error) {
	tree := MarshalTree(c.Tree)
	var header [treeSizeLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(tree)))

	var total int64
	for _, section := range [][]byte{header[:], tree, c.Payload} {
		n, err := w.Write(section)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if n != len(section) {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// MarshalBinary returns the serialized container.
func (c *Container) MarshalBinary() ([]byte, error) {
	if err := validateContainer(c); err != nil {
		return nil, fmt.Errorf("invalid container: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(c.Size())
	if _, err := c.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFrom deserializes a container from r, consuming r to EOF.
func (c *Container) ReadFrom(r io.Reader) (int64, error) {
	return c.readFrom(r, maxTreeBytes)
}

// UnmarshalBinary parses a serialized container.
func (c *Container) UnmarshalBinary(b []byte) error {
	return c.unmarshal(b, maxTreeBytes)
}

func (c *Container) unmarshal(b []byte, maxTree int) error {
	_, err := c.readFrom(bytes.NewReader(b), maxTree)
	return err
}

// readError classifies a failed read: running out of input is corruption,
// anything else is passed through.
func readError(section string, offset int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s truncated at offset %d", ErrCorruptContainer, section, offset)
	}
	return fmt.Errorf("read %s at offset %d: %w", section, offset, err)
}

func (c *Container) readFrom(r io.Reader, maxTree int) (int64, error) {
	var total int64

	var header [treeSizeLen]byte
	n, err := io.ReadFull(r, header[:])
	total += int64(n)
	if err != nil {
		return total, readError("tree size", 0, err)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size == 0 || uint64(size) > uint64(maxTree) {
		return total, fmt.Errorf("%w: invalid tree size at offset 0: %d", ErrCorruptContainer, size)
	}

	treeOffset := total
	tree := make([]byte, int(size))
	n, err = io.ReadFull(r, tree)
	total += int64(n)
	if err != nil {
		return total, readError("tree section", treeOffset, err)
	}
	root, err := UnmarshalTree(tree)
	if err != nil {
		return total, fmt.Errorf("decode tree section at offset %d: %w", treeOffset, err)
	}

	streamOffset := total
	payload, err := io.ReadAll(r)
	total += int64(len(payload))
	if err != nil {
		return total, readError("bitstream", streamOffset, err)
	}
	if len(payload) == 0 {
		return total, fmt.Errorf("%w: bitstream missing at offset %d", ErrCorruptContainer, streamOffset)
	}
	if payload[0] > 7 {
		return total, fmt.Errorf("%w: padding %d at offset %d", ErrUnsupportedPadding, payload[0], streamOffset)
	}

	c.Tree = root
	c.Payload = payload
	return total, nil
}
