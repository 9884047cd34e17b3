package pairhuff

import "fmt"

const (
	flagInternal = byte(0)
	flagLeaf     = byte(1)
)

// treeSize returns the length of the serialized form of root.
func treeSize(root *Node) int {
	if root.Kind() == LeafNode {
		return 1 + symbolWidth
	}
	return 1 + treeSize(root.Left) + treeSize(root.Right)
}

// MarshalTree serializes root in pre-order. A leaf is written as 0x01
// followed by its two symbol bytes; an internal node is written as 0x00
// followed by its left and then its right subtree.
func MarshalTree(root *Node) []byte {
	return appendTree(make([]byte, 0, treeSize(root)), root)
}

func appendTree(dst []byte, n *Node) []byte {
	switch n.Kind() {
	case LeafNode:
		return append(dst, flagLeaf, n.Symbol[0], n.Symbol[1])
	default:
		dst = append(dst, flagInternal)
		dst = appendTree(dst, n.Left)
		return appendTree(dst, n.Right)
	}
}

// UnmarshalTree rebuilds a tree from exactly the bytes written by MarshalTree.
func UnmarshalTree(b []byte) (*Node, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty tree section", ErrCorruptContainer)
	}
	c := treeCursor{buf: b}
	root, err := c.node()
	if err != nil {
		return nil, err
	}
	if c.pos != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes after tree at offset %d", ErrCorruptContainer, len(b)-c.pos, c.pos)
	}
	return root, nil
}

type treeCursor struct {
	buf []byte
	pos int
}

func (c *treeCursor) node() (*Node, error) {
	if c.pos >= len(c.buf) {
		return nil, fmt.Errorf("%w: tree truncated at offset %d", ErrCorruptContainer, c.pos)
	}
	flag := c.buf[c.pos]
	c.pos++

	switch flag {
	case flagLeaf:
		if c.pos+symbolWidth > len(c.buf) {
			return nil, fmt.Errorf("%w: leaf symbol truncated at offset %d", ErrCorruptContainer, c.pos)
		}
		s := Symbol{c.buf[c.pos], c.buf[c.pos+1]}
		c.pos += symbolWidth
		return NewLeaf(s), nil
	case flagInternal:
		left, err := c.node()
		if err != nil {
			return nil, err
		}
		right, err := c.node()
		if err != nil {
			return nil, err
		}
		return NewInternal(left, right), nil
	default:
		return nil, fmt.Errorf("%w: unknown node flag 0x%02x at offset %d", ErrCorruptContainer, flag, c.pos-1)
	}
}
