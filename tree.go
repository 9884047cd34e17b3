package pairhuff

import (
	"container/heap"
	"fmt"
)

// NodeKind tags a Node as a leaf or an internal node.
type NodeKind uint8

const (
	LeafNode NodeKind = iota + 1
	InternalNode
)

func (k NodeKind) String() string {
	switch k {
	case LeafNode:
		return "leaf"
	case InternalNode:
		return "internal"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Node is a Huffman tree node. A leaf holds a Symbol; an internal node owns
// exactly two children. Nodes are never shared between trees.
type Node struct {
	kind   NodeKind
	Symbol Symbol
	Left   *Node
	Right  *Node
}

// NewLeaf returns a leaf holding s.
func NewLeaf(s Symbol) *Node {
	return &Node{kind: LeafNode, Symbol: s}
}

// NewInternal returns an internal node owning left and right.
func NewInternal(left, right *Node) *Node {
	return &Node{kind: InternalNode, Left: left, Right: right}
}

// Kind reports whether n is a leaf or an internal node.
func (n *Node) Kind() NodeKind {
	return n.kind
}

// Equal reports whether n and o have the same shape and the same leaf
// symbols in the same positions.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case LeafNode:
		return n.Symbol == o.Symbol
	case InternalNode:
		return n.Left.Equal(o.Left) && n.Right.Equal(o.Right)
	default:
		return false
	}
}

// Leaves returns the number of leaves under n.
func (n *Node) Leaves() int {
	switch n.kind {
	case LeafNode:
		return 1
	case InternalNode:
		return n.Left.Leaves() + n.Right.Leaves()
	default:
		return 0
	}
}

// element pairs a subtree with its aggregate weight while the tree is built.
// seq orders elements of equal weight: leaves are numbered in first-occurrence
// order, merged nodes take the next number when they are created.
type element struct {
	weight uint64
	seq    int
	node   *Node
}

type elementQueue []element

func (q elementQueue) Len() int { return len(q) }
func (q elementQueue) Less(i, j int) bool {
	if q[i].weight != q[j].weight {
		return q[i].weight < q[j].weight
	}
	return q[i].seq < q[j].seq
}
func (q elementQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *elementQueue) Push(x interface{}) { *q = append(*q, x.(element)) }

func (q *elementQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// BuildTree builds a Huffman tree from freq.
//
// The two lightest elements are merged until one remains; the first one
// extracted becomes the left child. A table with a single symbol yields a
// leaf root.
func BuildTree(freq FrequencyTable) (*Node, error) {
	if freq.Len() == 0 {
		return nil, fmt.Errorf("%w: empty frequency table", ErrInvalidInput)
	}

	q := make(elementQueue, 0, freq.Len())
	seq := 0
	for _, s := range freq.order {
		q = append(q, element{weight: freq.counts[s], seq: seq, node: NewLeaf(s)})
		seq++
	}
	heap.Init(&q)

	for q.Len() > 1 {
		left := heap.Pop(&q).(element)
		right := heap.Pop(&q).(element)
		heap.Push(&q, element{
			weight: left.weight + right.weight,
			seq:    seq,
			node:   NewInternal(left.node, right.node),
		})
		seq++
	}
	return q[0].node, nil
}
