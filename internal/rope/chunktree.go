// Package rope implements a persistent ternary tree over byte chunks with
// explicit sparse (gap) regions. Every mutation returns a new root; existing
// roots keep reading the bytes they saw when they were built. Subtrees that
// an operation does not touch are shared between old and new roots rather
// than copied — Go's garbage collector keeps them alive for as long as any
// root still points at them, which is the GC-backed equivalent of the
// reference counting the teacher's source language uses for this (see
// DESIGN.md).
package rope

import "fmt"

// DefaultChunkSize is N in the spec: the max byte length of a leaf.
const DefaultChunkSize = 96

type kind uint8

const (
	kindLeaf kind = iota
	kindGap
	kindInternal
)

// Node is a ChunkTree root or subtree. Nodes are immutable once built.
type Node struct {
	kind  kind
	size  int64 // cached total length of the subtree
	leaf  []byte
	left  *Node
	mid   *Node
	right *Node
}

// Len returns the byte length of the subtree in O(1).
func (n *Node) Len() int64 {
	if n == nil {
		return 0
	}
	return n.size
}

func makeLeaf(b []byte) *Node {
	return &Node{kind: kindLeaf, leaf: b, size: int64(len(b))}
}

func makeGap(size int64) *Node {
	if size < 0 {
		size = 0
	}
	return &Node{kind: kindGap, size: size}
}

func makeInternal(left, mid, right *Node) *Node {
	return &Node{
		kind:  kindInternal,
		left:  left,
		mid:   mid,
		right: right,
		size:  left.Len() + mid.Len() + right.Len(),
	}
}

// Empty is the zero-length tree.
var Empty = makeLeaf(nil)

// New returns an empty tree.
func New() *Node {
	return Empty
}

// FromSlice builds a balanced tree over data by recursive three-way split,
// keeping every leaf at or below DefaultChunkSize bytes.
func FromSlice(data []byte) *Node {
	return fromSliceChunked(data, DefaultChunkSize)
}

func fromSliceChunked(data []byte, chunkSize int) *Node {
	if chunkSize <= 0 {
		panic("rope: chunk size must be > 0")
	}
	if len(data) <= chunkSize {
		return makeLeaf(data)
	}
	third := len(data) / 3
	if third == 0 {
		third = 1
	}
	// Split into three roughly-equal parts so the tree stays ternary and
	// shallow, recursing only on parts still too large for a single leaf.
	a, b, c := data[:third], data[third:2*third], data[2*third:]
	return makeInternal(
		fromSliceChunked(a, chunkSize),
		fromSliceChunked(b, chunkSize),
		fromSliceChunked(c, chunkSize),
	)
}

// Insert returns a new root with data inserted at pos. pos may exceed Len(),
// in which case a Gap covering the difference is implicitly prepended
// before the inserted data (sparse semantics, spec.md §3.1).
func (n *Node) Insert(pos int64, data []byte) *Node {
	if pos < 0 {
		pos = 0
	}
	if len(data) == 0 {
		return n
	}
	length := n.Len()
	if pos > length {
		gap := makeGap(pos - length)
		return makeInternal(n, gap, fromSliceChunked(data, DefaultChunkSize))
	}
	return insertAt(n, pos, data)
}

func insertAt(n *Node, pos int64, data []byte) *Node {
	switch n.kind {
	case kindGap:
		g := n.size
		left := makeGap(pos)
		right := makeGap(g - pos)
		return makeInternal(left, fromSliceChunked(data, DefaultChunkSize), right)
	case kindLeaf:
		left := makeLeaf(append([]byte(nil), n.leaf[:pos]...))
		right := makeLeaf(append([]byte(nil), n.leaf[pos:]...))
		return makeInternal(left, fromSliceChunked(data, DefaultChunkSize), right)
	case kindInternal:
		leftLen := n.left.Len()
		midLen := n.mid.Len()
		switch {
		case pos <= leftLen:
			return makeInternal(insertAt(n.left, pos, data), n.mid, n.right)
		case pos <= leftLen+midLen:
			return makeInternal(n.left, insertAt(n.mid, pos-leftLen, data), n.right)
		default:
			return makeInternal(n.left, n.mid, insertAt(n.right, pos-leftLen-midLen, data))
		}
	}
	panic(fmt.Sprintf("rope: unknown node kind %d", n.kind))
}

// Remove returns a new root with [start,end) removed. Indices past Len()
// are clamped; a range entirely past Len() is a no-op.
func (n *Node) Remove(start, end int64) *Node {
	length := n.Len()
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start >= end {
		return n
	}
	return removeRange(n, start, end)
}

func removeRange(n *Node, start, end int64) *Node {
	if start <= 0 && end >= n.Len() {
		return makeGap(0)
	}
	switch n.kind {
	case kindGap:
		kept := n.size - (end - start)
		return makeGap(kept)
	case kindLeaf:
		out := make([]byte, 0, n.size-(end-start))
		out = append(out, n.leaf[:start]...)
		out = append(out, n.leaf[end:]...)
		return makeLeaf(out)
	case kindInternal:
		leftLen := n.left.Len()
		midLen := n.mid.Len()
		rightStart := leftLen + midLen

		newLeft := n.left
		if start < leftLen {
			newLeft = removeRange(n.left, start, min64(end, leftLen))
		}
		newMid := n.mid
		if end > leftLen && start < rightStart {
			newMid = removeRange(n.mid, max64(0, start-leftLen), min64(midLen, end-leftLen))
		}
		newRight := n.right
		if end > rightStart {
			newRight = removeRange(n.right, max64(0, start-rightStart), end-rightStart)
		}
		return makeInternal(newLeft, newMid, newRight)
	}
	panic(fmt.Sprintf("rope: unknown node kind %d", n.kind))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Piece is one element of a ChunkTree's flattened representation: either a
// Data piece (bytes present) or a Gap piece (size absent bytes).
type Piece struct {
	Data []byte
	Gap  int64 // > 0 only when Data == nil
}

// IsGap reports whether this piece is a gap rather than real data.
func (p Piece) IsGap() bool { return p.Data == nil }

// Iter returns the depth-first (left, mid, right) sequence of pieces,
// suppressing empty leaves and zero-length gaps.
func (n *Node) Iter() []Piece {
	var out []Piece
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil || n.size == 0 {
			return
		}
		switch n.kind {
		case kindLeaf:
			if len(n.leaf) > 0 {
				out = append(out, Piece{Data: n.leaf})
			}
		case kindGap:
			if n.size > 0 {
				out = append(out, Piece{Gap: n.size})
			}
		case kindInternal:
			walk(n.left)
			walk(n.mid)
			walk(n.right)
		}
	}
	walk(n)
	return out
}

// CollectBytes materializes the full tree, substituting filler for every
// gap byte.
func (n *Node) CollectBytes(filler byte) []byte {
	out := make([]byte, 0, n.Len())
	for _, p := range n.Iter() {
		if p.IsGap() {
			for i := int64(0); i < p.Gap; i++ {
				out = append(out, filler)
			}
		} else {
			out = append(out, p.Data...)
		}
	}
	return out
}

// Slice materializes the byte range [start,end), clamped to Len().
func (n *Node) Slice(start, end int64, filler byte) []byte {
	length := n.Len()
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start >= end {
		return nil
	}
	// A plain, correctness-first implementation: materialize the whole
	// subtree's pieces and cut the window. Good enough for the editor's
	// viewport-sized reads; a hot path would walk only the overlapping
	// children instead of collecting everything.
	out := make([]byte, 0, end-start)
	var pos int64
	for _, p := range n.Iter() {
		var plen int64
		if p.IsGap() {
			plen = p.Gap
		} else {
			plen = int64(len(p.Data))
		}
		pieceStart := pos
		pieceEnd := pos + plen
		pos = pieceEnd
		if pieceEnd <= start || pieceStart >= end {
			continue
		}
		lo := max64(0, start-pieceStart)
		hi := min64(plen, end-pieceStart)
		if p.IsGap() {
			for i := lo; i < hi; i++ {
				out = append(out, filler)
			}
		} else {
			out = append(out, p.Data[lo:hi]...)
		}
	}
	return out
}
