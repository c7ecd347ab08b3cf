package doctree

import (
	"fmt"
	"unicode/utf8"
)

// SelectionKind distinguishes the three selection shapes.
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionText
	SelectionNode
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionNone:
		return "none"
	case SelectionText:
		return "text"
	case SelectionNode:
		return "node"
	}
	return fmt.Sprintf("SelectionKind(%d)", int(k))
}

// Position addresses a character boundary inside a textblock. Offset counts
// runes from the start of the block's text.
type Position struct {
	Block  string `json:"block"`
	Offset int    `json:"offset"`
}

// Selection is either empty, a text range, or one floating node.
type Selection struct {
	Kind SelectionKind
	From Position
	To   Position
	Node string
}

// TextSelection builds a text range selection.
func TextSelection(from, to Position) Selection {
	return Selection{Kind: SelectionText, From: from, To: to}
}

// NodeSelection selects a single floating node.
func NodeSelection(id string) Selection {
	return Selection{Kind: SelectionNode, Node: id}
}

func (s Selection) IsText() bool { return s.Kind == SelectionText }
func (s Selection) IsNode() bool { return s.Kind == SelectionNode }

// BlockRange is the part of one textblock covered by a text selection.
// Start and End are rune offsets, Start <= End.
type BlockRange struct {
	Block *Node
	Start int
	End   int
}

// Empty reports whether the range covers no characters.
func (r BlockRange) Empty() bool { return r.Start >= r.End }

// ResolveRange maps a text selection onto the textblocks it spans, in
// document order. A collapsed selection yields one empty range for the
// block holding the caret.
func (t *Tree) ResolveRange(sel Selection) ([]BlockRange, error) {
	if !sel.IsText() {
		return nil, nil
	}
	blocks := t.Textblocks()
	fromIdx, toIdx := -1, -1
	for i, b := range blocks {
		if b.ID == sel.From.Block {
			fromIdx = i
		}
		if b.ID == sel.To.Block {
			toIdx = i
		}
	}
	if fromIdx < 0 {
		return nil, fmt.Errorf("%w: textblock %s", ErrNotFound, sel.From.Block)
	}
	if toIdx < 0 {
		return nil, fmt.Errorf("%w: textblock %s", ErrNotFound, sel.To.Block)
	}
	from, to := sel.From, sel.To
	if fromIdx > toIdx || (fromIdx == toIdx && from.Offset > to.Offset) {
		fromIdx, toIdx = toIdx, fromIdx
		from, to = to, from
	}

	out := make([]BlockRange, 0, toIdx-fromIdx+1)
	for i := fromIdx; i <= toIdx; i++ {
		b := blocks[i]
		size := utf8.RuneCountInString(b.PlainText())
		start, end := 0, size
		if i == fromIdx {
			start = clamp(from.Offset, 0, size)
		}
		if i == toIdx {
			end = clamp(to.Offset, 0, size)
		}
		if end < start {
			end = start
		}
		out = append(out, BlockRange{Block: b, Start: start, End: end})
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
