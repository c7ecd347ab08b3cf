// Package format applies toolbar formatting commands to the text
// selection of a document.
package format

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

var ErrUnknownCommand = errors.New("unknown command")

// Mark is an inline style a run can carry.
type Mark string

const (
	MarkBold      Mark = "bold"
	MarkItalic    Mark = "italic"
	MarkUnderline Mark = "underline"
	MarkColor     Mark = "color"
)

// State exposes what the commands need from the editor.
type State interface {
	Selection() doctree.Selection
	GestureActive() bool
}

// Commands binds the formatting operations to one document.
type Commands struct {
	tree  *doctree.Tree
	state State
}

func New(tree *doctree.Tree, state State) *Commands {
	return &Commands{tree: tree, state: state}
}

// ranges resolves the current text selection. ok is false when commands
// must not run.
func (c *Commands) ranges() ([]doctree.BlockRange, bool) {
	if c.state.GestureActive() {
		return nil, false
	}
	sel := c.state.Selection()
	if !sel.IsText() {
		return nil, false
	}
	ranges, err := c.tree.ResolveRange(sel)
	if err != nil || len(ranges) == 0 {
		return nil, false
	}
	return ranges, true
}

func (c *Commands) ToggleBold() bool      { return c.toggle(MarkBold) }
func (c *Commands) ToggleItalic() bool    { return c.toggle(MarkItalic) }
func (c *Commands) ToggleUnderline() bool { return c.toggle(MarkUnderline) }

func hasMark(st doctree.Style, m Mark) bool {
	switch m {
	case MarkBold:
		return st.Bold
	case MarkItalic:
		return st.Italic
	case MarkUnderline:
		return st.Underline
	case MarkColor:
		return st.Color != ""
	}
	return false
}

func setMark(st *doctree.Style, m Mark, on bool) {
	switch m {
	case MarkBold:
		st.Bold = on
	case MarkItalic:
		st.Italic = on
	case MarkUnderline:
		st.Underline = on
	}
}

func (c *Commands) toggle(m Mark) bool {
	ranges, ok := c.ranges()
	if !ok {
		return false
	}
	ranges = nonEmpty(ranges)
	if len(ranges) == 0 {
		return false
	}
	all := true
	for _, r := range ranges {
		eachRun(r.Block.Children, r.Start, r.End, func(run *doctree.Node) {
			if !hasMark(run.Style(), m) {
				all = false
			}
		})
	}
	for _, r := range ranges {
		c.restyle(r, func(st *doctree.Style) { setMark(st, m, !all) })
	}
	return true
}

// SetColor colors the selected text. An empty color removes it.
func (c *Commands) SetColor(color string) bool {
	color = strings.TrimSpace(color)
	if color != "" && !doctree.ValidColor(color) {
		return false
	}
	ranges, ok := c.ranges()
	if !ok {
		return false
	}
	ranges = nonEmpty(ranges)
	if len(ranges) == 0 {
		return false
	}
	for _, r := range ranges {
		c.restyle(r, func(st *doctree.Style) { st.Color = color })
	}
	return true
}

// IsActive reports whether every selected character carries m. For a
// collapsed selection the character before the caret decides.
func (c *Commands) IsActive(m Mark) bool {
	ranges, ok := c.ranges()
	if !ok {
		return false
	}
	if len(ranges) == 1 && ranges[0].Empty() {
		r := ranges[0]
		at := r.Start - 1
		if at < 0 {
			at = 0
		}
		active := false
		eachRun(r.Block.Children, at, at+1, func(run *doctree.Node) {
			active = hasMark(run.Style(), m)
		})
		return active
	}
	ranges = nonEmpty(ranges)
	if len(ranges) == 0 {
		return false
	}
	for _, r := range ranges {
		all := true
		eachRun(r.Block.Children, r.Start, r.End, func(run *doctree.Node) {
			if !hasMark(run.Style(), m) {
				all = false
			}
		})
		if !all {
			return false
		}
	}
	return true
}

// restyle splits the block's runs at the range bounds, applies fn to the
// runs inside and merges neighbours that end up with the same style.
func (c *Commands) restyle(r doctree.BlockRange, fn func(*doctree.Style)) {
	runs := splitAt(r.Block.Children, r.Start)
	runs = splitAt(runs, r.End)
	eachRun(runs, r.Start, r.End, func(run *doctree.Node) {
		st := run.Style()
		fn(&st)
		run.Attrs = st.Attrs()
		if len(run.Attrs) == 0 {
			run.Attrs = nil
		}
	})
	// Children of a textblock are always text runs.
	_ = c.tree.ReplaceChildren(r.Block.ID, merge(runs))
}

func nonEmpty(ranges []doctree.BlockRange) []doctree.BlockRange {
	out := ranges[:0:0]
	for _, r := range ranges {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// eachRun calls fn for every non-empty run lying entirely inside
// [start, end). Callers split at the bounds first when they need exact
// coverage; otherwise runs crossing a bound are included.
func eachRun(runs []*doctree.Node, start, end int, fn func(*doctree.Node)) {
	pos := 0
	for _, run := range runs {
		n := utf8.RuneCountInString(run.Text)
		if n > 0 && pos < end && pos+n > start {
			fn(run)
		}
		pos += n
	}
}

// splitAt makes sure a run boundary exists at rune offset off.
func splitAt(runs []*doctree.Node, off int) []*doctree.Node {
	pos := 0
	for i, run := range runs {
		n := utf8.RuneCountInString(run.Text)
		if off > pos && off < pos+n {
			rs := []rune(run.Text)
			k := off - pos
			tail := doctree.NewStyledText(string(rs[k:]), run.Style())
			run.Text = string(rs[:k])
			out := make([]*doctree.Node, 0, len(runs)+1)
			out = append(out, runs[:i+1]...)
			out = append(out, tail)
			return append(out, runs[i+1:]...)
		}
		pos += n
	}
	return runs
}

func merge(runs []*doctree.Node) []*doctree.Node {
	out := make([]*doctree.Node, 0, len(runs))
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		if l := len(out); l > 0 && out[l-1].Style() == run.Style() {
			out[l-1].Text += run.Text
			continue
		}
		out = append(out, run)
	}
	return out
}

// blocks returns the distinct textblocks the selection touches.
func (c *Commands) blocks() ([]*doctree.Node, bool) {
	ranges, ok := c.ranges()
	if !ok {
		return nil, false
	}
	out := make([]*doctree.Node, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, r.Block)
	}
	return out, true
}

// keepAlign carries textAlign over when a block changes kind.
func keepAlign(a doctree.Attrs) doctree.Attrs {
	out := doctree.Attrs{}
	if v := a.String(doctree.AttrTextAlign); v != "" {
		out[doctree.AttrTextAlign] = v
	}
	return out
}

// SetHeading turns the selected paragraphs into headings of level. When
// they all are headings of that level already they revert to paragraphs.
// List items are left alone.
func (c *Commands) SetHeading(level int) bool {
	if level < 1 || level > 6 {
		return false
	}
	blocks, ok := c.blocks()
	if !ok {
		return false
	}
	var targets []*doctree.Node
	all := true
	for _, b := range blocks {
		if b.Kind == doctree.KindListItem {
			continue
		}
		targets = append(targets, b)
		if b.Kind != doctree.KindHeading || b.Level() != level {
			all = false
		}
	}
	if len(targets) == 0 {
		return false
	}
	for _, b := range targets {
		attrs := keepAlign(b.Attrs)
		kind := doctree.KindParagraph
		if !all {
			kind = doctree.KindHeading
			attrs[doctree.AttrLevel] = level
		}
		if err := c.tree.Retag(b.ID, kind, attrs); err != nil {
			return false
		}
	}
	return true
}

// ToggleBulletList wraps the selected blocks into a bullet list, or lifts
// them out when every selected block is a list item already.
func (c *Commands) ToggleBulletList() bool {
	blocks, ok := c.blocks()
	if !ok {
		return false
	}
	selected := make(map[string]bool, len(blocks))
	allItems := true
	for _, b := range blocks {
		selected[b.ID] = true
		if b.Kind != doctree.KindListItem {
			allItems = false
		}
	}
	root := c.tree.Root()
	var out []*doctree.Node
	if allItems {
		out = liftItems(root.Children, selected)
	} else {
		out = wrapBlocks(root.Children, selected)
	}
	return c.tree.ReplaceChildren(root.ID, out) == nil
}

func liftItems(children []*doctree.Node, selected map[string]bool) []*doctree.Node {
	var out []*doctree.Node
	for _, b := range children {
		if b.Kind != doctree.KindBulletList {
			out = append(out, b)
			continue
		}
		items := b.Children
		var chunk *doctree.Node
		reused := false
		for _, item := range items {
			if selected[item.ID] {
				chunk = nil
				out = append(out, &doctree.Node{
					ID:       item.ID,
					Kind:     doctree.KindParagraph,
					Attrs:    keepAlign(item.Attrs),
					Children: item.Children,
				})
				continue
			}
			if chunk == nil {
				if !reused {
					chunk = b
					chunk.Children = nil
					reused = true
				} else {
					chunk = doctree.NewBulletList()
				}
				out = append(out, chunk)
			}
			chunk.Children = append(chunk.Children, item)
		}
	}
	return out
}

func wrapBlocks(children []*doctree.Node, selected map[string]bool) []*doctree.Node {
	var out []*doctree.Node
	touched := false
	for _, b := range children {
		var last *doctree.Node
		if l := len(out); l > 0 && out[l-1].Kind == doctree.KindBulletList {
			last = out[l-1]
		}
		switch {
		case selected[b.ID] && (b.Kind == doctree.KindParagraph || b.Kind == doctree.KindHeading):
			item := &doctree.Node{ID: b.ID, Kind: doctree.KindListItem, Attrs: keepAlign(b.Attrs), Children: b.Children}
			if last != nil {
				last.Children = append(last.Children, item)
			} else {
				out = append(out, doctree.NewBulletList(item))
			}
			touched = true
		case b.Kind == doctree.KindBulletList && last != nil && (touched || containsAny(b, selected)):
			last.Children = append(last.Children, b.Children...)
		default:
			out = append(out, b)
			touched = false
		}
	}
	return out
}

func containsAny(list *doctree.Node, selected map[string]bool) bool {
	for _, item := range list.Children {
		if selected[item.ID] {
			return true
		}
	}
	return false
}

// SetTextAlign sets the alignment of every selected block.
func (c *Commands) SetTextAlign(align string) bool {
	switch align {
	case "left", "center", "right", "justify":
	default:
		return false
	}
	blocks, ok := c.blocks()
	if !ok {
		return false
	}
	for _, b := range blocks {
		if err := c.tree.SetAttributes(b.ID, doctree.Attrs{doctree.AttrTextAlign: align}); err != nil {
			return false
		}
	}
	return true
}

// InsertTextBox adds a text box after the block holding the selection, or
// at the end of the document. It needs no text selection.
func (c *Commands) InsertTextBox(r doctree.Rect) (*doctree.Node, bool) {
	return c.insertFloating(doctree.NewTextBox(r, doctree.DefaultTextBoxContent))
}

// InsertImage adds an image laid out in document order.
func (c *Commands) InsertImage(src, alt string, width, height float64) (*doctree.Node, bool) {
	if src == "" {
		return nil, false
	}
	return c.insertFloating(doctree.NewImage(src, alt, width, height))
}

func (c *Commands) insertFloating(n *doctree.Node) (*doctree.Node, bool) {
	if c.state.GestureActive() {
		return nil, false
	}
	root := c.tree.Root()
	index := len(root.Children)
	if sel := c.state.Selection(); sel.IsText() {
		if i, ok := c.topLevelIndex(sel.To.Block); ok {
			index = i + 1
		}
	}
	if err := c.tree.Insert(root.ID, index, n); err != nil {
		return nil, false
	}
	return n, true
}

// topLevelIndex finds the position among the root's children of the block
// containing id.
func (c *Commands) topLevelIndex(id string) (int, bool) {
	for {
		p, i, err := c.tree.IndexOf(id)
		if err != nil || p == nil {
			return 0, false
		}
		if p == c.tree.Root() {
			return i, true
		}
		id = p.ID
	}
}

// Command names a toolbar action for remote dispatch.
type Command string

const (
	CmdToggleBold       Command = "toggleBold"
	CmdToggleItalic     Command = "toggleItalic"
	CmdToggleUnderline  Command = "toggleUnderline"
	CmdSetHeading       Command = "setHeading"
	CmdToggleBulletList Command = "toggleBulletList"
	CmdSetTextAlign     Command = "setTextAlign"
	CmdSetColor         Command = "setColor"
)

// Args carries command parameters.
type Args struct {
	Level int    `json:"level,omitempty"`
	Align string `json:"align,omitempty"`
	Color string `json:"color,omitempty"`
}

// Exec runs a named command and reports whether it changed anything.
func (c *Commands) Exec(cmd Command, args Args) (bool, error) {
	switch cmd {
	case CmdToggleBold:
		return c.ToggleBold(), nil
	case CmdToggleItalic:
		return c.ToggleItalic(), nil
	case CmdToggleUnderline:
		return c.ToggleUnderline(), nil
	case CmdSetHeading:
		return c.SetHeading(args.Level), nil
	case CmdToggleBulletList:
		return c.ToggleBulletList(), nil
	case CmdSetTextAlign:
		return c.SetTextAlign(args.Align), nil
	case CmdSetColor:
		return c.SetColor(args.Color), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}
