// Package doctree holds the structured rich document that the editor,
// normalizer and exporters share.
package doctree

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"strings"
)

// Kind tags a node. Every switch over Kind should be exhaustive.
type Kind int

const (
	KindDoc Kind = iota
	KindParagraph
	KindHeading
	KindBulletList
	KindListItem
	KindText
	KindImage
	KindTextBox
)

var kindNames = [...]string{
	KindDoc:        "doc",
	KindParagraph:  "paragraph",
	KindHeading:    "heading",
	KindBulletList: "bulletList",
	KindListItem:   "listItem",
	KindText:       "text",
	KindImage:      "image",
	KindTextBox:    "draggableTextBox",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", name)
}

// IsFloating reports whether nodes of this kind can be dragged and resized.
func (k Kind) IsFloating() bool {
	return k == KindImage || k == KindTextBox
}

// IsTextblock reports whether the kind holds text runs directly.
func (k Kind) IsTextblock() bool {
	return k == KindParagraph || k == KindHeading || k == KindListItem
}

// IsAtomic reports whether the kind is a leaf.
func (k Kind) IsAtomic() bool {
	switch k {
	case KindText, KindImage, KindTextBox:
		return true
	case KindDoc, KindParagraph, KindHeading, KindBulletList, KindListItem:
		return false
	}
	return true
}

// CanContain reports whether a node of kind parent may hold a child of kind child.
func CanContain(parent, child Kind) bool {
	switch parent {
	case KindDoc:
		switch child {
		case KindParagraph, KindHeading, KindBulletList, KindImage, KindTextBox:
			return true
		}
		return false
	case KindParagraph, KindHeading, KindListItem:
		return child == KindText
	case KindBulletList:
		return child == KindListItem
	case KindText, KindImage, KindTextBox:
		return false
	}
	return false
}

// Attribute keys.
const (
	AttrLevel       = "level"
	AttrTextAlign   = "textAlign"
	AttrBold        = "bold"
	AttrItalic      = "italic"
	AttrUnderline   = "underline"
	AttrColor       = "color"
	AttrSrc         = "src"
	AttrAlt         = "alt"
	AttrX           = "x"
	AttrY           = "y"
	AttrWidth       = "width"
	AttrHeight      = "height"
	AttrPosition    = "position"
	AttrTextContent = "textContent"
)

// PositionAbsolute marks a floating node that has been detached from flow.
const PositionAbsolute = "absolute"

// Attrs is the kind-specific attribute map of a node.
type Attrs map[string]any

// String returns the attribute as a string, or "".
func (a Attrs) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Bool returns the attribute as a bool, or false.
func (a Attrs) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Float returns a numeric attribute. JSON decoding yields float64, Go
// callers may store ints.
func (a Attrs) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns a numeric attribute truncated to int.
func (a Attrs) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

// Node is one element of the document. Text is only meaningful for KindText.
type Node struct {
	ID       string
	Kind     Kind
	Attrs    Attrs
	Text     string
	Children []*Node
}

// Attr returns attribute key, tolerating a nil map.
func (n *Node) Attr(key string) any {
	if n.Attrs == nil {
		return nil
	}
	return n.Attrs[key]
}

// Level returns the heading level, defaulting to 1.
func (n *Node) Level() int {
	if l, ok := n.Attrs.Int(AttrLevel); ok && l >= 1 && l <= 6 {
		return l
	}
	return 1
}

// Style returns the inline formatting of a text run.
func (n *Node) Style() Style {
	return Style{
		Bold:      n.Attrs.Bool(AttrBold),
		Italic:    n.Attrs.Bool(AttrItalic),
		Underline: n.Attrs.Bool(AttrUnderline),
		Color:     n.Attrs.String(AttrColor),
	}
}

// Rect is a floating node's box in document-local pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry returns the box of a floating node and whether it carries an
// explicit position.
func (n *Node) Geometry() (Rect, bool) {
	var r Rect
	r.Width, _ = n.Attrs.Float(AttrWidth)
	r.Height, _ = n.Attrs.Float(AttrHeight)
	x, okX := n.Attrs.Float(AttrX)
	y, okY := n.Attrs.Float(AttrY)
	r.X, r.Y = x, y
	return r, okX && okY && n.Attrs.String(AttrPosition) == PositionAbsolute
}

// PlainText concatenates the text of every run below n. Text boxes
// contribute their textContent.
func (n *Node) PlainText() string {
	var sb strings.Builder
	var walk func(*Node)
	walk = func(m *Node) {
		switch m.Kind {
		case KindText:
			sb.WriteString(m.Text)
		case KindTextBox:
			sb.WriteString(m.Attrs.String(AttrTextContent))
		case KindImage:
		case KindDoc, KindParagraph, KindHeading, KindBulletList, KindListItem:
			for _, c := range m.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// Clone returns a deep copy of n, ids included.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{ID: n.ID, Kind: n.Kind, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = cloneAttrs(n.Attrs)
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

func cloneAttrs(a Attrs) Attrs {
	out := make(Attrs, len(a))
	maps.Copy(out, a)
	return out
}

// Style is the inline formatting carried by a text run.
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Color     string
}

var colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]{3,20}|rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(,\s*(0|1|0?\.\d+)\s*)?\))$`)

// ValidColor reports whether s is a hex, rgb()/rgba() or named CSS color.
// Anything else must not reach a style attribute.
func ValidColor(s string) bool {
	return colorRe.MatchString(s)
}

// Attrs converts the style into text-run attributes, omitting zero values.
func (s Style) Attrs() Attrs {
	a := Attrs{}
	if s.Bold {
		a[AttrBold] = true
	}
	if s.Italic {
		a[AttrItalic] = true
	}
	if s.Underline {
		a[AttrUnderline] = true
	}
	if s.Color != "" {
		a[AttrColor] = s.Color
	}
	return a
}

// NewDoc builds a root node.
func NewDoc(children ...*Node) *Node {
	return &Node{Kind: KindDoc, Children: children}
}

// NewParagraph builds a paragraph from text runs.
func NewParagraph(runs ...*Node) *Node {
	return &Node{Kind: KindParagraph, Children: runs}
}

// NewHeading builds a heading of the given level (1-6).
func NewHeading(level int, runs ...*Node) *Node {
	return &Node{Kind: KindHeading, Attrs: Attrs{AttrLevel: level}, Children: runs}
}

// NewBulletList builds a list from list items.
func NewBulletList(items ...*Node) *Node {
	return &Node{Kind: KindBulletList, Children: items}
}

// NewListItem builds a list item from text runs.
func NewListItem(runs ...*Node) *Node {
	return &Node{Kind: KindListItem, Children: runs}
}

// NewText builds an unstyled text run.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// NewStyledText builds a text run with inline formatting.
func NewStyledText(text string, style Style) *Node {
	n := &Node{Kind: KindText, Text: text}
	if a := style.Attrs(); len(a) > 0 {
		n.Attrs = a
	}
	return n
}

// NewImage builds an image laid out in document order.
func NewImage(src, alt string, width, height float64) *Node {
	a := Attrs{AttrSrc: src}
	if alt != "" {
		a[AttrAlt] = alt
	}
	if width > 0 {
		a[AttrWidth] = width
	}
	if height > 0 {
		a[AttrHeight] = height
	}
	return &Node{Kind: KindImage, Attrs: a}
}

// Text box defaults for a freshly inserted box.
const (
	DefaultTextBoxWidth   = 200
	DefaultTextBoxHeight  = 100
	DefaultTextBoxContent = "Double-click to edit"
)

// NewTextBox builds an absolutely positioned text box.
func NewTextBox(r Rect, content string) *Node {
	if r.Width <= 0 {
		r.Width = DefaultTextBoxWidth
	}
	if r.Height <= 0 {
		r.Height = DefaultTextBoxHeight
	}
	return &Node{Kind: KindTextBox, Attrs: Attrs{
		AttrX:           r.X,
		AttrY:           r.Y,
		AttrWidth:       r.Width,
		AttrHeight:      r.Height,
		AttrPosition:    PositionAbsolute,
		AttrTextContent: content,
	}}
}
