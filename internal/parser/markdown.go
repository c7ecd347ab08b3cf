package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Degradation records a markdown block that could not be mapped onto the
// document model and was kept as a plain paragraph of its source text.
type Degradation struct {
	Line   int    `json:"line"`
	Block  string `json:"block"`
	Reason string `json:"reason"`
}

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Normalize(string(src)), nil
}

var markdown = goldmark.New()

// Normalize converts model output into a document. It never fails: blocks
// outside the supported subset become plain paragraphs.
func Normalize(md string) *doctree.Node {
	root, _ := NormalizeWithReport(md)
	return root
}

// NormalizeWithReport is Normalize plus the list of degraded blocks.
func NormalizeWithReport(md string) (*doctree.Node, []Degradation) {
	src := []byte(md)
	doc := markdown.Parser().Parse(text.NewReader(src))

	n := &normalizer{src: src}
	var blocks []ast.Node
	for b := doc.FirstChild(); b != nil; b = b.NextSibling() {
		blocks = append(blocks, b)
	}
	n.spans = make([]span, len(blocks))
	for i, b := range blocks {
		n.spans[i] = n.blockSpan(b)
	}

	root := doctree.NewDoc()
	for i, b := range blocks {
		root.Children = append(root.Children, n.block(i, b)...)
	}
	if len(root.Children) == 0 {
		root.Children = []*doctree.Node{doctree.NewParagraph()}
	}
	return root, n.degraded
}

type span struct {
	start, end int
	ok         bool
}

type normalizer struct {
	src      []byte
	spans    []span
	consumed int
	degraded []Degradation
}

func (n *normalizer) block(i int, b ast.Node) []*doctree.Node {
	switch v := b.(type) {
	case *ast.Heading:
		runs, ok := n.inlines(v)
		if !ok {
			return n.degrade(i, b, "unsupported inline syntax")
		}
		return []*doctree.Node{doctree.NewHeading(v.Level, runs...)}

	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := soleImage(b); ok {
			return []*doctree.Node{doctree.NewImage(string(img.Destination), string(img.Text(n.src)), 0, 0)}
		}
		runs, ok := n.inlines(b)
		if !ok {
			return n.degrade(i, b, "unsupported inline syntax")
		}
		return []*doctree.Node{doctree.NewParagraph(runs...)}

	case *ast.List:
		if v.IsOrdered() {
			return n.degrade(i, b, "ordered list")
		}
		list := doctree.NewBulletList()
		for item := v.FirstChild(); item != nil; item = item.NextSibling() {
			runs, ok := n.listItem(item)
			if !ok {
				return n.degrade(i, b, "nested list content")
			}
			list.Children = append(list.Children, doctree.NewListItem(runs...))
		}
		return []*doctree.Node{list}
	}
	return n.degrade(i, b, "unsupported block")
}

// listItem accepts items holding at most one text block.
func (n *normalizer) listItem(item ast.Node) ([]*doctree.Node, bool) {
	if item.ChildCount() == 0 {
		return nil, true
	}
	if item.ChildCount() > 1 {
		return nil, false
	}
	switch c := item.FirstChild().(type) {
	case *ast.TextBlock, *ast.Paragraph:
		return n.inlines(c)
	}
	return nil, false
}

// inlines maps bold/italic emphasis onto run styles. Any other inline
// syntax, or an emphasis delimiter left unmatched, rejects the block.
func (n *normalizer) inlines(parent ast.Node) ([]*doctree.Node, bool) {
	var runs []*doctree.Node
	ok := true
	var walk func(ast.Node, doctree.Style)
	walk = func(node ast.Node, st doctree.Style) {
		for c := node.FirstChild(); c != nil && ok; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				seg := v.Segment.Value(n.src)
				if hasBareDelimiter(seg) {
					ok = false
					return
				}
				s := string(unescape(seg))
				if v.SoftLineBreak() || v.HardLineBreak() {
					s += "\n"
				}
				runs = appendRun(runs, s, st)
			case *ast.String:
				runs = appendRun(runs, string(v.Value), st)
			case *ast.Emphasis:
				inner := st
				if v.Level >= 2 {
					inner.Bold = true
				} else {
					inner.Italic = true
				}
				walk(v, inner)
			default:
				ok = false
				return
			}
		}
	}
	walk(parent, doctree.Style{})
	if !ok {
		return nil, false
	}
	if l := len(runs); l > 0 {
		last := runs[l-1]
		last.Text = strings.TrimRight(last.Text, "\n")
		if last.Text == "" {
			runs = runs[:l-1]
		}
	}
	return runs, true
}

func appendRun(runs []*doctree.Node, s string, st doctree.Style) []*doctree.Node {
	if s == "" {
		return runs
	}
	if l := len(runs); l > 0 && runs[l-1].Style() == st {
		runs[l-1].Text += s
		return runs
	}
	return append(runs, doctree.NewStyledText(s, st))
}

func unescape(b []byte) []byte {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	return util.ResolveEntityNames(b)
}

// hasBareDelimiter reports an unescaped '*' in literal text, which is
// what goldmark leaves behind for emphasis it could not close.
func hasBareDelimiter(seg []byte) bool {
	for i, c := range seg {
		if c != '*' {
			continue
		}
		slashes := 0
		for j := i - 1; j >= 0 && seg[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return true
		}
	}
	return false
}

func soleImage(b ast.Node) (*ast.Image, bool) {
	if b.ChildCount() != 1 {
		return nil, false
	}
	img, ok := b.FirstChild().(*ast.Image)
	return img, ok
}

// degrade turns top-level block i into a paragraph of its source lines.
// Source between the previous and next block belongs to this block, so
// fences, markers and closing lines are kept.
func (n *normalizer) degrade(i int, b ast.Node, reason string) []*doctree.Node {
	lo := n.consumed
	for j := i - 1; j >= 0; j-- {
		if n.spans[j].ok {
			lo = max(lo, n.spans[j].end)
			break
		}
	}
	hi := len(n.src)
	for j := i + 1; j < len(n.spans); j++ {
		if n.spans[j].ok {
			hi = n.spans[j].start
			break
		}
	}
	if hi < lo {
		hi = lo
	}
	n.consumed = hi

	raw := plainLines(n.src[lo:hi])
	n.degraded = append(n.degraded, Degradation{
		Line:   bytes.Count(n.src[:lo], []byte("\n")) + 1 + leadingBlankLines(n.src[lo:hi]),
		Block:  b.Kind().String(),
		Reason: reason,
	})
	if raw == "" {
		return nil
	}
	return []*doctree.Node{doctree.NewParagraph(doctree.NewText(raw))}
}

// blockSpan finds the source lines a top-level block occupies, expanded to
// whole lines.
func (n *normalizer) blockSpan(b ast.Node) span {
	s := span{start: len(n.src), end: 0}
	var visit func(ast.Node)
	visit = func(node ast.Node) {
		if node.Type() == ast.TypeBlock {
			lines := node.Lines()
			for k := 0; k < lines.Len(); k++ {
				seg := lines.At(k)
				s.start = min(s.start, seg.Start)
				s.end = max(s.end, seg.Stop)
				s.ok = true
			}
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Type() == ast.TypeBlock {
				visit(c)
			}
		}
	}
	visit(b)
	if !s.ok {
		return span{}
	}
	for s.start > 0 && n.src[s.start-1] != '\n' {
		s.start--
	}
	s.end = lineEnd(n.src, s.end)
	// Setext underline sits on the line after the heading text.
	if _, isHeading := b.(*ast.Heading); isHeading && !isATX(n.src[s.start:]) && s.end < len(n.src) {
		s.end = scanLineEnd(n.src, s.end+1)
	}
	return s
}

func lineEnd(src []byte, pos int) int {
	if pos > 0 && pos <= len(src) && src[pos-1] == '\n' {
		return pos - 1
	}
	return scanLineEnd(src, pos)
}

func scanLineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	return pos
}

func isATX(line []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(line, " "), []byte("#"))
}

// plainLines trims every line and drops blank ones so the text survives a
// later export as a single paragraph.
func plainLines(raw []byte) string {
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func leadingBlankLines(raw []byte) int {
	count := 0
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			break
		}
		count++
	}
	return count
}
