package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

// MarkdownOptions tunes markdown output.
type MarkdownOptions struct {
	// OmitFloating drops text boxes and positioned images instead of
	// flattening them into the flow.
	OmitFloating bool
}

// ToMarkdown renders the document as markdown. Layout and styling markdown
// cannot express are dropped; see ToMarkdownWithReport.
func ToMarkdown(root *doctree.Node) string {
	out, _ := ToMarkdownWithReport(root, MarkdownOptions{})
	return out
}

// ToMarkdownWithReport renders the document and lists everything that was
// dropped on the way. Literal text is escaped so that reading the output
// back yields the same document.
func ToMarkdownWithReport(root *doctree.Node, opts MarkdownOptions) (string, []Loss) {
	m := &mdWriter{opts: opts}
	var blocks []string
	marker := "-"
	prevList := false
	for _, n := range blockChildren(root) {
		s := m.block(n, marker)
		if s == "" {
			continue
		}
		if n.Kind == doctree.KindBulletList {
			// Two lists in a row would merge when read back unless the
			// bullet character changes.
			if prevList {
				marker = otherMarker(marker)
				s = m.block(n, marker)
			}
			prevList = true
		} else {
			prevList = false
		}
		blocks = append(blocks, s)
	}
	if len(blocks) == 0 {
		return "", m.losses
	}
	return strings.Join(blocks, "\n\n") + "\n", m.losses
}

func blockChildren(root *doctree.Node) []*doctree.Node {
	if root == nil {
		return nil
	}
	if root.Kind == doctree.KindDoc {
		return root.Children
	}
	return []*doctree.Node{root}
}

func otherMarker(m string) string {
	if m == "-" {
		return "*"
	}
	return "-"
}

type mdWriter struct {
	opts   MarkdownOptions
	losses []Loss
	// seen guards against reporting the same loss twice when a block is
	// rendered again with another list marker.
	seen map[Loss]bool
}

func (m *mdWriter) lose(n *doctree.Node, reason string) {
	l := Loss{NodeID: n.ID, Kind: n.Kind.String(), Reason: reason}
	if m.seen == nil {
		m.seen = map[Loss]bool{}
	}
	if m.seen[l] {
		return
	}
	m.seen[l] = true
	m.losses = append(m.losses, l)
}

func (m *mdWriter) block(n *doctree.Node, marker string) string {
	switch n.Kind {
	case doctree.KindHeading:
		m.checkAlign(n)
		level := min(max(n.Level(), 1), 6)
		prefix := strings.Repeat("#", level)
		body := m.inline(n, " ")
		if body == "" {
			return prefix
		}
		return prefix + " " + body
	case doctree.KindParagraph:
		m.checkAlign(n)
		return m.inline(n, "\n")
	case doctree.KindBulletList:
		var lines []string
		for _, item := range n.Children {
			m.checkAlign(item)
			body := m.inline(item, "\n  ")
			if body == "" {
				lines = append(lines, marker)
				continue
			}
			lines = append(lines, marker+" "+body)
		}
		return strings.Join(lines, "\n")
	case doctree.KindImage:
		_, positioned := n.Geometry()
		if positioned {
			if m.opts.OmitFloating {
				m.lose(n, "floating image omitted")
				return ""
			}
			m.lose(n, "absolute position dropped")
		}
		if _, ok := n.Attrs.Float(doctree.AttrWidth); ok {
			m.lose(n, "image size dropped")
		}
		return "![" + sanitizeAlt(n.Attrs.String(doctree.AttrAlt)) + "](" + destination(n.Attrs.String(doctree.AttrSrc)) + ")"
	case doctree.KindTextBox:
		if m.opts.OmitFloating {
			m.lose(n, "text box omitted")
			return ""
		}
		m.lose(n, "text box flattened to paragraph")
		w := &inlineWriter{}
		w.run(n.Attrs.String(doctree.AttrTextContent), doctree.Style{})
		return w.finish("\n")
	case doctree.KindText:
		w := &inlineWriter{}
		w.run(n.Text, doctree.Style{})
		return w.finish("\n")
	}
	return ""
}

func (m *mdWriter) checkAlign(n *doctree.Node) {
	if a := n.Attrs.String(doctree.AttrTextAlign); a != "" && a != "left" {
		m.lose(n, "text alignment dropped")
	}
}

// inline renders the runs of a textblock. newline replaces line breaks
// inside the block.
func (m *mdWriter) inline(n *doctree.Node, newline string) string {
	w := &inlineWriter{}
	for _, r := range n.Children {
		st := r.Style()
		if st.Underline {
			m.lose(r, "underline dropped")
		}
		if st.Color != "" {
			m.lose(r, "color dropped")
		}
		text := r.Text
		if newline == " " {
			text = strings.ReplaceAll(text, "\n", " ")
		}
		w.run(text, doctree.Style{Bold: st.Bold, Italic: st.Italic})
	}
	return w.finish(newline)
}

// inlineWriter emits emphasis markers around runs. Markers hug the text:
// whitespace at run edges is moved outside so the delimiters stay valid.
type inlineWriter struct {
	sb      strings.Builder
	open    []string
	pending string
}

func marksFor(st doctree.Style) []string {
	var out []string
	if st.Bold {
		out = append(out, "**")
	}
	if st.Italic {
		out = append(out, "*")
	}
	return out
}

func (w *inlineWriter) run(text string, st doctree.Style) {
	core := strings.TrimLeftFunc(text, unicode.IsSpace)
	lead := text[:len(text)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail := core[len(trimmed):]
	core = trimmed
	if core == "" {
		w.pending += text
		return
	}

	want := marksFor(st)
	keep := 0
	for keep < len(w.open) && keep < len(want) && w.open[keep] == want[keep] {
		keep++
	}
	w.closeTo(keep)
	w.write(w.pending+lead, false)
	w.pending = trail
	for _, mk := range want[keep:] {
		w.sb.WriteString(mk)
		w.open = append(w.open, mk)
	}
	w.write(core, true)
}

func (w *inlineWriter) closeTo(depth int) {
	for len(w.open) > depth {
		last := len(w.open) - 1
		w.sb.WriteString(w.open[last])
		w.open = w.open[:last]
	}
}

func (w *inlineWriter) finish(newline string) string {
	w.closeTo(0)
	lines := strings.Split(w.sb.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	return strings.ReplaceAll(out, "\n", newline)
}

// atLineStart reports whether nothing but emphasis markers has been
// written since the last line break.
func (w *inlineWriter) atLineStart() bool {
	s := w.sb.String()
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, "*") == ""
}

func (w *inlineWriter) write(s string, escape bool) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		bol := w.atLineStart()
		switch {
		case r == '\n':
			out := w.sb.String()
			if out != "" && !strings.HasSuffix(out, "\n") {
				w.sb.WriteByte('\n')
			}
			i += size
			continue
		case bol && (r == ' ' || r == '\t'):
			i += size
			continue
		}
		if escape && bol {
			if n := w.lineStartEscape(s[i:]); n > 0 {
				i += n
				continue
			}
		}
		if escape {
			switch r {
			case '\\', '*', '_', '`', '[', ']', '<', '>', '#':
				w.sb.WriteByte('\\')
			case '&':
				w.sb.WriteString("&amp;")
				i += size
				continue
			}
		}
		w.sb.WriteString(s[i : i+size])
		i += size
	}
}

// lineStartEscape neutralizes characters that would open a block construct
// at the start of a line. It returns the number of bytes consumed.
func (w *inlineWriter) lineStartEscape(s string) int {
	switch s[0] {
	case '-', '+', '=', '~', '|':
		w.sb.WriteByte('\\')
		w.sb.WriteByte(s[0])
		return 1
	}
	digits := 0
	for digits < len(s) && digits < 10 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits > 9 || digits >= len(s) {
		return 0
	}
	if s[digits] != '.' && s[digits] != ')' {
		return 0
	}
	w.sb.WriteString(s[:digits])
	w.sb.WriteByte('\\')
	w.sb.WriteByte(s[digits])
	return digits + 1
}

func sanitizeAlt(alt string) string {
	alt = strings.ReplaceAll(alt, "\n", " ")
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '[', ']', '*', '_', '`', '<', '>', '&', '!':
			return -1
		}
		return r
	}, alt)
}

func destination(src string) string {
	if strings.ContainsAny(src, " ()<>\t\n") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E", "\n", "").Replace(src) + ">"
	}
	return src
}
