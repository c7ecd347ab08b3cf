package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/fumiama/go-docx"
)

// BulletPrefix starts every list paragraph in DOCX output. The document
// carries no numbering part, so the bullet is literal text.
const BulletPrefix = "• "

var headingSizes = map[int]string{1: "44", 2: "32", 3: "28"}

// ToDOCX renders the document as a Word file. Floating nodes are placed in
// the flow; embedded data-URL images are kept, remote images are dropped.
func ToDOCX(root *doctree.Node, paper Paper) ([]byte, []Loss, error) {
	w := &docxWriter{f: docx.New().WithDefaultTheme()}
	if paper.Name == PaperA4.Name {
		w.f = w.f.WithA4Page()
	}
	for _, n := range blockChildren(root) {
		w.block(n)
	}
	var buf bytes.Buffer
	if _, err := w.f.WriteTo(&buf); err != nil {
		return nil, w.losses, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), w.losses, nil
}

type docxWriter struct {
	f      *docx.Docx
	losses []Loss
}

func (w *docxWriter) lose(n *doctree.Node, reason string) {
	w.losses = append(w.losses, Loss{NodeID: n.ID, Kind: n.Kind.String(), Reason: reason})
}

func (w *docxWriter) block(n *doctree.Node) {
	switch n.Kind {
	case doctree.KindHeading:
		level := min(max(n.Level(), 1), 6)
		p := w.f.AddParagraph().Style(fmt.Sprintf("Heading%d", level))
		justify(p, n)
		size := headingSizes[level]
		if size == "" {
			size = "24"
		}
		for _, r := range n.Children {
			styledRun(p, r).Bold().Size(size)
		}
	case doctree.KindParagraph:
		p := w.f.AddParagraph()
		justify(p, n)
		for _, r := range n.Children {
			styledRun(p, r)
		}
	case doctree.KindBulletList:
		for _, item := range n.Children {
			p := w.f.AddParagraph().Style("ListBullet")
			justify(p, item)
			p.AddText(BulletPrefix)
			for _, r := range item.Children {
				styledRun(p, r)
			}
		}
	case doctree.KindImage:
		if _, positioned := n.Geometry(); positioned {
			w.lose(n, "absolute position dropped")
		}
		data, ok := dataURLBytes(n.Attrs.String(doctree.AttrSrc))
		if !ok {
			w.lose(n, "remote image omitted")
			return
		}
		if _, err := w.f.AddParagraph().AddInlineDrawing(data); err != nil {
			w.lose(n, "image format not supported")
		}
	case doctree.KindTextBox:
		w.lose(n, "text box flattened to paragraph")
		if s := n.Attrs.String(doctree.AttrTextContent); s != "" {
			w.f.AddParagraph().AddText(s)
		}
	}
}

func styledRun(p *docx.Paragraph, n *doctree.Node) *docx.Run {
	r := p.AddText(n.Text)
	st := n.Style()
	if st.Bold {
		r.Bold()
	}
	if st.Italic {
		r.Italic()
	}
	if st.Underline {
		r.Underline("single")
	}
	if c := strings.TrimPrefix(st.Color, "#"); len(c) == 6 {
		r.Color(strings.ToUpper(c))
	}
	return r
}

func justify(p *docx.Paragraph, n *doctree.Node) {
	switch n.Attrs.String(doctree.AttrTextAlign) {
	case "center":
		p.Justification("center")
	case "right":
		p.Justification("end")
	case "justify":
		p.Justification("both")
	}
}

// dataURLBytes decodes a base64 data URL.
func dataURLBytes(src string) ([]byte, bool) {
	if !strings.HasPrefix(src, "data:") {
		return nil, false
	}
	meta, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
