package export

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

// ToMarkup renders the document as an HTML fragment. Floating nodes keep
// their absolute position both as inline style and data attributes, so the
// fragment can be read back without losing layout.
func ToMarkup(root *doctree.Node) string {
	var sb strings.Builder
	renderBlock(&sb, root)
	return sb.String()
}

func renderBlock(sb *strings.Builder, n *doctree.Node) {
	switch n.Kind {
	case doctree.KindDoc:
		for _, c := range n.Children {
			renderBlock(sb, c)
		}
	case doctree.KindParagraph:
		fmt.Fprintf(sb, "<p%s>%s</p>\n", alignStyle(n), renderRuns(n.Children))
	case doctree.KindHeading:
		level := n.Level()
		fmt.Fprintf(sb, "<h%d%s>%s</h%d>\n", level, alignStyle(n), renderRuns(n.Children), level)
	case doctree.KindBulletList:
		sb.WriteString("<ul>\n")
		for _, item := range n.Children {
			renderBlock(sb, item)
		}
		sb.WriteString("</ul>\n")
	case doctree.KindListItem:
		fmt.Fprintf(sb, "<li%s>%s</li>\n", alignStyle(n), renderRuns(n.Children))
	case doctree.KindImage:
		fmt.Fprintf(sb, `<img src="%s"`, html.EscapeString(n.Attrs.String(doctree.AttrSrc)))
		if alt := n.Attrs.String(doctree.AttrAlt); alt != "" {
			fmt.Fprintf(sb, ` alt="%s"`, html.EscapeString(alt))
		}
		if w, ok := n.Attrs.Float(doctree.AttrWidth); ok && w > 0 {
			fmt.Fprintf(sb, ` width="%s"`, num(w))
		}
		if h, ok := n.Attrs.Float(doctree.AttrHeight); ok && h > 0 {
			fmt.Fprintf(sb, ` height="%s"`, num(h))
		}
		sb.WriteString(floatingAttrs(n))
		sb.WriteString(">\n")
	case doctree.KindTextBox:
		fmt.Fprintf(sb, `<div data-type="draggable-text-box"%s>%s</div>`+"\n",
			floatingAttrs(n), textHTML(n.Attrs.String(doctree.AttrTextContent)))
	case doctree.KindText:
		sb.WriteString(renderRuns([]*doctree.Node{n}))
	}
}

func renderRuns(runs []*doctree.Node) string {
	var sb strings.Builder
	for _, r := range runs {
		s := textHTML(r.Text)
		st := r.Style()
		if st.Color != "" && doctree.ValidColor(st.Color) {
			s = fmt.Sprintf(`<span style="color:%s">%s</span>`, html.EscapeString(st.Color), s)
		}
		if st.Underline {
			s = "<u>" + s + "</u>"
		}
		if st.Italic {
			s = "<em>" + s + "</em>"
		}
		if st.Bold {
			s = "<strong>" + s + "</strong>"
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func textHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func alignStyle(n *doctree.Node) string {
	if a := n.Attrs.String(doctree.AttrTextAlign); a != "" {
		return fmt.Sprintf(` style="text-align:%s"`, html.EscapeString(a))
	}
	return ""
}

func floatingAttrs(n *doctree.Node) string {
	r, positioned := n.Geometry()
	var data, style []string
	if positioned {
		data = append(data, fmt.Sprintf(`data-x="%s" data-y="%s"`, num(r.X), num(r.Y)))
		style = append(style, "position:absolute", "left:"+num(r.X)+"px", "top:"+num(r.Y)+"px")
	}
	if r.Width > 0 {
		data = append(data, fmt.Sprintf(`data-width="%s"`, num(r.Width)))
		style = append(style, "width:"+num(r.Width)+"px")
	}
	if r.Height > 0 {
		data = append(data, fmt.Sprintf(`data-height="%s"`, num(r.Height)))
		style = append(style, "height:"+num(r.Height)+"px")
	}
	if len(data) == 0 {
		return ""
	}
	return " " + strings.Join(data, " ") + ` style="` + strings.Join(style, ";") + `"`
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
