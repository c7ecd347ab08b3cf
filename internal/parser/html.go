package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"golang.org/x/net/html"
)

// TextBoxMarker is the data-type attribute that identifies a text box in
// exported markup.
const TextBoxMarker = "draggable-text-box"

// HTMLParser reads markup, including the markup export, back into a
// document. Floating nodes keep their absolute geometry.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	b := &htmlBuilder{root: doctree.NewDoc()}
	if body := findBody(doc); body != nil {
		b.blocks(body)
	} else {
		b.blocks(doc)
	}
	b.flushLoose()
	return b.root, nil
}

type htmlBuilder struct {
	root  *doctree.Node
	loose []*doctree.Node
}

func (b *htmlBuilder) add(n *doctree.Node) {
	b.flushLoose()
	b.root.Children = append(b.root.Children, n)
}

// flushLoose wraps inline content found between blocks into a paragraph.
func (b *htmlBuilder) flushLoose() {
	runs := trimRuns(b.loose)
	b.loose = nil
	if len(runs) > 0 {
		b.root.Children = append(b.root.Children, doctree.NewParagraph(runs...))
	}
}

func (b *htmlBuilder) blocks(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.loose = appendInline(b.loose, c, doctree.Style{})
			continue
		case html.ElementNode:
		default:
			continue
		}

		switch c.Data {
		case "script", "style", "head", "title", "nav":
		case "h1", "h2", "h3", "h4", "h5", "h6":
			h := doctree.NewHeading(int(c.Data[1]-'0'), trimRuns(inlineRuns(c, doctree.Style{}))...)
			applyAlign(h, c)
			b.add(h)
		case "p":
			para := doctree.NewParagraph(trimRuns(inlineRuns(c, doctree.Style{}))...)
			applyAlign(para, c)
			b.add(para)
		case "ul", "ol":
			list := doctree.NewBulletList()
			for li := c.FirstChild; li != nil; li = li.NextSibling {
				if li.Type == html.ElementNode && li.Data == "li" {
					list.Children = append(list.Children, doctree.NewListItem(trimRuns(inlineRuns(li, doctree.Style{}))...))
				}
			}
			if len(list.Children) > 0 {
				b.add(list)
			}
		case "img":
			b.add(imageNode(c))
		case "strong", "b", "em", "i", "u", "span", "br", "a":
			b.loose = appendInline(b.loose, c, doctree.Style{})
		default:
			if attr(c, "data-type") == TextBoxMarker {
				b.add(textBoxNode(c))
				continue
			}
			b.flushLoose()
			b.blocks(c)
			b.flushLoose()
		}
	}
}

func imageNode(n *html.Node) *doctree.Node {
	w, _ := px(attr(n, "width"))
	h, _ := px(attr(n, "height"))
	img := doctree.NewImage(attr(n, "src"), attr(n, "alt"), w, h)
	applyGeometry(img, n)
	return img
}

func textBoxNode(n *html.Node) *doctree.Node {
	var content strings.Builder
	for _, r := range inlineRuns(n, doctree.Style{}) {
		content.WriteString(r.Text)
	}
	box := doctree.NewTextBox(doctree.Rect{}, content.String())
	delete(box.Attrs, doctree.AttrX)
	delete(box.Attrs, doctree.AttrY)
	delete(box.Attrs, doctree.AttrPosition)
	applyGeometry(box, n)
	return box
}

// applyGeometry copies data-x/y/width/height, falling back to the inline
// style, onto a floating node.
func applyGeometry(node *doctree.Node, n *html.Node) {
	style := parseStyle(attr(n, "style"))
	read := func(dataKey, styleKey string) (float64, bool) {
		if v, ok := px(attr(n, dataKey)); ok {
			return v, true
		}
		return px(style[styleKey])
	}
	if w, ok := read("data-width", "width"); ok {
		node.Attrs[doctree.AttrWidth] = w
	}
	if h, ok := read("data-height", "height"); ok {
		node.Attrs[doctree.AttrHeight] = h
	}
	x, okX := read("data-x", "left")
	y, okY := read("data-y", "top")
	if okX && okY && (style["position"] == doctree.PositionAbsolute || attr(n, "data-x") != "") {
		node.Attrs[doctree.AttrX] = x
		node.Attrs[doctree.AttrY] = y
		node.Attrs[doctree.AttrPosition] = doctree.PositionAbsolute
	}
}

func applyAlign(node *doctree.Node, n *html.Node) {
	switch a := parseStyle(attr(n, "style"))["text-align"]; a {
	case "left", "center", "right", "justify":
		if node.Attrs == nil {
			node.Attrs = doctree.Attrs{}
		}
		node.Attrs[doctree.AttrTextAlign] = a
	}
}

// inlineRuns flattens inline markup under n into styled runs.
func inlineRuns(n *html.Node, st doctree.Style) []*doctree.Node {
	var runs []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = appendInline(runs, c, st)
	}
	return runs
}

func appendInline(runs []*doctree.Node, n *html.Node, st doctree.Style) []*doctree.Node {
	switch n.Type {
	case html.TextNode:
		return appendRun(runs, collapseSpace(n.Data), st)
	case html.ElementNode:
	default:
		return runs
	}
	switch n.Data {
	case "br":
		return appendRun(runs, "\n", st)
	case "script", "style":
		return runs
	case "strong", "b":
		st.Bold = true
	case "em", "i":
		st.Italic = true
	case "u":
		st.Underline = true
	}
	if color := parseStyle(attr(n, "style"))["color"]; doctree.ValidColor(color) {
		st.Color = color
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = appendInline(runs, c, st)
	}
	return runs
}

var newlineSpace = regexp.MustCompile(`[ \t\r]*\n[ \t\r\n]*`)

// collapseSpace folds source formatting (line breaks and indentation)
// into single spaces. Runs of plain spaces are kept.
func collapseSpace(s string) string {
	s = newlineSpace.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, "\t", " ")
}

func trimRuns(runs []*doctree.Node) []*doctree.Node {
	for len(runs) > 0 {
		runs[0].Text = strings.TrimLeft(runs[0].Text, " ")
		if runs[0].Text != "" {
			break
		}
		runs = runs[1:]
	}
	for len(runs) > 0 {
		last := runs[len(runs)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		runs = runs[:len(runs)-1]
	}
	return runs
}

func parseStyle(s string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func px(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
