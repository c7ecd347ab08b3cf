package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser imports headings, paragraphs, list paragraphs and run
// formatting from a .docx file.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	root := doctree.NewDoc()
	var list *doctree.Node
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		runs := docxRuns(para)
		if len(runs) == 0 {
			list = nil
			continue
		}
		style := docxStyle(para)
		if isListStyle(style) {
			if list == nil {
				list = doctree.NewBulletList()
				root.Children = append(root.Children, list)
			}
			list.Children = append(list.Children, doctree.NewListItem(stripBullet(runs)...))
			continue
		}
		list = nil

		var block *doctree.Node
		if level := docxHeadingLevel(style); level > 0 {
			block = doctree.NewHeading(level, runs...)
		} else {
			block = doctree.NewParagraph(runs...)
		}
		if align := docxAlign(para); align != "" {
			block.Attrs = mergeAttr(block.Attrs, doctree.AttrTextAlign, align)
		}
		root.Children = append(root.Children, block)
	}
	return root, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if strings.HasPrefix(s, "heading") && len(s) == len("heading")+1 {
		if d := s[len(s)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}

func isListStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.HasPrefix(s, "listparagraph") || strings.HasPrefix(s, "listbullet")
}

// stripBullet removes a literal bullet glyph some writers put in front of
// list paragraphs that have no numbering definition.
func stripBullet(runs []*doctree.Node) []*doctree.Node {
	if len(runs) == 0 {
		return runs
	}
	first := runs[0]
	first.Text = strings.TrimLeft(strings.TrimPrefix(first.Text, "•"), " ")
	if first.Text == "" {
		return runs[1:]
	}
	return runs
}

func docxAlign(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Justification == nil {
		return ""
	}
	switch para.Properties.Justification.Val {
	case "center":
		return "center"
	case "right", "end":
		return "right"
	case "both", "distribute":
		return "justify"
	}
	return ""
}

func docxRuns(para *docx.Paragraph) []*doctree.Node {
	var runs []*doctree.Node
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var st doctree.Style
		if props := run.RunProperties; props != nil {
			st.Bold = props.Bold != nil
			st.Italic = props.Italic != nil
			st.Underline = props.Underline != nil
			if props.Color != nil && props.Color.Val != "" && props.Color.Val != "auto" && props.Color.Val != "000000" {
				st.Color = "#" + strings.ToLower(props.Color.Val)
			}
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				runs = appendRun(runs, t.Text, st)
			case *docx.BarterRabbet:
				runs = appendRun(runs, "\n", st)
			}
		}
	}
	return trimRuns(runs)
}

func mergeAttr(a doctree.Attrs, key string, v any) doctree.Attrs {
	if a == nil {
		a = doctree.Attrs{}
	}
	a[key] = v
	return a
}
