package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

// TextParser handles plain text files. Markdown syntax is not interpreted.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paras []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paras = append(paras, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paras = append(paras, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs(paras), nil
}
