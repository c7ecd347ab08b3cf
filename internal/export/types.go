// Package export renders a document tree as Markdown, HTML, PDF or DOCX.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format represents the export output format
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm", "markup":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// Losses lists what the format could not represent.
	Losses []Loss
}

// Loss describes one piece of the document an export dropped or flattened.
type Loss struct {
	NodeID string `json:"node_id"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

var (
	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
