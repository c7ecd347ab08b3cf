package export

import (
	"context"
	"fmt"
	"html/template"

	"github.com/dgallion1/resumedraft/internal/doctree"
)

// Service produces downloadable exports of a document.
type Service struct {
	pdf *PDFRenderer
}

// NewService creates a new export service. pdf may be nil, in which case
// PDF exports fail with ErrPDFDependencyMissing.
func NewService(pdf *PDFRenderer) *Service {
	return &Service{pdf: pdf}
}

func (s *Service) paper() Paper {
	if s.pdf == nil || s.pdf.Paper.Width == 0 {
		return PaperLetter
	}
	return s.pdf.Paper
}

// Export generates an export in the requested format. title names the
// download; an empty title yields "resume".
func (s *Service) Export(ctx context.Context, format Format, root *doctree.Node, title string) (*Result, error) {
	name := sanitizeFilename(title)
	switch format {
	case FormatMarkdown:
		md, losses := ToMarkdownWithReport(root, MarkdownOptions{})
		return &Result{
			Data:     []byte(md),
			Filename: name + ".md",
			MimeType: "text/markdown; charset=utf-8",
			Losses:   losses,
		}, nil

	case FormatHTML:
		page, err := s.page(root, title)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     []byte(page),
			Filename: name + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil

	case FormatPDF:
		if s.pdf == nil {
			return nil, fmt.Errorf("%w: pdf renderer not configured", ErrPDFDependencyMissing)
		}
		page, err := s.page(root, title)
		if err != nil {
			return nil, err
		}
		data, err := s.pdf.Render(ctx, page)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     data,
			Filename: name + ".pdf",
			MimeType: "application/pdf",
		}, nil

	case FormatDOCX:
		data, losses, err := ToDOCX(root, s.paper())
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     data,
			Filename: name + ".docx",
			MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Losses:   losses,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func (s *Service) page(root *doctree.Node, title string) (string, error) {
	if title == "" {
		title = "Resume"
	}
	page, err := RenderPage(PageData{
		Title: title,
		Paper: s.paper(),
		Body:  template.HTML(ToMarkup(root)),
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return page, nil
}
