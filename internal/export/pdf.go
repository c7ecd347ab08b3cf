package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Paper is a printable page size in inches.
type Paper struct {
	Name   string
	Width  float64
	Height float64
}

var (
	PaperLetter = Paper{Name: "Letter", Width: 8.5, Height: 11}
	PaperA4     = Paper{Name: "A4", Width: 8.27, Height: 11.69}
)

// ParsePaper maps a config value onto a page size. Unknown names fall back
// to Letter.
func ParsePaper(name string) Paper {
	if strings.EqualFold(name, "a4") {
		return PaperA4
	}
	return PaperLetter
}

// chromeCandidates are tried in order when no explicit path is configured.
var chromeCandidates = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// PDFRenderer prints HTML pages with headless Chrome.
type PDFRenderer struct {
	ChromePath string
	Paper      Paper
	Timeout    time.Duration
}

func (r *PDFRenderer) execPath() (string, error) {
	if r.ChromePath != "" {
		if _, err := exec.LookPath(r.ChromePath); err != nil {
			return "", fmt.Errorf("%w: %s not found", ErrPDFDependencyMissing, r.ChromePath)
		}
		return r.ChromePath, nil
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}

// Render converts a full HTML page to PDF.
func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	path, err := r.execPath()
	if err != nil {
		return nil, err
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	paper := r.Paper
	if paper.Width == 0 {
		paper = PaperLetter
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Chrome options for headless mode in container
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdfData []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paper.Width).
				WithPaperHeight(paper.Height).
				WithMarginTop(0.75).
				WithMarginBottom(0.75).
				WithMarginLeft(0.75).
				WithMarginRight(0.75).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdfData, nil
}

// percentEncodeForDataURL encodes s for a data URL. Spaces become %20,
// never '+'.
func percentEncodeForDataURL(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

// sanitizeFilename builds a download name from a title.
func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('-')
		}
		if sb.Len() >= 50 {
			break
		}
	}
	if sb.Len() == 0 {
		return "resume"
	}
	return sb.String()
}
