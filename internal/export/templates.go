package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
	}

	content, err := templateFS.ReadFile("templates/resume.html")
	if err != nil {
		pageTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	pageTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(string(content)))
}

// PageData holds data for full page rendering.
type PageData struct {
	Title string
	Paper Paper
	Body  template.HTML
}

// RenderPage wraps rendered markup into a standalone printable page.
func RenderPage(data PageData) (string, error) {
	if data.Paper.Name == "" {
		data.Paper = PaperLetter
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    @page { size: {{.Paper.Name | lower}}; }
    body { font-family: Arial, sans-serif; line-height: 1.5; }
    .page { position: relative; }
  </style>
</head>
<body>
  <div class="page">{{.Body}}</div>
</body>
</html>`
