package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown converts markdown text to HTML with external links opening in a new tab.
func Markdown(text string) template.HTML {
	if text == "" {
		return template.HTML("")
	}

	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})

	return template.HTML(markdown.ToHTML([]byte(text), mdParser, renderer))
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #1d1d1f; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #d2d2d7; padding: 4px 8px; text-align: left; }
code { background: #f5f5f7; padding: 0 4px; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTMLPage wraps rendered markdown in a standalone HTML document.
func HTMLPage(title, markdownText string) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: Markdown(markdownText)})
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return buf.String(), nil
}
