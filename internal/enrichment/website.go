package enrichment

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blankLines = regexp.MustCompile(`\n\s*\n+`)

// pageText pulls readable text out of an HTML page, preferring the main
// content container and falling back to the whole body.
func pageText(r io.Reader, limit int) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .cookie-banner, .modal").Remove()

	var sb strings.Builder
	collect := func(s *goquery.Selection) {
		s.Find("h1, h2, h3, p, li").Each(func(_ int, item *goquery.Selection) {
			if t := strings.TrimSpace(item.Text()); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		})
	}

	for _, selector := range []string{"main", "article", "[role='main']", "#content", ".content"} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) { collect(s) })
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		collect(doc.Find("body"))
	}

	if meta, ok := doc.Find("meta[name='description']").Attr("content"); ok && sb.Len() == 0 {
		sb.WriteString(strings.TrimSpace(meta))
	}

	text = strings.TrimSpace(blankLines.ReplaceAllString(sb.String(), "\n"))
	return title, truncate(text, limit), nil
}

// truncate shortens s to at most limit runes, appending "..." when cut.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
