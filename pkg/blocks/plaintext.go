package blocks

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// PlainText derives the text/plain alternative of an exported document.
// Links keep their target in parentheses and hidden preheaders are dropped.
func PlainText(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("head, style, script").Remove()
	doc.Find(`div[style*="display: none"]`).Remove()

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		switch {
		case href == "" || strings.HasPrefix(href, "#") || href == text:
			s.ReplaceWithHtml(html.EscapeString(text))
		case text == "":
			if alt, ok := s.Find("img").Attr("alt"); ok && alt != "" {
				text = alt
			}
			s.ReplaceWithHtml(html.EscapeString(strings.TrimSpace(text + " " + href)))
		default:
			s.ReplaceWithHtml(html.EscapeString(text + " (" + href + ")"))
		}
	})

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("hr").ReplaceWithHtml("\n----------\n")
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
		s.AppendHtml("\n")
	})
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, ul, ol, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Find("body").Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text := strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}
