package extract

import (
	"context"
	gohtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var strictPolicy = bluemonday.StrictPolicy()

// extractHTML renders an HTML document to plain text: charset-decode, strip
// script and style subtrees, collect text nodes.
func (s *Set) extractHTML(ctx context.Context, path, scratch string) (string, error) {
	data, err := readCapped(path, maxTextBytes)
	if err != nil {
		return "", err
	}
	return Sanitize(htmlToText(decodeToUTF8(data))), nil
}

// htmlToText extracts the visible text of an HTML document. Parse failures
// degrade to a tag-stripping pass.
func htmlToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return gohtml.UnescapeString(strictPolicy.Sanitize(src))
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
