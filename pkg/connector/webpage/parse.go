package webpage

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/bifrostdata/bifrost/pkg/errors"
)

// Page is the extracted content of one fetched document.
type Page struct {
	URL        string
	Title      string
	Headings   []string
	Paragraphs []string
	Links      []string
}

// rows renders the requested section as (section, content) result rows.
// "all" concatenates every section in presentation order; an unknown
// target falls back to a substring match over paragraph text.
func (p *Page) rows(target string) [][]any {
	switch strings.ToLower(target) {
	case "title":
		return [][]any{{"title", p.Title}}
	case "headings":
		return sectionRows("headings", p.Headings)
	case "paragraphs", "text":
		return sectionRows("paragraphs", p.Paragraphs)
	case "links":
		return sectionRows("links", p.Links)
	case "all", "*":
		out := [][]any{{"title", p.Title}}
		out = append(out, sectionRows("headings", p.Headings)...)
		out = append(out, sectionRows("paragraphs", p.Paragraphs)...)
		out = append(out, sectionRows("links", p.Links)...)
		return out
	default:
		var out [][]any
		needle := strings.ToLower(target)
		for _, para := range p.Paragraphs {
			if strings.Contains(strings.ToLower(para), needle) {
				out = append(out, []any{"paragraphs", para})
			}
		}
		return out
	}
}

func sectionRows(section string, items []string) [][]any {
	out := make([][]any, 0, len(items))
	for _, item := range items {
		out = append(out, []any{section, item})
	}
	return out
}

// parsePage walks the HTML tree and pulls out the title, headings,
// paragraph text and link targets. Script and style subtrees are
// skipped entirely.
func parsePage(body []byte) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to parse HTML")
	}

	page := &Page{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if page.Title == "" {
					page.Title = nodeText(n)
				}
			case "h1", "h2", "h3", "h4":
				if text := nodeText(n); text != "" {
					page.Headings = append(page.Headings, text)
				}
			case "p", "li":
				if text := nodeText(n); text != "" {
					page.Paragraphs = append(page.Paragraphs, text)
				}
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" && attr.Val != "" && !strings.HasPrefix(attr.Val, "#") {
						page.Links = append(page.Links, attr.Val)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return page, nil
}

// nodeText flattens the text content under one node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
