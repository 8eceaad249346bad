package loader

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser extracts visible text plus title, description and language from HTML pages.
type HTMLParser struct{}

// NewHTMLParser creates an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// 不含可见正文的元素
var skippedElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Object:   true,
}

// 前后换行的块级元素
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

type pageInfo struct {
	title       string
	description string
	language    string
	text        strings.Builder
}

// Parse returns one Document holding the page text.
func (p *HTMLParser) Parse(ctx context.Context, source string, body []byte) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("html parser: parsing %s: %w", source, err)
	}

	info := &pageInfo{}
	collectMetadata(root, info)
	collectText(root, info)

	text := normalizeText(info.text.String())
	if text == "" {
		return []types.Document{}, nil
	}

	meta := baseMetadata(source, "text/html", "html")
	if info.title != "" {
		meta["title"] = info.title
	}
	if info.description != "" {
		meta["description"] = info.description
	}
	if info.language != "" {
		meta["language"] = info.language
	}
	return []types.Document{{PageContent: text, Metadata: meta}}, nil
}

func collectMetadata(n *html.Node, info *pageInfo) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Html:
			if lang := attr(n, "lang"); lang != "" && info.language == "" {
				info.language = lang
			}
		case atom.Title:
			if info.title == "" {
				info.title = strings.Join(strings.Fields(nodeText(n)), " ")
			}
		case atom.Meta:
			name := strings.ToLower(attr(n, "name"))
			if name == "" {
				name = strings.ToLower(attr(n, "property"))
			}
			if (name == "description" || name == "og:description") && info.description == "" {
				info.description = strings.TrimSpace(attr(n, "content"))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMetadata(c, info)
	}
}

func collectText(n *html.Node, info *pageInfo) {
	switch n.Type {
	case html.TextNode:
		info.text.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		info.text.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, info)
	}
	if block {
		info.text.WriteByte('\n')
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// normalizeText 折叠行内空白并去掉空行
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func (p *HTMLParser) MediaTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (p *HTMLParser) Extensions() []string { return []string{".html", ".htm"} }
