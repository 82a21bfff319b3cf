package converter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// voidElements are serialized without a closing tag
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

// RenderIndented serializes a selection with every start tag, text chunk,
// and end tag on its own indented line. The output re-parses to the same
// tree; the added whitespace is insignificant outside pre, and pre
// subtrees are emitted verbatim.
func RenderIndented(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		renderNode(&b, node, 0)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *html.Node, depth int) {
	indent := strings.Repeat(" ", depth)

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(indent)
			b.WriteString(html.EscapeString(text))
			b.WriteString("\n")
		}
	case html.ElementNode:
		if n.Data == "pre" {
			// Indenting inside pre would change its content
			b.WriteString(indent)
			_ = html.Render(b, n)
			b.WriteString("\n")
			return
		}

		b.WriteString(indent)
		b.WriteString("<")
		b.WriteString(n.Data)
		for _, attr := range n.Attr {
			b.WriteString(" ")
			b.WriteString(attr.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attr.Val))
			b.WriteString(`"`)
		}
		b.WriteString(">")
		b.WriteString("\n")

		if voidElements[n.Data] {
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c, depth+1)
		}

		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteString(">")
		b.WriteString("\n")
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c, depth)
		}
	}
}
