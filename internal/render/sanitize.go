package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tags a slide fragment may keep. Everything else is stripped, keeping
// its text content; attributes are dropped entirely.
var allowedTags = map[string]bool{
	"h2": true, "h3": true, "h4": true,
	"p": true, "ul": true, "ol": true, "li": true,
	"strong": true, "em": true, "b": true, "i": true,
	"blockquote": true, "br": true,
	"div": true, "span": true,
}

// Tags whose entire subtree is dropped, text included.
var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true,
	"object": true, "embed": true, "link": true, "meta": true,
}

// SanitizeFragment reduces model-produced slide HTML to the allowed
// tag set. Parsing failures fall back to escaping the whole input.
func SanitizeFragment(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return html.EscapeString(fragment)
	}

	var sb strings.Builder
	for _, n := range nodes {
		writeSanitized(&sb, n)
	}
	return strings.TrimSpace(sb.String())
}

func writeSanitized(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
		if droppedTags[n.Data] {
			return
		}
		if allowedTags[n.Data] {
			sb.WriteString("<")
			sb.WriteString(n.Data)
			sb.WriteString(">")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeSanitized(sb, c)
			}
			if n.Data != "br" {
				sb.WriteString("</")
				sb.WriteString(n.Data)
				sb.WriteString(">")
			}
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	// Disallowed element: keep the children, drop the tag.
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeSanitized(sb, c)
	}
}
