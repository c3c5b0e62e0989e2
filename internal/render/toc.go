package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TOCEntry is one heading of the table of contents.
type TOCEntry struct {
	Level int
	Text  string
	ID    string
}

var nonIDChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// annotateHeadings gives every h1-h3 of body an id (keeping existing ones),
// drops script elements, and returns the rewritten markup with the headings
// in document order.
func annotateHeadings(body string) (string, []TOCEntry, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(body), container)
	if err != nil {
		return "", nil, fmt.Errorf("parse body: %w", err)
	}

	var entries []TOCEntry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && c.DataAtom == atom.Script {
				n.RemoveChild(c)
				c = next
				continue
			}
			if level := headingLevel(c); level > 0 {
				entries = append(entries, tagHeading(c, level, len(entries)))
			}
			walk(c)
			c = next
		}
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	walk(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", nil, fmt.Errorf("render body: %w", err)
		}
	}
	return buf.String(), entries, nil
}

func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	}
	return 0
}

func tagHeading(n *html.Node, level, index int) TOCEntry {
	text := strings.TrimSpace(textContent(n))
	for _, a := range n.Attr {
		if a.Key == "id" && a.Val != "" {
			return TOCEntry{Level: level, Text: text, ID: a.Val}
		}
	}

	slug := nonIDChars.ReplaceAllString(text, "")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	id := fmt.Sprintf("section-%d-%s", index, slug)
	n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
	return TOCEntry{Level: level, Text: text, ID: id}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
