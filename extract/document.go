// CLAUDE:SUMMARY DOM abstraction over golang.org/x/net/html: tolerant load, selector removal, body text, script bodies, re-render.
package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOM is the document capability the extractor needs. It is satisfied by
// *Document and can be replaced in tests.
type DOM interface {
	// Remove detaches every element matching selector and returns the count.
	Remove(selector string) int
	// BodyText returns the concatenated text nodes of <body>, excluding
	// script, style, template and noscript content.
	BodyText() string
	// ScriptBodies returns the raw text of every <script> in document order.
	ScriptBodies() []string
	// Render serialises the document back to markup.
	Render() string
}

// Parser loads markup into a DOM. It must not fail on malformed input.
type Parser func(raw string) DOM

// Document is a DOM backed by golang.org/x/net/html.
type Document struct {
	root *html.Node
}

// ParseDocument parses raw with the HTML5 tokenizer, which repairs
// unbalanced and malformed markup instead of rejecting it.
func ParseDocument(raw string) DOM {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// Only reader errors end up here; an empty tree is the tolerant answer.
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{root: root}
}

// Remove detaches every element matching selector.
func (d *Document) Remove(selector string) int {
	nodes := querySelectorAll(d.root, selector)
	removed := 0
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
			removed++
		}
	}
	return removed
}

// BodyText returns the raw text content of <body>. Whitespace is left
// untouched; callers normalise it.
func (d *Document) BodyText() string {
	body := findFirst(d.root, atom.Body)
	if body == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return sb.String()
}

// ScriptBodies returns the text of each <script> element.
func (d *Document) ScriptBodies() []string {
	var out []string
	for _, n := range findAllByTag(d.root, atom.Script) {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		out = append(out, sb.String())
	}
	return out
}

// Render serialises the document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	html.Render(&buf, d.root)
	return buf.String()
}

// findFirst returns the first element with tag in document order.
func findFirst(root *html.Node, tag atom.Atom) *html.Node {
	if root.Type == html.ElementNode && root.DataAtom == tag {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, tag); n != nil {
			return n
		}
	}
	return nil
}

// findAllByTag finds all elements with a specific tag.
func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}
