package template

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FlattenRichText turns lightly marked-up rich text (<b>, <i>, <br>, <p>,
// entities) into plain text. Text nodes are kept byte for byte so that
// author-entered runs of spaces survive; only block boundaries and <br>
// become newlines. Input without markup is returned unchanged.
func FlattenRichText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return s
	}
	var b strings.Builder
	for _, n := range nodes {
		flatten(n, &b)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func flatten(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, b)
	}
	if block && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.H1, atom.H2, atom.H3,
		atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Pre, atom.Tr:
		return true
	}
	return false
}
