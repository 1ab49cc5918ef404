package transformer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PathLookup resolves a remote page id back to the local file path it is
// tracked under, so reverse conversion can render an inbound page-link
// macro as a relative markdown link instead of a bare page id.
type PathLookup interface {
	// LookupPath returns the local path tracked for pageID, if any.
	LookupPath(pageID string) (path string, found bool)
}

// ReverseTransformer renders a remote page's XHTML storage-format body
// back to markdown for writing to the local sync directory.
type ReverseTransformer struct {
	lookup PathLookup
}

// NewReverse creates a ReverseTransformer using lookup to resolve inbound
// page links. lookup may be nil, in which case page links render with
// their raw remote page id.
func NewReverse(lookup PathLookup) *ReverseTransformer {
	return &ReverseTransformer{lookup: lookup}
}

// Transform renders xhtml, the remote storage-format body, to markdown.
func (r *ReverseTransformer) Transform(xhtml string) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(xhtml), context)
	if err != nil {
		return "", fmt.Errorf("parse storage format: %w", err)
	}

	var b strings.Builder
	rc := &renderCtx{out: &b}
	for _, n := range nodes {
		rc.renderNode(n, r.lookup)
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// renderCtx carries the small amount of state needed while walking the DOM:
// current list nesting depth and ordered-list item counters.
type renderCtx struct {
	out        *strings.Builder
	listDepth  int
	orderedIdx []int
}

func (rc *renderCtx) renderNode(n *html.Node, lookup PathLookup) {
	switch n.Type {
	case html.TextNode:
		rc.out.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	if n.Type != html.ElementNode {
		rc.renderChildren(n, lookup)
		return
	}

	tag := strings.ToLower(n.Data)
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tag[1] - '0')
		rc.out.WriteString(strings.Repeat("#", level) + " ")
		rc.renderChildren(n, lookup)
		rc.out.WriteString("\n\n")

	case "p":
		rc.renderChildren(n, lookup)
		rc.out.WriteString("\n\n")

	case "strong", "b":
		rc.out.WriteString("**")
		rc.renderChildren(n, lookup)
		rc.out.WriteString("**")

	case "em", "i":
		rc.out.WriteString("_")
		rc.renderChildren(n, lookup)
		rc.out.WriteString("_")

	case "code":
		rc.out.WriteString("`")
		rc.renderChildren(n, lookup)
		rc.out.WriteString("`")

	case "pre":
		rc.out.WriteString("```\n")
		rc.renderPreText(n)
		rc.out.WriteString("\n```\n\n")

	case "blockquote":
		var inner strings.Builder
		sub := &renderCtx{out: &inner, listDepth: rc.listDepth}
		sub.renderChildren(n, lookup)
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			rc.out.WriteString("> " + line + "\n")
		}
		rc.out.WriteString("\n")

	case "ul":
		rc.listDepth++
		rc.renderChildren(n, lookup)
		rc.listDepth--
		if rc.listDepth == 0 {
			rc.out.WriteString("\n")
		}

	case "ol":
		rc.orderedIdx = append(rc.orderedIdx, 0)
		rc.listDepth++
		rc.renderChildren(n, lookup)
		rc.listDepth--
		rc.orderedIdx = rc.orderedIdx[:len(rc.orderedIdx)-1]
		if rc.listDepth == 0 {
			rc.out.WriteString("\n")
		}

	case "li":
		indent := strings.Repeat("  ", maxInt(rc.listDepth-1, 0))
		if len(rc.orderedIdx) > 0 {
			i := len(rc.orderedIdx) - 1
			rc.orderedIdx[i]++
			rc.out.WriteString(fmt.Sprintf("%s%d. ", indent, rc.orderedIdx[i]))
		} else {
			rc.out.WriteString(indent + "- ")
		}
		rc.renderChildren(n, lookup)
		rc.out.WriteString("\n")

	case "hr":
		rc.out.WriteString("---\n\n")

	case "br":
		rc.out.WriteString("\n")

	case "a":
		rc.renderAnchor(n, lookup)

	case "ac:link":
		rc.renderPageLink(n, lookup)

	default:
		rc.renderChildren(n, lookup)
	}
}

func (rc *renderCtx) renderChildren(n *html.Node, lookup PathLookup) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rc.renderNode(c, lookup)
	}
}

// renderPreText emits a <pre> block's text content verbatim, skipping the
// markup goldmark wraps it in (typically a nested <code>).
func (rc *renderCtx) renderPreText(n *html.Node) {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	rc.out.WriteString(strings.TrimRight(b.String(), "\n"))
}

func (rc *renderCtx) renderAnchor(n *html.Node, lookup PathLookup) {
	href := attr(n, "href")
	var text strings.Builder
	sub := &renderCtx{out: &text, listDepth: rc.listDepth}
	sub.renderChildren(n, lookup)
	rc.out.WriteString(fmt.Sprintf("[%s](%s)", text.String(), href))
}

// renderPageLink converts a storage-format <ac:link><ri:page .../></ac:link>
// macro back to a relative markdown link, resolving its target page id
// through lookup when possible. ri:page and ac:plain-text-link-body are
// found by walking all descendants rather than assuming a flat sibling
// layout: the HTML5 parsing algorithm only honors a self-closing "/>" on
// foreign (SVG/MathML) elements, so the self-closed <ri:page/> this macro
// is written with leaves the element open and nests whatever storage
// format emits next as its child instead of its sibling.
func (rc *renderCtx) renderPageLink(n *html.Node, lookup PathLookup) {
	var pageID, body string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch strings.ToLower(node.Data) {
			case "ri:page":
				pageID = attr(node, "ri:content-id")
			case "ac:plain-text-link-body":
				body = plainTextContent(node)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	target := pageID
	if lookup != nil {
		if path, ok := lookup.LookupPath(pageID); ok {
			target = path
		}
	}
	if body == "" {
		body = target
	}
	rc.out.WriteString(fmt.Sprintf("[%s](%s)", body, target))
}

// plainTextContent concatenates a node's direct text children.
func plainTextContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
