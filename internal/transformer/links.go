package transformer

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// pageLinkRenderer overrides goldmark's default link rendering for *ast.Link
// nodes: a link whose destination resolves to a tracked remote page is
// rendered as a storage-format page-link macro instead of a plain anchor.
// Everything else (external URLs, unresolved relative links per
// Config.UnresolvedLinkStyle) falls back to a plain <a> tag or bare text.
type pageLinkRenderer struct {
	resolver LinkResolver
	config   *Config
}

func (r *pageLinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
}

func (r *pageLinkRenderer) renderLink(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	link := n.(*ast.Link)
	dest := string(link.Destination)
	text := linkText(n, source)

	if r.resolver != nil {
		if pageID, ok := r.resolver.Resolve(dest); ok {
			w.WriteString(`<ac:link>`)
			w.WriteString(`<ri:page ri:content-id="`)
			w.WriteString(string(util.EscapeHTML([]byte(pageID))))
			w.WriteString(`"/>`)
			if text != "" {
				w.WriteString(`<ac:plain-text-link-body>`)
				w.WriteString(string(util.EscapeHTML([]byte(text))))
				w.WriteString(`</ac:plain-text-link-body>`)
			}
			w.WriteString(`</ac:link>`)
			return ast.WalkSkipChildren, nil
		}
	}

	if isRelativeLink(dest) && r.config != nil && r.config.UnresolvedLinkStyle == "text" {
		w.WriteString(string(util.EscapeHTML([]byte(text))))
		return ast.WalkSkipChildren, nil
	}

	w.WriteString(`<a href="`)
	w.WriteString(string(util.EscapeHTML([]byte(dest))))
	w.WriteString(`">`)
	w.WriteString(string(util.EscapeHTML([]byte(text))))
	w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

// linkText concatenates the plain text content of a link's inline children.
// Nested inline formatting (bold, italic) inside link text is flattened to
// plain text; this is a deliberate simplification since Confluence page
// link macros only carry a plain-text body.
func linkText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			continue
		}
		b.WriteString(linkText(c, source))
	}
	return b.String()
}

// isRelativeLink reports whether dest looks like a same-directory-tree
// reference (no scheme, not an absolute URL) rather than an external link.
func isRelativeLink(dest string) bool {
	return !strings.Contains(dest, "://") && !strings.HasPrefix(dest, "mailto:")
}
