// Package transformer converts between the plain markdown bodies stored in
// the local sync directory and the XHTML storage-format documents the
// remote wiki's document tree holds.
//
// The forward direction (markdown -> XHTML) renders through goldmark, the
// same Markdown engine the rest of this module already depends on, using
// its XHTML-compliant HTML renderer. Cross-page links get special
// treatment: a relative link to another tracked file is rendered as a
// storage-format page-link macro (<ac:link><ri:page .../></ac:link>)
// instead of a plain anchor, so it keeps resolving after either side
// renames the file it points to.
package transformer

import (
	"bytes"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	gmrenderer "github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// LinkResolver resolves a relative markdown link target to the remote page
// it points at, so forward conversion can emit a page-link macro instead of
// a plain anchor for links between tracked files.
type LinkResolver interface {
	// Resolve looks up a markdown link target (as written in the source,
	// usually a relative path) and returns the remote page id it maps to.
	// Returns empty string and false if the link cannot be resolved.
	Resolve(target string) (pageID string, found bool)
}

// Config holds transformer configuration options.
type Config struct {
	// UnresolvedLinkStyle determines how to render a relative link that
	// LinkResolver could not resolve to a tracked page.
	// Options: "text" (plain text, no link), "anchor" (keep as a normal
	// link, pointing nowhere useful remotely).
	UnresolvedLinkStyle string
}

// DefaultConfig returns the default transformer configuration.
func DefaultConfig() *Config {
	return &Config{UnresolvedLinkStyle: "text"}
}

// NotionPage is a remote page's properties and body, physically stored as
// one or more content blocks since a single Notion rich-text block cannot
// hold arbitrarily long content.
type NotionPage struct {
	// Properties are the page properties (currently just the title).
	Properties notionapi.Properties

	// Body is the page's content, already rendered to XHTML.
	Body string
}

// Transformer renders a local file's markdown body to the XHTML storage
// format the remote tree holds.
type Transformer struct {
	config *Config
	md     goldmark.Markdown
}

// New creates a Transformer with the given link resolver and config.
func New(resolver LinkResolver, cfg *Config) *Transformer {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	htmlRenderer := html.NewRenderer(html.WithXHTML(), html.WithUnsafe())
	links := &pageLinkRenderer{resolver: resolver, config: cfg}

	md := goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRenderer(gmrenderer.NewRenderer(
			gmrenderer.WithNodeRenderers(
				util.Prioritized(htmlRenderer, 1000),
				util.Prioritized(links, 999),
			),
		)),
	)

	return &Transformer{config: cfg, md: md}
}

// Transform renders a local file's markdown body (frontmatter already
// stripped by the caller) to the remote storage-format body, paired with
// the page's title property.
func (t *Transformer) Transform(title string, body []byte) (*NotionPage, error) {
	var buf bytes.Buffer
	if err := t.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markdown to storage format: %w", err)
	}

	return &NotionPage{
		Properties: titleProperties(title),
		Body:       buf.String(),
	}, nil
}

func titleProperties(title string) notionapi.Properties {
	return notionapi.Properties{
		"title": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}, PlainText: title},
			},
		},
	}
}
