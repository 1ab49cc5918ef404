package transformer

import (
	"strings"
	"testing"

	"github.com/jomei/notionapi"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(target string) (string, bool) {
	id, ok := f[target]
	return id, ok
}

func TestTransform_Heading(t *testing.T) {
	xform := New(nil, nil)
	page, err := xform.Transform("Untitled", []byte("# Hello\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(page.Body, "<h1") {
		t.Errorf("Body = %q, want an <h1> element", page.Body)
	}
}

func TestTransform_Paragraph(t *testing.T) {
	xform := New(nil, nil)
	page, err := xform.Transform("Untitled", []byte("hello world\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(page.Body, "<p>hello world</p>") {
		t.Errorf("Body = %q, want a <p> element", page.Body)
	}
}

func TestTransform_SetsTitleProperty(t *testing.T) {
	xform := New(nil, nil)
	page, err := xform.Transform("My Title", []byte("body\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	prop, ok := page.Properties["title"]
	if !ok {
		t.Fatal("expected a title property")
	}
	title := prop.(notionapi.TitleProperty)
	if got := title.Title[0].PlainText; got != "My Title" {
		t.Errorf("title = %q, want %q", got, "My Title")
	}
}

func TestTransform_ResolvedLinkRendersPageLinkMacro(t *testing.T) {
	resolver := fakeResolver{"./other.md": "page-123"}
	xform := New(resolver, nil)

	page, err := xform.Transform("Untitled", []byte("see [other page](./other.md)\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if !strings.Contains(page.Body, `<ri:page ri:content-id="page-123"/>`) {
		t.Errorf("Body = %q, want a page-link macro targeting page-123", page.Body)
	}
	if !strings.Contains(page.Body, "<ac:plain-text-link-body>other page</ac:plain-text-link-body>") {
		t.Errorf("Body = %q, want the link text preserved in the macro body", page.Body)
	}
	if strings.Contains(page.Body, "<a href") {
		t.Errorf("Body = %q, should not fall back to a plain anchor for a resolved link", page.Body)
	}
}

func TestTransform_UnresolvedLinkRendersAsPlainText(t *testing.T) {
	xform := New(fakeResolver{}, DefaultConfig())

	page, err := xform.Transform("Untitled", []byte("see [missing page](./missing.md)\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if strings.Contains(page.Body, "<a href") {
		t.Errorf("Body = %q, want no anchor for an unresolved link under the default style", page.Body)
	}
	if strings.Contains(page.Body, "<ac:link>") {
		t.Errorf("Body = %q, should not emit a page-link macro for an unresolved link", page.Body)
	}
	if !strings.Contains(page.Body, "missing page") {
		t.Errorf("Body = %q, want the link text preserved", page.Body)
	}
}

func TestTransform_UnresolvedLinkCanRenderAsAnchor(t *testing.T) {
	xform := New(fakeResolver{}, &Config{UnresolvedLinkStyle: "anchor"})

	page, err := xform.Transform("Untitled", []byte("see [missing page](./missing.md)\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if !strings.Contains(page.Body, `<a href="./missing.md">missing page</a>`) {
		t.Errorf("Body = %q, want a plain anchor when UnresolvedLinkStyle is \"anchor\"", page.Body)
	}
}

func TestTransform_ExternalLinkUnaffectedByResolver(t *testing.T) {
	resolver := fakeResolver{}
	xform := New(resolver, nil)

	page, err := xform.Transform("Untitled", []byte("see [docs](https://example.com/docs)\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if !strings.Contains(page.Body, `<a href="https://example.com/docs">docs</a>`) {
		t.Errorf("Body = %q, want external links rendered as plain anchors", page.Body)
	}
}

func TestTransform_XHTMLSelfClosesVoidElements(t *testing.T) {
	xform := New(nil, nil)
	page, err := xform.Transform("Untitled", []byte("line one\n\nline two\n\n---\n"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(page.Body, "<hr />") {
		t.Errorf("Body = %q, want a self-closed <hr /> under XHTML rendering", page.Body)
	}
}
