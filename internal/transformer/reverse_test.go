package transformer

import (
	"strings"
	"testing"
)

type fakePathLookup map[string]string

func (f fakePathLookup) LookupPath(pageID string) (string, bool) {
	path, ok := f[pageID]
	return path, ok
}

func TestReverseTransform_Heading(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<h2>Section</h2>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if strings.TrimSpace(md) != "## Section" {
		t.Errorf("Transform() = %q, want %q", strings.TrimSpace(md), "## Section")
	}
}

func TestReverseTransform_Paragraph(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<p>hello world</p>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if strings.TrimSpace(md) != "hello world" {
		t.Errorf("Transform() = %q, want %q", strings.TrimSpace(md), "hello world")
	}
}

func TestReverseTransform_BoldAndItalic(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<p><strong>bold</strong> and <em>italic</em></p>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got := strings.TrimSpace(md)
	if got != "**bold** and _italic_" {
		t.Errorf("Transform() = %q, want %q", got, "**bold** and _italic_")
	}
}

func TestReverseTransform_UnorderedList(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<ul><li>one</li><li>two</li></ul>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got := strings.TrimSpace(md)
	want := "- one\n- two"
	if got != want {
		t.Errorf("Transform() = %q, want %q", got, want)
	}
}

func TestReverseTransform_OrderedList(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<ol><li>first</li><li>second</li></ol>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got := strings.TrimSpace(md)
	want := "1. first\n2. second"
	if got != want {
		t.Errorf("Transform() = %q, want %q", got, want)
	}
}

func TestReverseTransform_Blockquote(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<blockquote><p>quoted text</p></blockquote>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "> quoted text") {
		t.Errorf("Transform() = %q, want a \"> \" prefixed line", md)
	}
}

func TestReverseTransform_CodeBlock(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<pre><code>x := 1\nreturn x</code></pre>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := "```\nx := 1\nreturn x\n```"
	if strings.TrimSpace(md) != want {
		t.Errorf("Transform() = %q, want %q", strings.TrimSpace(md), want)
	}
}

func TestReverseTransform_PlainAnchor(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform(`<p><a href="https://example.com">docs</a></p>`)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "[docs](https://example.com)") {
		t.Errorf("Transform() = %q, want a markdown link", md)
	}
}

func TestReverseTransform_PageLinkResolvesThroughLookup(t *testing.T) {
	lookup := fakePathLookup{"page-123": "other.md"}
	r := NewReverse(lookup)

	xhtml := `<p>see <ac:link><ri:page ri:content-id="page-123"/>` +
		`<ac:plain-text-link-body>other page</ac:plain-text-link-body></ac:link></p>`
	md, err := r.Transform(xhtml)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "[other page](other.md)") {
		t.Errorf("Transform() = %q, want a relative link to other.md", md)
	}
}

func TestReverseTransform_PageLinkUnresolvedFallsBackToPageID(t *testing.T) {
	r := NewReverse(fakePathLookup{})

	xhtml := `<p><ac:link><ri:page ri:content-id="page-999"/></ac:link></p>`
	md, err := r.Transform(xhtml)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "[page-999](page-999)") {
		t.Errorf("Transform() = %q, want the raw page id used as both link text and target", md)
	}
}

func TestReverseTransform_PageLinkNilLookup(t *testing.T) {
	r := NewReverse(nil)

	xhtml := `<ac:link><ri:page ri:content-id="page-1"/>` +
		`<ac:plain-text-link-body>link text</ac:plain-text-link-body></ac:link>`
	md, err := r.Transform(xhtml)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "[link text](page-1)") {
		t.Errorf("Transform() = %q, want the page id used as the target with a nil lookup", md)
	}
}

func TestReverseTransform_HorizontalRule(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("<p>before</p><hr/><p>after</p>")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !strings.Contains(md, "---") {
		t.Errorf("Transform() = %q, want a --- rule", md)
	}
}

func TestReverseTransform_Empty(t *testing.T) {
	r := NewReverse(nil)
	md, err := r.Transform("")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if md != "\n" {
		t.Errorf("Transform(\"\") = %q, want a single trailing newline", md)
	}
}
