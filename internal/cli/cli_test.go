package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/pkg/frontmatter"
)

func TestParseConfluenceURL(t *testing.T) {
	_, id, ok := frontmatter.ParseConfluenceURL("https://example.atlassian.net/wiki/spaces/ENG/pages/12345/Home")
	if !ok || id != "12345" {
		t.Fatalf("got id=%q ok=%v; want 12345, true", id, ok)
	}
}

func TestRelativeToBinding(t *testing.T) {
	dir := t.TempDir()
	binding := config.SpaceBinding{LocalPath: dir}

	rel, ok := relativeToBinding(binding, filepath.Join(dir, "notes", "a.md"))
	if !ok || rel != filepath.Join("notes", "a.md") {
		t.Fatalf("got rel=%q ok=%v", rel, ok)
	}

	if _, ok := relativeToBinding(binding, filepath.Join(t.TempDir(), "outside.md")); ok {
		t.Fatalf("expected a path outside the binding to be rejected")
	}
}

func TestApplyExclusions(t *testing.T) {
	binding := config.SpaceBinding{SpaceKey: "ENG"}
	out := applyExclusions(binding,
		[]string{"https://example.atlassian.net/wiki/spaces/ENG/pages/999/Old"},
		[]string{"**/drafts/*"},
	)

	if len(out.ExcludePageIDs) != 1 || out.ExcludePageIDs[0] != "999" {
		t.Fatalf("got ExcludePageIDs=%v", out.ExcludePageIDs)
	}
	if len(out.ExcludeLocal) != 1 || out.ExcludeLocal[0] != "**/drafts/*" {
		t.Fatalf("got ExcludeLocal=%v", out.ExcludeLocal)
	}
}

func TestResolveConflictMarkers(t *testing.T) {
	text := "before\n<<<<<<< local\nmine\n=======\ntheirs\n>>>>>>> remote\nafter\n"

	local, changed := resolveConflictMarkers(text, true)
	if !changed {
		t.Fatal("expected markers to be detected")
	}
	if local != "before\nmine\nafter\n" {
		t.Fatalf("keepLocal got %q", local)
	}

	remote, _ := resolveConflictMarkers(text, false)
	if remote != "before\ntheirs\nafter\n" {
		t.Fatalf("keepRemote got %q", remote)
	}

	if _, changed := resolveConflictMarkers("no markers here", true); changed {
		t.Fatal("expected no change for text without markers")
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("ExitCode(nil) = %v; want 0", got)
	}
	wrapped := &exitError{code: 3, err: os.ErrNotExist}
	if got := ExitCode(wrapped); got != 3 {
		t.Fatalf("ExitCode(exitError) = %v; want 3", got)
	}
}
