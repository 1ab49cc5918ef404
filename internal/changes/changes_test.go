package changes

import (
	"path/filepath"
	"testing"

	"github.com/obsidian-notion-sync/wikisync/internal/baseline"
	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

func newTestDetector(t *testing.T) (*Detector, *baseline.Store) {
	t.Helper()
	store, err := baseline.Open(t.TempDir())
	if err != nil {
		t.Fatalf("baseline.Open: %v", err)
	}
	return New(store), store
}

func TestDetect_Unchanged(t *testing.T) {
	d, store := newTestDetector(t)
	if err := store.Put("page-1", "hello"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tm, _ := LoadTrackedMap(filepath.Join(t.TempDir(), "tracked.yaml"))
	tm.Set("page-1", "note.md")

	changes, err := d.Detect(tm,
		map[string]string{"note.md": "hello"},
		map[remote.PageID]remote.RemotePage{"page-1": {ID: "page-1", Body: "hello"}},
	)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != Unchanged {
		t.Fatalf("changes = %+v; want single Unchanged entry", changes)
	}
}

func TestDetect_LocalModified(t *testing.T) {
	d, store := newTestDetector(t)
	store.Put("page-1", "hello")

	tm, _ := LoadTrackedMap(filepath.Join(t.TempDir(), "tracked.yaml"))
	tm.Set("page-1", "note.md")

	changes, err := d.Detect(tm,
		map[string]string{"note.md": "hello world"},
		map[remote.PageID]remote.RemotePage{"page-1": {ID: "page-1", Body: "hello"}},
	)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != LocalModified {
		t.Fatalf("changes = %+v; want single LocalModified entry", changes)
	}
}

func TestDetect_BothModifiedDivergently(t *testing.T) {
	d, store := newTestDetector(t)
	store.Put("page-1", "hello")

	tm, _ := LoadTrackedMap(filepath.Join(t.TempDir(), "tracked.yaml"))
	tm.Set("page-1", "note.md")

	changes, err := d.Detect(tm,
		map[string]string{"note.md": "hello local"},
		map[remote.PageID]remote.RemotePage{"page-1": {ID: "page-1", Body: "hello remote"}},
	)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != BothModified {
		t.Fatalf("changes = %+v; want single BothModified entry", changes)
	}
}

func TestDetect_RemoteDeleted(t *testing.T) {
	d, store := newTestDetector(t)
	store.Put("page-1", "hello")

	tm, _ := LoadTrackedMap(filepath.Join(t.TempDir(), "tracked.yaml"))
	tm.Set("page-1", "note.md")

	changes, err := d.Detect(tm,
		map[string]string{"note.md": "hello"},
		map[remote.PageID]remote.RemotePage{},
	)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != RemoteDeleted {
		t.Fatalf("changes = %+v; want single RemoteDeleted entry", changes)
	}
}

func TestDetect_NewLocalAndRemoteAdditions(t *testing.T) {
	d, _ := newTestDetector(t)
	tm, _ := LoadTrackedMap(filepath.Join(t.TempDir(), "tracked.yaml"))

	changes, err := d.Detect(tm,
		map[string]string{"new.md": "content"},
		map[remote.PageID]remote.RemotePage{"page-9": {ID: "page-9", Body: "remote content"}},
	)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}

	var sawLocalAdded, sawRemoteAdded bool
	for _, c := range changes {
		switch c.Kind {
		case LocalAdded:
			sawLocalAdded = true
		case RemoteAdded:
			sawRemoteAdded = true
		}
	}
	if !sawLocalAdded || !sawRemoteAdded {
		t.Errorf("missing expected additions: %+v", changes)
	}
}

func TestTrackedMap_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracked.yaml")
	tm, err := LoadTrackedMap(path)
	if err != nil {
		t.Fatalf("LoadTrackedMap: %v", err)
	}
	tm.Set("page-1", "a/b.md")

	if err := tm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadTrackedMap(path)
	if err != nil {
		t.Fatalf("LoadTrackedMap (reload): %v", err)
	}
	p, ok := reloaded.PathFor("page-1")
	if !ok || p != "a/b.md" {
		t.Errorf("PathFor(page-1) = %q, %v; want a/b.md, true", p, ok)
	}
}
