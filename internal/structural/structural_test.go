package structural

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

type fakeClient struct {
	deleted    []remote.PageID
	reparented map[remote.PageID]*remote.PageID
	recreateAs remote.PageID
}

func (f *fakeClient) GetPage(ctx context.Context, id remote.PageID) (remote.RemotePage, error) {
	return remote.RemotePage{}, nil
}
func (f *fakeClient) UpdatePage(ctx context.Context, id remote.PageID, title, body string, version int) (remote.RemotePage, error) {
	return remote.RemotePage{}, nil
}
func (f *fakeClient) Reparent(ctx context.Context, id remote.PageID, newParent *remote.PageID) (remote.PageID, error) {
	if f.reparented == nil {
		f.reparented = map[remote.PageID]*remote.PageID{}
	}
	f.reparented[id] = newParent
	if f.recreateAs != "" {
		return f.recreateAs, nil
	}
	return id, nil
}
func (f *fakeClient) Delete(ctx context.Context, id remote.PageID) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeClient) ListDescendants(ctx context.Context, rootID remote.PageID, spaceKey string, limit int, exclude []remote.PageID) ([]remote.RemotePage, error) {
	return nil, nil
}

func TestMoveLocal_RenamesAndPrunesEmptyDir(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "old-dir"), 0o755)
	os.WriteFile(filepath.Join(root, "old-dir", "note.md"), []byte("hi"), 0o644)

	h := New(root, &fakeClient{}, false)
	results := h.MoveLocal([]Move{{PageID: "p1", OldPath: "old-dir/note.md", NewPath: "new-dir/note.md"}})

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if _, err := os.Stat(filepath.Join(root, "new-dir", "note.md")); err != nil {
		t.Errorf("expected moved file at new-dir/note.md: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "old-dir")); !os.IsNotExist(err) {
		t.Errorf("expected old-dir to be pruned, stat err = %v", err)
	}
}

func TestMoveLocal_DryRunDoesNotTouchDisk(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "note.md"), []byte("hi"), 0o644)

	h := New(root, &fakeClient{}, true)
	results := h.MoveLocal([]Move{{PageID: "p1", OldPath: "note.md", NewPath: "moved.md"}})

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if _, err := os.Stat(filepath.Join(root, "note.md")); err != nil {
		t.Errorf("dry run should not have moved the file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "moved.md")); !os.IsNotExist(err) {
		t.Errorf("dry run should not have created moved.md")
	}
}

func TestDeleteRemote_ContinuesOnIndividualOperations(t *testing.T) {
	root := t.TempDir()
	client := &fakeClient{}
	h := New(root, client, false)

	results := h.DeleteRemote(context.Background(), []Delete{{PageID: "p1", Path: "a.md"}, {PageID: "p2", Path: "b.md"}})
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if len(client.deleted) != 2 {
		t.Errorf("expected both deletes to reach the client, got %v", client.deleted)
	}
}

func TestResolveParentPageID_RootLevel(t *testing.T) {
	parent, err := ResolveParentPageID("note.md", func(string) (remote.PageID, bool) { return "", false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent != nil {
		t.Errorf("expected nil parent at space root, got %v", *parent)
	}
}

func TestResolveParentPageID_MissingMarker(t *testing.T) {
	_, err := ResolveParentPageID("project/note.md", func(string) (remote.PageID, bool) { return "", false })
	if err == nil {
		t.Error("expected error when folder marker page id is missing")
	}
}

func TestMoveRemote_ReparentsInPlace(t *testing.T) {
	client := &fakeClient{}
	h := New(t.TempDir(), client, false)

	results := h.MoveRemote(context.Background(), []Move{{PageID: "p1", OldPath: "a.md", NewPath: "b/a.md"}},
		func(string) (*remote.PageID, error) {
			parent := remote.PageID("parent-id")
			return &parent, nil
		})

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].NewPageID != "p1" {
		t.Errorf("expected NewPageID to equal the original id when the backend reparents in place, got %s", results[0].NewPageID)
	}
}

func TestMoveRemote_SurfacesRecreatedID(t *testing.T) {
	client := &fakeClient{recreateAs: "p1-v2"}
	h := New(t.TempDir(), client, false)

	results := h.MoveRemote(context.Background(), []Move{{PageID: "p1", OldPath: "a.md", NewPath: "b/a.md"}},
		func(string) (*remote.PageID, error) {
			parent := remote.PageID("parent-id")
			return &parent, nil
		})

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].NewPageID != "p1-v2" {
		t.Errorf("expected NewPageID = p1-v2, got %s", results[0].NewPageID)
	}
}

func TestResolveParentPageID_ResolvesViaMarker(t *testing.T) {
	parent, err := ResolveParentPageID("project/note.md", func(path string) (remote.PageID, bool) {
		if path == "project.md" {
			return "parent-id", true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent == nil || *parent != "parent-id" {
		t.Errorf("parent = %v; want parent-id", parent)
	}
}
