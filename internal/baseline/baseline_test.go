package baseline

import (
	"path/filepath"
	"testing"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

func TestStore_PutGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, ok, _ := s.Get("p1"); ok {
		t.Fatal("expected no baseline before Put")
	}

	if err := s.Put("p1", "hello"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	body, ok, err := s.Get("p1")
	if err != nil || !ok || body != "hello" {
		t.Fatalf("Get = %q, %v, %v", body, ok, err)
	}

	if err := s.Delete("p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get("p1"); ok {
		t.Fatal("expected no baseline after Delete")
	}
}

func TestStore_Rekey(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Put("old", "content"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := s.Rekey("old", "new"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}

	if _, ok, _ := s.Get("old"); ok {
		t.Error("old id should no longer have a baseline after Rekey")
	}
	body, ok, err := s.Get("new")
	if err != nil || !ok || body != "content" {
		t.Fatalf("Get(new) = %q, %v, %v", body, ok, err)
	}
}

func TestStore_Rekey_NoSourceIsNotAnError(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Rekey("missing", "also-missing"); err != nil {
		t.Fatalf("Rekey with no source baseline should not error: %v", err)
	}
}

func TestStore_Rekey_SameID(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("p1", "body"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Rekey("p1", "p1"); err != nil {
		t.Fatalf("Rekey same id: %v", err)
	}
	if body, ok, _ := s.Get("p1"); !ok || body != "body" {
		t.Fatal("expected baseline to survive a same-id Rekey")
	}
}

func TestStore_path(t *testing.T) {
	s := &Store{dir: "/tmp/baselines"}
	if got := s.path(remote.PageID("abc")); got != filepath.Join("/tmp/baselines", "abc.md") {
		t.Errorf("path() = %q", got)
	}
}
