// Package baseline implements the Baseline Store: the last-synced plain
// text body of every tracked page, kept on disk as the merge ancestor for
// three-way merges and as the authoritative source for local-change
// detection (a file has changed locally if it no longer matches its
// baseline, regardless of what its mtime says).
package baseline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// Store persists one baseline body per page id under dir/<id>.md.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating dir if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("baseline: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id remote.PageID) string {
	return filepath.Join(s.dir, string(id)+".md")
}

// IsInitialized reports whether a baseline exists for id.
func (s *Store) IsInitialized(id remote.PageID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Get reads the baseline body for id. ok is false if no baseline exists yet.
func (s *Store) Get(id remote.PageID) (body string, ok bool, err error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("baseline: read %s: %w", id, err)
	}
	return string(data), true, nil
}

// Put writes body as the new baseline for id, atomically.
func (s *Store) Put(id remote.PageID, body string) error {
	target := s.path(id)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return fmt.Errorf("baseline: write %s: %w", id, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("baseline: commit %s: %w", id, err)
	}
	return nil
}

// Delete removes the baseline for id, e.g. after the page is deleted or
// untracked on both sides.
func (s *Store) Delete(id remote.PageID) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("baseline: delete %s: %w", id, err)
	}
	return nil
}

// Rekey moves oldID's baseline file to newID, e.g. after a backend recreates
// a page under a new id during a reparent. A missing source baseline is not
// an error: the page may not have been synced yet.
func (s *Store) Rekey(oldID, newID remote.PageID) error {
	if oldID == newID {
		return nil
	}
	if err := os.Rename(s.path(oldID), s.path(newID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("baseline: rekey %s -> %s: %w", oldID, newID, err)
	}
	return nil
}

// BulkRefresh overwrites the baseline for every id in bodies in one pass,
// used after a clean sync cycle to re-anchor every tracked page at once.
// A failing entry does not stop the others; every failure is returned
// together once all entries have been tried.
func (s *Store) BulkRefresh(bodies map[remote.PageID]string) error {
	var errs []error
	for id, body := range bodies {
		if err := s.Put(id, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
