// Package structural implements the Move/Delete Handler: applying detected
// renames and deletions to both the vault and the remote page tree.
//
// Deletes are always applied before moves, and moves before content sync,
// so that a page being both moved and renamed in the same cycle never
// collides with a stale path left behind by a delete that ran later, and
// so content pushes land on pages already sitting at their final location.
package structural

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// Move describes a single local-path rename paired with its remote page.
type Move struct {
	PageID  remote.PageID
	OldPath string
	NewPath string
}

// Delete describes a page being removed from tracking entirely.
type Delete struct {
	PageID remote.PageID
	Path   string
}

// Result records what happened to one move or delete, so a dry run or a
// partial failure can be reported without aborting the whole batch.
type Result struct {
	PageID remote.PageID
	Path   string
	Err    error

	// NewPageID is set by MoveRemote when the backend had to recreate the
	// page under its new parent instead of reparenting it in place. Zero
	// value means the page kept its original id.
	NewPageID remote.PageID
}

// Handler applies moves and deletes to a vault rooted at vaultRoot and to
// the remote page tree via client.
type Handler struct {
	vaultRoot string
	client    remote.Client
	dryRun    bool
}

// New creates a Handler. When dryRun is true, no filesystem or remote
// mutation occurs; every operation is only logged via the returned Results.
func New(vaultRoot string, client remote.Client, dryRun bool) *Handler {
	return &Handler{vaultRoot: vaultRoot, client: client, dryRun: dryRun}
}

// DeleteLocal removes local files for pages deleted remotely. A missing
// file or an OS error for one delete does not stop the rest of the batch.
func (h *Handler) DeleteLocal(deletes []Delete) []Result {
	results := make([]Result, 0, len(deletes))
	for _, d := range deletes {
		if h.dryRun {
			results = append(results, Result{PageID: d.PageID, Path: d.Path})
			continue
		}
		abs := filepath.Join(h.vaultRoot, d.Path)
		err := os.Remove(abs)
		if err != nil && os.IsNotExist(err) {
			err = nil
		}
		results = append(results, Result{PageID: d.PageID, Path: d.Path, Err: err})
	}
	return results
}

// DeleteRemote removes remote pages for files deleted locally.
func (h *Handler) DeleteRemote(ctx context.Context, deletes []Delete) []Result {
	results := make([]Result, 0, len(deletes))
	for _, d := range deletes {
		if h.dryRun {
			results = append(results, Result{PageID: d.PageID, Path: d.Path})
			continue
		}
		err := h.client.Delete(ctx, d.PageID)
		results = append(results, Result{PageID: d.PageID, Path: d.Path, Err: err})
	}
	return results
}

// MoveLocal renames local files to match a remote-side move. On success, it
// prunes any directories left empty by the move, walking upward from the
// old location until it hits a non-empty directory, the vault root, or an
// error.
func (h *Handler) MoveLocal(moves []Move) []Result {
	results := make([]Result, 0, len(moves))
	for _, m := range moves {
		if h.dryRun {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath})
			continue
		}

		oldAbs := filepath.Join(h.vaultRoot, m.OldPath)
		newAbs := filepath.Join(h.vaultRoot, m.NewPath)

		if _, err := os.Stat(oldAbs); err != nil {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath, Err: fmt.Errorf("structural: source %s: %w", m.OldPath, err)})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath, Err: fmt.Errorf("structural: create parent for %s: %w", m.NewPath, err)})
			continue
		}

		if err := os.Rename(oldAbs, newAbs); err != nil {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath, Err: fmt.Errorf("structural: move %s -> %s: %w", m.OldPath, m.NewPath, err)})
			continue
		}

		h.cleanupEmptyDirs(filepath.Dir(oldAbs))
		results = append(results, Result{PageID: m.PageID, Path: m.NewPath})
	}
	return results
}

// cleanupEmptyDirs removes dir and its ancestors, stopping at the vault
// root, the first non-empty directory, or the first error.
func (h *Handler) cleanupEmptyDirs(dir string) {
	root := filepath.Clean(h.vaultRoot)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root) {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// MoveRemote reparents remote pages to match a local-side move, deriving
// each page's new parent from where its sibling folder-marker file points.
func (h *Handler) MoveRemote(ctx context.Context, moves []Move, resolveParent func(newPath string) (*remote.PageID, error)) []Result {
	results := make([]Result, 0, len(moves))
	for _, m := range moves {
		if h.dryRun {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath})
			continue
		}

		parent, err := resolveParent(m.NewPath)
		if err != nil {
			results = append(results, Result{PageID: m.PageID, Path: m.NewPath, Err: err})
			continue
		}

		newID, err := h.client.Reparent(ctx, m.PageID, parent)
		results = append(results, Result{PageID: m.PageID, Path: m.NewPath, Err: err, NewPageID: newID})
	}
	return results
}

// ResolveParentPageID implements the folder-marker convention: a page
// tracked at "notes/project.md" is the parent for anything under
// "notes/project/". Returns nil with no error if newPath is already at the
// space root (no folder component).
func ResolveParentPageID(newPath string, idForPath func(path string) (remote.PageID, bool)) (*remote.PageID, error) {
	dir := filepath.Dir(newPath)
	if dir == "." || dir == "/" {
		return nil, nil
	}

	markerPath := dir + ".md"
	id, ok := idForPath(markerPath)
	if !ok {
		return nil, fmt.Errorf("structural: expected folder marker %s to be tracked with a page id", markerPath)
	}
	return &id, nil
}
