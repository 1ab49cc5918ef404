// Package changes implements the Change Detector: reconciling the local
// vault and the remote page tree against the last-synced baseline to
// classify every tracked (and newly discovered) page as unchanged,
// modified on one or both sides, added, or deleted. Moves are not
// classified here; the orchestrator plans them from the tracked map.
package changes

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// TrackedMap is the persisted sync state: the last wall-clock time a
// bidirectional cycle completed, plus the mapping from remote page id to
// the local path it corresponds to. The tracked map is the ground truth
// move/delete detection is computed against: a path the map no longer
// agrees with is either a rename the sync engine must detect, or a file
// the user created outside any tracked page.
type TrackedMap struct {
	path       string
	byID       map[remote.PageID]string
	lastSynced time.Time
}

type trackedFile struct {
	LastSynced *time.Time        `yaml:"last_synced,omitempty"`
	Pages      map[string]string `yaml:"tracked_pages"`
}

// LoadTrackedMap reads the tracked map from path, returning an empty map
// if the file does not exist yet (first sync).
func LoadTrackedMap(path string) (*TrackedMap, error) {
	tm := &TrackedMap{path: path, byID: map[remote.PageID]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tm, nil
		}
		return nil, fmt.Errorf("changes: read tracked map %s: %w", path, err)
	}

	var f trackedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("changes: parse tracked map %s: %w", path, err)
	}
	for id, p := range f.Pages {
		tm.byID[remote.PageID(id)] = p
	}
	if f.LastSynced != nil {
		tm.lastSynced = *f.LastSynced
	}
	return tm, nil
}

// LastSynced returns the wall-clock time the last successful bidirectional
// cycle completed, or the zero time before any cycle has run.
func (tm *TrackedMap) LastSynced() time.Time {
	return tm.lastSynced
}

// SetLastSynced records a new last-synced timestamp, normalized to UTC
// per spec §3.
func (tm *TrackedMap) SetLastSynced(t time.Time) {
	tm.lastSynced = t.UTC()
}

// Save writes the tracked map back to disk.
func (tm *TrackedMap) Save() error {
	f := trackedFile{Pages: map[string]string{}}
	if !tm.lastSynced.IsZero() {
		ls := tm.lastSynced
		f.LastSynced = &ls
	}
	for id, p := range tm.byID {
		f.Pages[string(id)] = p
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("changes: marshal tracked map: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(tm.path), 0o755); err != nil {
		return fmt.Errorf("changes: create %s: %w", filepath.Dir(tm.path), err)
	}
	tmp := tm.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("changes: write tracked map: %w", err)
	}
	if err := os.Rename(tmp, tm.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("changes: commit tracked map: %w", err)
	}
	return nil
}

// PathFor returns the local path tracked for id, if any.
func (tm *TrackedMap) PathFor(id remote.PageID) (string, bool) {
	p, ok := tm.byID[id]
	return p, ok
}

// IDFor returns the page id tracked for a local path, if any.
func (tm *TrackedMap) IDFor(path string) (remote.PageID, bool) {
	for id, p := range tm.byID {
		if p == path {
			return id, true
		}
	}
	return "", false
}

// Set records path as the tracked location of id.
func (tm *TrackedMap) Set(id remote.PageID, path string) {
	tm.byID[id] = path
}

// Delete removes id from the tracked map.
func (tm *TrackedMap) Delete(id remote.PageID) {
	delete(tm.byID, id)
}

// All returns every tracked (id, path) pair.
func (tm *TrackedMap) All() map[remote.PageID]string {
	out := make(map[remote.PageID]string, len(tm.byID))
	for id, p := range tm.byID {
		out[id] = p
	}
	return out
}
