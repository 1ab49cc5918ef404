package orchestrator

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// pathResolver is the shared id<->path index the orchestrator builds during
// discovery and hands to the remote backend so wiki-links resolve to page
// ids when pushing, and page mentions resolve back to wiki-links when
// pulling. It satisfies both transformer.LinkResolver and
// transformer.PathLookup.
type pathResolver struct {
	mu       sync.RWMutex
	idToPath map[remote.PageID]string
	pathToID map[string]remote.PageID
}

func newPathResolver() *pathResolver {
	return &pathResolver{
		idToPath: map[remote.PageID]string{},
		pathToID: map[string]remote.PageID{},
	}
}

// PathResolver is the exported handle to a pathResolver, returned so a
// caller wiring up a remote.Client can build it before the Engine and
// pass it to both NewEngine and the backend's LinkResolver/PathLookup
// options.
type PathResolver = pathResolver

// NewPathResolver creates a resolver with no entries. The orchestrator
// populates it during Cycle's discovery phase; a caller building the
// remote.Client ahead of that should pass the same instance to both
// NewEngine and the backend constructor.
func NewPathResolver() *PathResolver {
	return newPathResolver()
}

func (r *pathResolver) set(id remote.PageID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idToPath[id] = path
	r.pathToID[path] = id
}

// rekey re-indexes a page from oldID to newID at path, used after a
// backend recreates a page under a new id during a reparent.
func (r *pathResolver) rekey(oldID, newID remote.PageID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.idToPath, oldID)
	r.idToPath[newID] = path
	r.pathToID[path] = newID
}

// Resolve implements transformer.LinkResolver: target is a wiki-link target
// as written in the source document (usually a bare title, sometimes a
// relative path). It first tries an exact path match, then falls back to
// matching any tracked page whose filename matches.
func (r *pathResolver) Resolve(target string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidate := target
	if !strings.HasSuffix(candidate, ".md") {
		candidate += ".md"
	}
	if id, ok := r.pathToID[candidate]; ok {
		return string(id), true
	}

	want := filesafe(filepath.Base(target)) + ".md"
	for path, id := range r.pathToID {
		if filepath.Base(path) == want {
			return string(id), true
		}
	}
	return "", false
}

// LookupPath implements transformer.PathLookup.
func (r *pathResolver) LookupPath(notionPageID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idToPath[remote.PageID(notionPageID)]
	return p, ok
}
