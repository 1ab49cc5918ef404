package changes

import (
	"fmt"

	"github.com/obsidian-notion-sync/wikisync/internal/baseline"
	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// Kind classifies how a tracked page differs between local, remote, and
// its baseline.
type Kind int

const (
	Unchanged Kind = iota
	LocalModified
	RemoteModified
	BothModified
	LocalAdded
	RemoteAdded
	LocalDeleted
	RemoteDeleted
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case LocalModified:
		return "local-modified"
	case RemoteModified:
		return "remote-modified"
	case BothModified:
		return "both-modified"
	case LocalAdded:
		return "local-added"
	case RemoteAdded:
		return "remote-added"
	case LocalDeleted:
		return "local-deleted"
	case RemoteDeleted:
		return "remote-deleted"
	default:
		return "unknown"
	}
}

// Change describes one page's reconciled state for this sync cycle.
type Change struct {
	PageID     remote.PageID
	Path       string
	Kind       Kind
	BaseBody   string
	LocalBody  string
	RemoteBody string
}

// Detector reconciles the local vault, the remote page tree, and the
// baseline store to classify every tracked and newly discovered page.
//
// Local changes are detected against the baseline body, not file mtimes:
// a mtime fast path alone is vulnerable to clock skew between the machine
// and the remote, and to external tools that touch a file without
// changing its content. Comparing against the baseline catches both
// false positives (touched but unchanged) and false negatives (changed
// but mtime preserved by a restore) that a pure mtime check would miss.
type Detector struct {
	baseline *baseline.Store
}

// New creates a Detector backed by the given baseline store.
func New(store *baseline.Store) *Detector {
	return &Detector{baseline: store}
}

// Detect reconciles tracked pages plus any local or remote additions.
// localBodies maps vault-relative path to its current file content;
// remotePages maps page id to its current snapshot. Every tracked (id,
// path) pair is classified, and any local path or remote page missing
// from the tracked map produces a LocalAdded or RemoteAdded entry.
func (d *Detector) Detect(tracked *TrackedMap, localBodies map[string]string, remotePages map[remote.PageID]remote.RemotePage) ([]Change, error) {
	var out []Change
	seenPaths := map[string]bool{}
	seenIDs := map[remote.PageID]bool{}

	for id, path := range tracked.All() {
		seenPaths[path] = true
		seenIDs[id] = true

		localBody, hasLocal := localBodies[path]
		remotePage, hasRemote := remotePages[id]

		base, hasBase, err := d.baseline.Get(id)
		if err != nil {
			return nil, fmt.Errorf("changes: read baseline for %s: %w", id, err)
		}

		switch {
		case !hasLocal && !hasRemote:
			continue // fully gone on both sides; nothing to reconcile
		case hasLocal && !hasRemote:
			out = append(out, Change{PageID: id, Path: path, Kind: RemoteDeleted, BaseBody: base, LocalBody: localBody})
		case !hasLocal && hasRemote:
			out = append(out, Change{PageID: id, Path: path, Kind: LocalDeleted, BaseBody: base, RemoteBody: remotePage.Body})
		default:
			localChanged := !hasBase || localBody != base
			remoteChanged := !hasBase || remotePage.Body != base

			change := Change{PageID: id, Path: path, BaseBody: base, LocalBody: localBody, RemoteBody: remotePage.Body}
			switch {
			case localChanged && remoteChanged && localBody != remotePage.Body:
				change.Kind = BothModified
			case localChanged:
				change.Kind = LocalModified
			case remoteChanged:
				change.Kind = RemoteModified
			default:
				change.Kind = Unchanged
			}
			out = append(out, change)
		}
	}

	for path, body := range localBodies {
		if !seenPaths[path] {
			out = append(out, Change{Path: path, Kind: LocalAdded, LocalBody: body})
		}
	}
	for id, page := range remotePages {
		if !seenIDs[id] {
			out = append(out, Change{PageID: id, Kind: RemoteAdded, RemoteBody: page.Body})
		}
	}

	return out, nil
}
