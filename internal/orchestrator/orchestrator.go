// Package orchestrator implements the Sync Orchestrator: the bidirectional
// cycle that ties the baseline store, change detector, merge resolver,
// move/delete handler, and remote client together into one pass over a
// space binding.
//
// A cycle always applies structural changes (deletes, then moves) before
// any content sync, so a page renamed and edited in the same cycle never
// collides with a stale path left behind by a delete that ran later, and
// content pushes land on pages already sitting at their final location.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/obsidian-notion-sync/wikisync/internal/baseline"
	"github.com/obsidian-notion-sync/wikisync/internal/changes"
	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/internal/history"
	"github.com/obsidian-notion-sync/wikisync/internal/merge"
	"github.com/obsidian-notion-sync/wikisync/internal/pagecache"
	"github.com/obsidian-notion-sync/wikisync/internal/remote"
	"github.com/obsidian-notion-sync/wikisync/internal/structural"
	"github.com/obsidian-notion-sync/wikisync/internal/vault"
	"github.com/obsidian-notion-sync/wikisync/pkg/frontmatter"
)

// Mode selects which side wins when a page's local and remote bodies
// differ during a cycle.
type Mode int

const (
	// ModeBidirectional merges both-modified pages with the table-aware
	// three-way merge, leaving conflict markers for anything it can't
	// reconcile automatically.
	ModeBidirectional Mode = iota
	// ModeForcePush pushes the local body of every changed page, whether
	// the change was local, remote, or both, overwriting the remote body
	// unconditionally. Nothing is pulled.
	ModeForcePush
	// ModeForcePull writes the remote body of every changed page to its
	// local file, whether the change was local, remote, or both,
	// overwriting the local body unconditionally. Nothing is pushed.
	ModeForcePull
)

// Options configures one Cycle invocation.
type Options struct {
	// DryRun reports what the cycle would do without touching the
	// filesystem, the remote tree, or the persisted state.
	DryRun bool
	// Mode selects how changed pages are reconciled: merged, or
	// overwritten from one side.
	Mode Mode
	// SingleFile, if non-empty, restricts the cycle to one vault-relative
	// path: the file is pushed unconditionally, bypassing change
	// detection and merging, though its baseline is still refreshed.
	SingleFile string
}

// PageFailure records a per-page error that did not abort the cycle.
type PageFailure struct {
	PageID remote.PageID
	Path   string
	Err    error
}

// ConflictInfo records a both-modified page the merge resolver could not
// reconcile automatically; its local file now holds inline conflict
// markers awaiting manual resolution.
type ConflictInfo struct {
	PageID remote.PageID
	Path   string
}

// Result summarizes one completed cycle against one space binding.
type Result struct {
	SpaceKey string

	Pushed int
	Pulled int
	Merged int

	MovedLocal    int
	MovedRemote   int
	DeletedLocal  int
	DeletedRemote int

	Conflicts []ConflictInfo
	Errors    []PageFailure
}

// Engine runs sync cycles for a single space binding.
type Engine struct {
	binding  config.SpaceBinding
	client   remote.Client
	resolver *pathResolver
	vault    *vault.Scanner
	baseline *baseline.Store
	detector *changes.Detector
	cache    *pagecache.Cache
	history  *history.DB
	pageLimit int

	stateDir string
}

// NewEngine wires a binding's local directory and remote client into an
// Engine, creating the baseline store directory under
// <local_path>/.wikisync if it does not already exist. The version cache
// directory beside it is created on the cache's first write.
func NewEngine(binding config.SpaceBinding, client remote.Client, resolver *pathResolver, hist *history.DB) (*Engine, error) {
	stateDir := filepath.Join(binding.LocalPath, ".wikisync")

	store, err := baseline.Open(filepath.Join(stateDir, "baseline"))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open baseline store: %w", err)
	}

	if resolver == nil {
		resolver = newPathResolver()
	}

	return &Engine{
		binding:  binding,
		client:   client,
		resolver: resolver,
		vault:    vault.NewScanner(binding.LocalPath, binding.ExcludeLocal),
		baseline: store,
		detector: changes.New(store),
		cache:    pagecache.New(filepath.Join(stateDir, "cache"), pagecache.DefaultMaxAge),
		history:  hist,
		stateDir: stateDir,
	}, nil
}

// Cache returns the engine's version cache, so a caller building the
// remote.Client can wire the same cache into the backend before the first
// Cycle runs.
func (e *Engine) Cache() *pagecache.Cache { return e.cache }

// Resolver returns the engine's shared path resolver, so a caller building
// the remote.Client can wire it in as both the link resolver and the page
// mention lookup before the first Cycle runs.
func (e *Engine) Resolver() *pathResolver { return e.resolver }

// SetClient attaches the remote.Client after construction, so a caller can
// build the Engine first to obtain its resolver, wire that resolver into
// the backend's LinkResolver/PathLookup options, then hand the finished
// backend back to the Engine before the first Cycle runs.
func (e *Engine) SetClient(client remote.Client) { e.client = client }

// SetPageLimit caps how many pages a single discovery pass fetches, per
// the top-level config's page_limit. Zero (the default) means unlimited.
func (e *Engine) SetPageLimit(n int) { e.pageLimit = n }

func (e *Engine) trackedPath() string {
	return filepath.Join(e.binding.LocalPath, ".wikisync-state.yaml")
}

// Cycle runs one bidirectional pass: discover, apply deletes, apply moves,
// sync content, refresh the baseline, and persist tracked state.
func (e *Engine) Cycle(ctx context.Context, opts Options) (Result, error) {
	result := Result{SpaceKey: e.binding.SpaceKey}

	tracked, err := changes.LoadTrackedMap(e.trackedPath())
	if err != nil {
		return result, fmt.Errorf("orchestrator: load tracked state: %w", err)
	}

	rootID := remote.PageID(e.binding.RootPageID)
	excludeIDs := make([]remote.PageID, len(e.binding.ExcludePageIDs))
	for i, id := range e.binding.ExcludePageIDs {
		excludeIDs[i] = remote.PageID(id)
	}

	pagesByID, err := e.discoverRemote(ctx, rootID, excludeIDs)
	if err != nil {
		return result, err
	}

	remotePages := map[remote.PageID]remote.RemotePage{}
	for id, p := range pagesByID {
		if id == rootID && e.binding.ExcludeRoot {
			continue
		}
		remotePages[id] = p
	}
	for id, p := range remotePages {
		e.resolver.set(id, resolvePath(p, rootID, e.binding.ExcludeRoot, pagesByID))
	}

	localFiles, err := e.vault.Scan(ctx)
	if err != nil {
		return result, fmt.Errorf("orchestrator: scan vault: %w", err)
	}

	localExists := map[string]bool{}
	localBodies := map[string]string{}
	localFrontIDs := map[string]remote.PageID{}
	for _, f := range localFiles {
		raw, err := e.vault.ReadFile(f.Path)
		if err != nil {
			result.Errors = append(result.Errors, PageFailure{Path: f.Path, Err: fmt.Errorf("read local file: %w", err)})
			continue
		}
		fm, body, err := frontmatter.ParseFrontmatter(raw)
		if err != nil {
			result.Errors = append(result.Errors, PageFailure{Path: f.Path, Err: fmt.Errorf("parse frontmatter: %w", err)})
			continue
		}
		localExists[f.Path] = true
		localBodies[f.Path] = string(body)
		if id := fm.GetString(frontmatter.PageIDKey); id != "" {
			localFrontIDs[f.Path] = remote.PageID(id)
		}
	}

	if opts.SingleFile != "" {
		return e.cycleSingleFile(ctx, opts, tracked, localBodies[opts.SingleFile], localFrontIDs[opts.SingleFile])
	}

	moves, deleteRemote, deleteLocal := e.planStructural(tracked, localExists, localFrontIDs, remotePages, pagesByID, rootID)

	handler := structural.New(e.binding.LocalPath, e.client, opts.DryRun)

	for _, r := range handler.DeleteRemote(ctx, deleteRemote) {
		if r.Err != nil {
			result.Errors = append(result.Errors, PageFailure{PageID: r.PageID, Path: r.Path, Err: r.Err})
			continue
		}
		result.DeletedRemote++
		tracked.Delete(r.PageID)
		delete(remotePages, r.PageID)
		_ = e.baseline.Delete(r.PageID)
		e.recordHistory(r.PageID, r.Path, "delete-remote", "")
	}
	for _, r := range handler.DeleteLocal(deleteLocal) {
		if r.Err != nil {
			result.Errors = append(result.Errors, PageFailure{PageID: r.PageID, Path: r.Path, Err: r.Err})
			continue
		}
		result.DeletedLocal++
		tracked.Delete(r.PageID)
		delete(localBodies, r.Path)
		delete(localExists, r.Path)
		_ = e.baseline.Delete(r.PageID)
		e.recordHistory(r.PageID, r.Path, "delete-local", "")
	}

	for _, m := range moves {
		if m.direction == moveFromRemote {
			results := handler.MoveLocal([]structural.Move{m.Move})
			if results[0].Err != nil {
				result.Errors = append(result.Errors, PageFailure{PageID: m.PageID, Path: m.NewPath, Err: results[0].Err})
				continue
			}
			if body, ok := localBodies[m.OldPath]; ok {
				localBodies[m.NewPath] = body
				delete(localBodies, m.OldPath)
			}
			tracked.Set(m.PageID, m.NewPath)
			result.MovedLocal++
			e.recordHistory(m.PageID, m.NewPath, "move-local", "was "+m.OldPath)
		} else {
			results := handler.MoveRemote(ctx, []structural.Move{m.Move}, func(newPath string) (*remote.PageID, error) {
				return structural.ResolveParentPageID(newPath, tracked.IDFor)
			})
			if results[0].Err != nil {
				result.Errors = append(result.Errors, PageFailure{PageID: m.PageID, Path: m.NewPath, Err: results[0].Err})
				continue
			}

			finalID := m.PageID
			if newID := results[0].NewPageID; newID != "" && newID != m.PageID {
				// The backend had to recreate the page under its new
				// parent: every piece of state keyed by the old id now
				// points at a page that no longer exists.
				tracked.Delete(m.PageID)
				delete(remotePages, m.PageID)
				if err := e.baseline.Rekey(m.PageID, newID); err != nil {
					result.Errors = append(result.Errors, PageFailure{PageID: m.PageID, Path: m.NewPath, Err: err})
					continue
				}
				_ = e.cache.Invalidate(m.PageID)
				e.resolver.rekey(m.PageID, newID, m.NewPath)
				finalID = newID
			}

			tracked.Set(finalID, m.NewPath)
			result.MovedRemote++
			e.recordHistory(finalID, m.NewPath, "move-remote", "was "+m.OldPath)
		}
	}

	detected, err := e.detector.Detect(tracked, localBodies, remotePages)
	if err != nil {
		return result, fmt.Errorf("orchestrator: detect changes: %w", err)
	}

	refreshed := map[remote.PageID]string{}

	for _, c := range detected {
		kind := c.Kind
		if opts.Mode != ModeBidirectional && (kind == changes.LocalModified || kind == changes.RemoteModified) {
			kind = changes.BothModified
		}
		switch kind {
		case changes.Unchanged, changes.LocalDeleted, changes.RemoteDeleted:
			continue

		case changes.LocalAdded:
			result.Errors = append(result.Errors, PageFailure{
				Path: c.Path,
				Err:  fmt.Errorf("no tracked remote page for this file; creating new remote pages is not supported"),
			})

		case changes.RemoteAdded:
			page := remotePages[c.PageID]
			path := e.resolver.idToPath[c.PageID]
			if opts.DryRun {
				result.Pulled++
				continue
			}
			if err := e.writeLocal(path, page); err != nil {
				result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: path, Err: err})
				continue
			}
			tracked.Set(c.PageID, path)
			refreshed[c.PageID] = c.RemoteBody
			result.Pulled++
			e.recordHistory(c.PageID, path, "pull", "new remote page")

		case changes.LocalModified:
			if opts.Mode == ModeForcePull {
				continue
			}
			if opts.DryRun {
				result.Pushed++
				continue
			}
			if err := e.push(ctx, c); err != nil {
				result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
				continue
			}
			refreshed[c.PageID] = c.LocalBody
			result.Pushed++
			e.recordHistory(c.PageID, c.Path, "push", "")

		case changes.RemoteModified:
			if opts.Mode == ModeForcePush {
				continue
			}
			if opts.DryRun {
				result.Pulled++
				continue
			}
			page := remotePages[c.PageID]
			if err := e.writeLocal(c.Path, page); err != nil {
				result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
				continue
			}
			refreshed[c.PageID] = c.RemoteBody
			result.Pulled++
			e.recordHistory(c.PageID, c.Path, "pull", "")

		case changes.BothModified:
			switch opts.Mode {
			case ModeForcePush:
				if opts.DryRun {
					result.Pushed++
					continue
				}
				if err := e.push(ctx, c); err != nil {
					result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
					continue
				}
				refreshed[c.PageID] = c.LocalBody
				result.Pushed++
				e.recordHistory(c.PageID, c.Path, "push", "force")

			case ModeForcePull:
				if opts.DryRun {
					result.Pulled++
					continue
				}
				page := remotePages[c.PageID]
				if err := e.writeLocal(c.Path, page); err != nil {
					result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
					continue
				}
				refreshed[c.PageID] = c.RemoteBody
				result.Pulled++
				e.recordHistory(c.PageID, c.Path, "pull", "force")

			default:
				outcome := merge.Resolve(c.BaseBody, c.LocalBody, c.RemoteBody)
				if outcome.Conflict {
					result.Conflicts = append(result.Conflicts, ConflictInfo{PageID: c.PageID, Path: c.Path})
					if !opts.DryRun {
						if err := e.writeLocalRaw(c.Path, outcome.Text, remotePages[c.PageID]); err != nil {
							result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
							continue
						}
						if e.history != nil {
							_ = e.history.RecordConflict(string(c.PageID), c.Path, time.Now())
						}
					}
					continue
				}
				if opts.DryRun {
					result.Merged++
					continue
				}
				c.LocalBody = outcome.Text
				if err := e.push(ctx, c); err != nil {
					result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
					continue
				}
				if err := e.writeLocalRaw(c.Path, outcome.Text, remotePages[c.PageID]); err != nil {
					result.Errors = append(result.Errors, PageFailure{PageID: c.PageID, Path: c.Path, Err: err})
					continue
				}
				refreshed[c.PageID] = outcome.Text
				result.Merged++
				e.recordHistory(c.PageID, c.Path, "merge", "")
			}
		}
	}

	if opts.DryRun {
		return result, nil
	}

	if len(refreshed) > 0 {
		if err := e.baseline.BulkRefresh(refreshed); err != nil {
			return result, fmt.Errorf("orchestrator: refresh baseline: %w", err)
		}
	}

	tracked.SetLastSynced(time.Now())
	if err := tracked.Save(); err != nil {
		return result, fmt.Errorf("orchestrator: save tracked state: %w", err)
	}

	return result, nil
}

// cycleSingleFile pushes one local file unconditionally: no three-way
// merge runs, but the baseline is still refreshed to the pushed body so
// later bidirectional cycles treat it as the new ancestor.
func (e *Engine) cycleSingleFile(ctx context.Context, opts Options, tracked *changes.TrackedMap, localBody string, frontID remote.PageID) (Result, error) {
	result := Result{SpaceKey: e.binding.SpaceKey}

	id, ok := tracked.IDFor(opts.SingleFile)
	if !ok {
		id, ok = frontID, frontID != ""
	}
	if !ok {
		result.Errors = append(result.Errors, PageFailure{Path: opts.SingleFile, Err: fmt.Errorf("no tracked remote page for %s", opts.SingleFile)})
		return result, nil
	}

	page, err := e.client.GetPage(ctx, id)
	if err != nil {
		return result, fmt.Errorf("orchestrator: fetch %s: %w", id, err)
	}

	if opts.DryRun {
		result.Pushed++
		return result, nil
	}

	updated, err := e.client.UpdatePage(ctx, id, page.Title, localBody, page.Version)
	if err != nil {
		result.Errors = append(result.Errors, PageFailure{PageID: id, Path: opts.SingleFile, Err: err})
		return result, nil
	}

	if err := e.baseline.Put(id, localBody); err != nil {
		return result, fmt.Errorf("orchestrator: refresh baseline for %s: %w", id, err)
	}
	tracked.Set(id, opts.SingleFile)
	tracked.SetLastSynced(time.Now())
	if err := tracked.Save(); err != nil {
		return result, fmt.Errorf("orchestrator: save tracked state: %w", err)
	}

	result.Pushed++
	e.recordHistory(id, opts.SingleFile, "push", fmt.Sprintf("single-file, version %d", updated.Version))
	return result, nil
}

func (e *Engine) push(ctx context.Context, c changes.Change) error {
	page, err := e.client.GetPage(ctx, c.PageID)
	if err != nil {
		return fmt.Errorf("fetch current version: %w", err)
	}

	_, err = e.client.UpdatePage(ctx, c.PageID, page.Title, c.LocalBody, page.Version)
	if errors.Is(err, remote.ErrVersionConflict) {
		page, err = e.client.GetPage(ctx, c.PageID)
		if err != nil {
			return fmt.Errorf("re-fetch after version conflict: %w", err)
		}
		_, err = e.client.UpdatePage(ctx, c.PageID, page.Title, c.LocalBody, page.Version)
	}
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

func (e *Engine) writeLocal(path string, page remote.RemotePage) error {
	return e.writeLocalRaw(path, page.Body, page)
}

// writeLocalRaw writes body to path, stamping the managed front-matter
// keys (page id, canonical url, version) while preserving every other key
// already present in the file.
func (e *Engine) writeLocalRaw(path, body string, page remote.RemotePage) error {
	abs := filepath.Join(e.binding.LocalPath, path)

	fm := frontmatter.Frontmatter{}
	if existing, err := os.ReadFile(abs); err == nil {
		if parsedFM, _, err := frontmatter.ParseFrontmatter(existing); err == nil {
			fm = parsedFM
		}
	}

	fm.Set(frontmatter.PageIDKey, string(page.ID))
	fm.Set(frontmatter.VersionKey, page.Version)
	fm.Set(frontmatter.URLKey, frontmatter.BuildConfluenceURL(e.binding.RemoteBaseURL, e.binding.SpaceKey, string(page.ID)))

	fmBytes, err := frontmatter.SerializeFrontmatter(fm)
	if err != nil {
		return fmt.Errorf("serialize frontmatter: %w", err)
	}

	var out strings.Builder
	out.Write(fmBytes)
	out.WriteString(body)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(abs, []byte(out.String()), 0o644)
}

func (e *Engine) recordHistory(id remote.PageID, path, action, details string) {
	if e.history == nil {
		return
	}
	_ = e.history.RecordCycle(history.CycleRecord{
		PageID:    string(id),
		Path:      path,
		Action:    action,
		Timestamp: time.Now(),
		Details:   details,
	})
}

func (e *Engine) discoverRemote(ctx context.Context, rootID remote.PageID, excludeIDs []remote.PageID) (map[remote.PageID]remote.RemotePage, error) {
	pagesByID := map[remote.PageID]remote.RemotePage{}

	if !e.binding.ExcludeRoot {
		root, err := e.client.GetPage(ctx, rootID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: fetch root page %s: %w", rootID, err)
		}
		pagesByID[root.ID] = root
	}

	descendants, err := e.client.ListDescendants(ctx, rootID, e.binding.SpaceKey, e.pageLimit, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list descendants of %s: %w", rootID, err)
	}
	for _, p := range descendants {
		pagesByID[p.ID] = p
	}

	return pagesByID, nil
}

type moveDirection int

const (
	moveFromRemote moveDirection = iota
	moveFromLocal
)

type plannedMove struct {
	structural.Move
	direction moveDirection
}

// planStructural compares the tracked map against the freshly discovered
// local and remote state to find renames and deletions, before any content
// sync runs.
func (e *Engine) planStructural(
	tracked *changes.TrackedMap,
	localExists map[string]bool,
	localFrontIDs map[string]remote.PageID,
	remotePages map[remote.PageID]remote.RemotePage,
	pagesByID map[remote.PageID]remote.RemotePage,
	rootID remote.PageID,
) (moves []plannedMove, deleteRemote, deleteLocal []structural.Delete) {
	localByID := map[remote.PageID]string{}
	for path, id := range localFrontIDs {
		localByID[id] = path
	}

	for id, oldPath := range tracked.All() {
		remotePage, hasRemote := remotePages[id]
		oldLocalExists := localExists[oldPath]
		newLocalPath, foundNewLocal := localByID[id]

		switch {
		case hasRemote && oldLocalExists:
			newRemotePath := resolvePath(remotePage, rootID, e.binding.ExcludeRoot, pagesByID)
			if newRemotePath != oldPath {
				moves = append(moves, plannedMove{
					Move:      structural.Move{PageID: id, OldPath: oldPath, NewPath: newRemotePath},
					direction: moveFromRemote,
				})
			}

		case hasRemote && !oldLocalExists:
			if foundNewLocal && newLocalPath != oldPath {
				moves = append(moves, plannedMove{
					Move:      structural.Move{PageID: id, OldPath: oldPath, NewPath: newLocalPath},
					direction: moveFromLocal,
				})
			} else {
				deleteRemote = append(deleteRemote, structural.Delete{PageID: id, Path: oldPath})
			}

		case !hasRemote && oldLocalExists:
			deleteLocal = append(deleteLocal, structural.Delete{PageID: id, Path: oldPath})
		}
	}

	return moves, deleteRemote, deleteLocal
}

func isAuthError(err error) bool {
	return errors.Is(err, remote.ErrAuthFailed) || errors.Is(err, remote.ErrAccessDenied)
}

func isNetworkError(err error) bool {
	return errors.Is(err, remote.ErrUnreachable)
}
