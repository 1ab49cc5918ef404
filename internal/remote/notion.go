package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/obsidian-notion-sync/wikisync/internal/notion"
	"github.com/obsidian-notion-sync/wikisync/internal/pagecache"
	"github.com/obsidian-notion-sync/wikisync/internal/syncpool"
	"github.com/obsidian-notion-sync/wikisync/internal/transformer"
)

// DefaultDiscoveryWorkers is the size of the worker pool ListDescendants
// uses to fetch sibling pages concurrently, matching spec §5's suggested
// default of 10 for the discovery fan-out.
const DefaultDiscoveryWorkers = 10

// NotionBackend adapts internal/notion's Client to the remote.Client
// interface, converting between the markdown bodies the sync engine
// operates on and the chunked XHTML storage-format content held in Notion.
type NotionBackend struct {
	api     *notion.Client
	xform   *transformer.Transformer
	reverse *transformer.ReverseTransformer
	cache   *pagecache.Cache
	pool    *syncpool.WorkerPool
	lookup  transformer.PathLookup
}

// BackendOption configures optional NotionBackend behavior.
type BackendOption func(*NotionBackend)

// WithPageCache attaches a rendering cache: GetPage skips re-fetching and
// re-rendering a page's block tree whenever the cached entry's
// last-edited timestamp still matches what the remote reports.
func WithPageCache(cache *pagecache.Cache) BackendOption {
	return func(b *NotionBackend) { b.cache = cache }
}

// WithDiscoveryWorkers sets the worker pool size ListDescendants uses to
// fetch sibling pages concurrently. Defaults to DefaultDiscoveryWorkers.
func WithDiscoveryWorkers(n int) BackendOption {
	return func(b *NotionBackend) {
		if n > 0 {
			b.pool = syncpool.NewWorkerPool(n)
		}
	}
}

// WithPathLookup attaches the id->path lookup the reverse transformer uses
// to render inbound page mentions as wiki-links instead of raw page ids.
func WithPathLookup(lookup transformer.PathLookup) BackendOption {
	return func(b *NotionBackend) { b.lookup = lookup }
}

// NewNotionBackend builds a remote.Client backed by a rate-limited Notion API client.
func NewNotionBackend(api *notion.Client, resolver transformer.LinkResolver, opts ...BackendOption) *NotionBackend {
	b := &NotionBackend{
		api:  api,
		xform: transformer.New(resolver, transformer.DefaultConfig()),
		pool: syncpool.NewWorkerPool(DefaultDiscoveryWorkers),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.reverse = transformer.NewReverse(b.lookup)
	return b
}

func (b *NotionBackend) GetPage(ctx context.Context, id PageID) (RemotePage, error) {
	page, err := b.api.GetPage(ctx, string(id))
	if err != nil {
		return RemotePage{}, translateErr(err)
	}

	version := editCountVersion(page)

	if b.cache != nil {
		if entry, ok, err := b.cache.Get(id, version, page.LastEditedTime); err == nil && ok {
			return RemotePage{
				ID:             id,
				Title:          extractTitle(page.Properties),
				Body:           entry.Body,
				Version:        version,
				ParentID:       PageID(parentID(page.Parent)),
				LastEditedTime: page.LastEditedTime,
				URL:            page.URL,
			}, nil
		}
	}

	blocks, err := b.api.GetAllBlocks(ctx, string(id))
	if err != nil {
		return RemotePage{}, translateErr(err)
	}

	body, err := b.reverse.Transform(notion.ReassembleXHTML(blocks))
	if err != nil {
		return RemotePage{}, fmt.Errorf("render page %s: %w", id, err)
	}

	if b.cache != nil {
		// A failed cache write is ignored: it is not logged and never
		// fails the fetch itself (spec §4.2).
		_ = b.cache.Put(id, version, page.LastEditedTime, body)
	}

	return RemotePage{
		ID:             id,
		Title:          extractTitle(page.Properties),
		Body:           body,
		Version:        version,
		ParentID:       PageID(parentID(page.Parent)),
		LastEditedTime: page.LastEditedTime,
		URL:            page.URL,
	}, nil
}

// UpdatePage renders body as a document tree and replaces the remote page's
// content wholesale. version is validated against the page's current state
// before writing; a mismatch surfaces as ErrVersionConflict so the
// orchestrator can re-fetch and retry.
func (b *NotionBackend) UpdatePage(ctx context.Context, id PageID, title, body string, version int) (RemotePage, error) {
	current, err := b.api.GetPage(ctx, string(id))
	if err != nil {
		return RemotePage{}, translateErr(err)
	}
	if editCountVersion(current) != version {
		return RemotePage{}, ErrVersionConflict
	}

	page, err := b.xform.Transform(title, []byte(body))
	if err != nil {
		return RemotePage{}, fmt.Errorf("transform body for %s: %w", id, err)
	}
	page.Properties = titleProperties(title, current.Parent.Type)

	if err := b.api.UpdatePage(ctx, string(id), page); err != nil {
		return RemotePage{}, translateErr(err)
	}

	if b.cache != nil {
		_ = b.cache.Invalidate(id)
	}

	return b.GetPage(ctx, id)
}

// Reparent moves a page under newParent. The Notion page API has no
// endpoint to change a page's parent after creation, so this recreates the
// page under newParent (or at the workspace root, if nil) with its current
// title and content, then archives the original. The returned PageID
// differs from id; callers must re-key any state they keep indexed by the
// original id.
func (b *NotionBackend) Reparent(ctx context.Context, id PageID, newParent *PageID) (PageID, error) {
	page, err := b.api.FetchPage(ctx, string(id))
	if err != nil {
		return "", translateErr(err)
	}

	var result *notion.PageResult
	if newParent != nil {
		result, err = b.api.CreatePageUnderPage(ctx, string(*newParent), page)
	} else {
		result, err = b.api.CreatePageAtRoot(ctx, page)
	}
	if err != nil {
		return "", translateErr(err)
	}

	if err := b.api.ArchivePage(ctx, string(id)); err != nil {
		return "", fmt.Errorf("archive %s after recreating it as %s: %w", id, result.PageID, translateErr(err))
	}

	if b.cache != nil {
		_ = b.cache.Invalidate(id)
	}

	return PageID(result.PageID), nil
}

func (b *NotionBackend) Delete(ctx context.Context, id PageID) error {
	if err := b.api.DeletePage(ctx, string(id)); err != nil {
		return translateErr(err)
	}
	return nil
}

// ListDescendants walks the page tree breadth-first, level by level,
// fetching every sibling page within a level concurrently through the
// backend's worker pool (spec §5: a bounded pool performs remote fetches
// in parallel during discovery; everything after discovery runs
// sequentially on the caller's goroutine).
func (b *NotionBackend) ListDescendants(ctx context.Context, rootID PageID, spaceKey string, limit int, exclude []PageID) ([]RemotePage, error) {
	excluded := make(map[PageID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []RemotePage
	seen := map[PageID]bool{rootID: true}
	frontier := []PageID{rootID}

	for len(frontier) > 0 && (limit <= 0 || len(out) < limit) {
		var childIDs []PageID
		for _, id := range frontier {
			blocks, err := b.api.GetAllBlocks(ctx, string(id))
			if err != nil {
				return nil, translateErr(err)
			}
			for _, blk := range blocks {
				childID := PageID(childPageID(blk))
				if childID == "" || excluded[childID] || seen[childID] {
					continue
				}
				seen[childID] = true
				childIDs = append(childIDs, childID)
			}
		}
		if len(childIDs) == 0 {
			break
		}

		results := syncpool.Process(ctx, b.pool, childIDs, func(ctx context.Context, id PageID) (RemotePage, error) {
			return b.GetPage(ctx, id)
		})

		var nextFrontier []PageID
		for _, r := range results {
			if r.Err != nil {
				if errors.Is(r.Err, ErrNotFound) {
					continue
				}
				return nil, r.Err
			}
			out = append(out, r.Result)
			nextFrontier = append(nextFrontier, r.Input)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		frontier = nextFrontier
	}

	return out, nil
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "Could not find"), strings.Contains(msg, "404"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case strings.Contains(msg, "403"), strings.Contains(msg, "restricted_resource"):
		return fmt.Errorf("%w: %s", ErrAccessDenied, msg)
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %s", ErrUnreachable, msg)
	default:
		return err
	}
}

func extractTitle(props notionapi.Properties) string {
	for _, prop := range props {
		if titleProp, ok := prop.(*notionapi.TitleProperty); ok && len(titleProp.Title) > 0 {
			return titleProp.Title[0].PlainText
		}
		if titleProp, ok := prop.(notionapi.TitleProperty); ok && len(titleProp.Title) > 0 {
			return titleProp.Title[0].PlainText
		}
	}
	return ""
}

func titleProperties(title string, parentType notionapi.ParentType) notionapi.Properties {
	key := "Name"
	if parentType == notionapi.ParentTypePageID {
		key = "title"
	}
	return notionapi.Properties{
		key: notionapi.TitleProperty{
			Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}, PlainText: title}},
		},
	}
}

// editCountVersion derives an integer optimistic-concurrency token from a
// page's last-edited timestamp, since the Notion API does not expose a
// monotonically increasing revision counter directly.
func editCountVersion(page *notionapi.Page) int {
	return int(page.LastEditedTime.Unix())
}

func parentID(p notionapi.Parent) string {
	switch p.Type {
	case notionapi.ParentTypePageID:
		return string(p.PageID)
	case notionapi.ParentTypeDatabaseID:
		return string(p.DatabaseID)
	default:
		return ""
	}
}

func childPageID(block notionapi.Block) string {
	if cp, ok := block.(*notionapi.ChildPageBlock); ok {
		return string(cp.ID)
	}
	return ""
}
