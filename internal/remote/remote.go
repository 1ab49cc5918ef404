// Package remote defines the narrow interface wikisync uses to talk to the
// hosted wiki backing a space, and a notionapi-backed implementation of it.
//
// The remote wiki's document tree is physically represented as Notion
// blocks under a page hierarchy; a space corresponds to a Notion page
// subtree rather than a literal Confluence space. Callers only ever see
// the interface below, never notionapi types, so a second backend could
// be added later without touching the sync engine.
package remote

import (
	"context"
	"errors"
	"time"
)

// PageID identifies a remote page. It is opaque to callers.
type PageID string

// RemotePage is a snapshot of a page's metadata and body as returned by
// the backend. Body is plain text (already converted from the backend's
// native block format) suitable for diffing and merging.
type RemotePage struct {
	ID             PageID
	Title          string
	Body           string
	Version        int
	ParentID       PageID
	LastEditedTime time.Time
	URL            string
}

var (
	// ErrNotFound indicates the requested page does not exist or is not visible.
	ErrNotFound = errors.New("remote: page not found")
	// ErrVersionConflict indicates an update was rejected because the page
	// was modified since the caller last read it.
	ErrVersionConflict = errors.New("remote: version conflict")
	// ErrAuthFailed indicates the configured credentials were rejected.
	ErrAuthFailed = errors.New("remote: authentication failed")
	// ErrUnreachable indicates a transport-level failure (DNS, TLS, timeout).
	ErrUnreachable = errors.New("remote: unreachable")
	// ErrAccessDenied indicates the credentials are valid but lack permission.
	ErrAccessDenied = errors.New("remote: access denied")
)

// Client is the full surface the sync engine needs from a wiki backend.
// Implementations must translate backend-specific errors into the typed
// errors above so callers can branch on failure class without importing
// a backend SDK.
type Client interface {
	// GetPage fetches a single page's current metadata and body.
	GetPage(ctx context.Context, id PageID) (RemotePage, error)

	// UpdatePage writes a new title/body to an existing page, using
	// version as an optimistic-concurrency token. Returns ErrVersionConflict
	// if the page has moved on since version was read.
	UpdatePage(ctx context.Context, id PageID, title, body string, version int) (RemotePage, error)

	// Reparent moves a page under a new parent. newParent == nil moves the
	// page to the space root. Backends that cannot update a page's parent
	// in place may recreate it elsewhere in the tree, in which case the
	// returned PageID differs from id and callers must re-key any state
	// they keep indexed by the old id.
	Reparent(ctx context.Context, id PageID, newParent *PageID) (PageID, error)

	// Delete removes a page from the remote tree.
	Delete(ctx context.Context, id PageID) error

	// ListDescendants lists all pages under rootID within spaceKey, up to
	// limit pages, skipping any page whose ID is in exclude.
	ListDescendants(ctx context.Context, rootID PageID, spaceKey string, limit int, exclude []PageID) ([]RemotePage, error)
}
