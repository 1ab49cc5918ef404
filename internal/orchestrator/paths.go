package orchestrator

import (
	"strings"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// resolvePath derives the vault-relative path a remote page maps to,
// walking its ancestor chain via byID and joining filesafe titles with "/".
// A page whose ancestor chain cannot be fully walked (a parent missing from
// byID, e.g. it sits outside the discovered subtree) stops climbing at that
// point; its own title is still used as the filename.
func resolvePath(page remote.RemotePage, rootID remote.PageID, excludeRoot bool, byID map[remote.PageID]remote.RemotePage) string {
	var segments []string
	cur := page

	for {
		if cur.ID == rootID {
			if !excludeRoot {
				segments = append([]string{filesafe(cur.Title)}, segments...)
			}
			break
		}

		segments = append([]string{filesafe(cur.Title)}, segments...)

		parent, ok := byID[cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}

	if len(segments) == 0 {
		segments = []string{filesafe(page.Title)}
	}

	return strings.Join(segments, "/") + ".md"
}

// filesafe renders a page title as a filesystem-safe path segment:
// lowercased, spaces turned to hyphens, characters that are illegal or
// awkward in file names stripped.
func filesafe(title string) string {
	title = strings.TrimSpace(title)
	title = strings.ToLower(title)
	title = strings.ReplaceAll(title, " ", "-")

	var b strings.Builder
	for _, r := range title {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		default:
			b.WriteRune(r)
		}
	}

	safe := b.String()
	if safe == "" {
		safe = "untitled"
	}
	return safe
}
