package frontmatter

import (
	"fmt"
	"regexp"
	"strings"
)

// confluenceURLRe extracts the space key and page id from a page's
// canonical remote URL, per spec §6.
var confluenceURLRe = regexp.MustCompile(`/spaces/([^/]+)/pages/(\d+)`)

// ParseConfluenceURL extracts the space key and page id embedded in a
// confluence_url front-matter value. ok is false if url does not match
// the expected /spaces/<key>/pages/<id> shape.
func ParseConfluenceURL(url string) (spaceKey, pageID string, ok bool) {
	m := confluenceURLRe.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// BuildConfluenceURL renders the canonical front-matter URL for a page,
// given the space's base URL (without trailing slash).
func BuildConfluenceURL(baseURL, spaceKey, pageID string) string {
	return fmt.Sprintf("%s/spaces/%s/pages/%s", strings.TrimRight(baseURL, "/"), spaceKey, pageID)
}
