package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/pkg/frontmatter"
)

// runInit registers a new space binding: url's host+path up to /spaces/
// becomes the binding's remote base URL, and the /spaces/<key>/pages/<id>
// suffix gives the space key and root page id directly, so no extra
// network round-trip is needed before the first sync.
func runInit(path, url string, excludeParent bool) error {
	spaceKey, rootPageID, ok := frontmatter.ParseConfluenceURL(url)
	if !ok {
		return fmt.Errorf("could not parse a space key and page id out of %q (expected .../spaces/<key>/pages/<id>)", url)
	}

	idx := strings.Index(url, "/spaces/")
	baseURL := url[:idx]

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve local path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create local path %s: %w", abs, err)
	}

	binding := config.SpaceBinding{
		RemoteBaseURL: baseURL,
		SpaceKey:      spaceKey,
		RootPageID:    rootPageID,
		LocalPath:     abs,
		ExcludeRoot:   excludeParent,
	}
	if err := binding.Validate(); err != nil {
		return fmt.Errorf("invalid binding: %w", err)
	}

	existing, err := config.Load(cfgFile)
	if err != nil {
		existing = config.DefaultConfig()
	}

	for _, s := range existing.Spaces {
		if s.SpaceKey == binding.SpaceKey && s.RootPageID == binding.RootPageID {
			return fmt.Errorf("a binding for space %s, page %s is already registered (local path %s)", s.SpaceKey, s.RootPageID, s.LocalPath)
		}
	}
	existing.Spaces = append(existing.Spaces, binding)

	savePath := cfgFile
	if savePath == "" {
		savePath = ".wikisync.yaml"
	}
	if err := existing.Save(savePath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("registered space %s (root page %s) -> %s\n", binding.SpaceKey, binding.RootPageID, binding.LocalPath)
	fmt.Printf("config written to %s\n", savePath)
	fmt.Println("run 'wikisync' to perform the first sync")
	return nil
}
