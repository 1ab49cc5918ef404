// Package vault walks a local sync directory and discovers the markdown
// files it holds, applying the space binding's exclude-glob list.
package vault

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Scanner walks a local sync directory and discovers markdown files.
type Scanner struct {
	root   string
	ignore []string
}

// File is one markdown file found under the scanned root.
type File struct {
	// Path is relative to the scanned root.
	Path string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	// Info is the file's stat result.
	Info fs.FileInfo
}

// NewScanner creates a Scanner rooted at root, skipping any relative path
// matching one of the ignore glob patterns.
func NewScanner(root string, ignore []string) *Scanner {
	return &Scanner{root: root, ignore: ignore}
}

// Root returns the scanned root path.
func (s *Scanner) Root() string { return s.root }

// Scan walks the root and returns every non-ignored .md file found.
// Directories beginning with "." (state/history files, .git, etc.) are
// never descended into.
func (s *Scanner) Scan(ctx context.Context) ([]File, error) {
	var files []File

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if entry.IsDir() {
			if path != s.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".md") {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if s.shouldIgnore(relPath) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: relPath, AbsPath: path, Info: info})
		return nil
	})

	return files, err
}

// ReadFile reads one file's content by its path relative to the root.
func (s *Scanner) ReadFile(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, relPath))
}

// shouldIgnore reports whether relPath matches one of the scanner's ignore
// glob patterns. A pattern is tried three ways: against the full relative
// path, against the base file name, and - since filepath.Match has no "**"
// wildcard - with any "**" segment treated as matching zero or more path
// components rather than collapsing to a single "*".
func (s *Scanner) shouldIgnore(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range s.ignore {
		pattern = filepath.ToSlash(pattern)
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
		if strings.Contains(pattern, "**") && matchDoubleStar(pattern, relPath) {
			return true
		}
	}
	return false
}

// matchDoubleStar matches a glob pattern containing "**" segments against
// path, where each "**" stands for any number of path components (including
// zero) and every other segment is matched literally via filepath.Match.
func matchDoubleStar(pattern, path string) bool {
	patParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	return matchParts(patParts, pathParts)
}

func matchParts(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	if pat[0] == "**" {
		if matchParts(pat[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchParts(pat, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	if ok, _ := filepath.Match(pat[0], path[0]); !ok {
		return false
	}
	return matchParts(pat[1:], path[1:])
}
