// Package main provides the entry point for the wikisync CLI tool.
//
// wikisync keeps a local directory of markdown files and a hosted wiki
// space in sync. It preserves cross-page links and frontmatter when
// converting between markdown and the wiki's block-based format.
package main

import (
	"os"

	"github.com/obsidian-notion-sync/wikisync/internal/cli"
)

// Version information set by build flags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		os.Exit(int(cli.ExitCode(err)))
	}
}
