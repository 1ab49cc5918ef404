package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/obsidian-notion-sync/wikisync/internal/changes"
	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/internal/history"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last-synced time and tracked page counts for every space",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	if c.LastSynced != nil {
		fmt.Printf("last synced: %s\n", c.LastSynced.Format("2006-01-02T15:04:05Z07:00"))
	} else {
		fmt.Println("last synced: never")
	}
	fmt.Println()

	hist, histErr := history.Open(filepath.Join(filepath.Dir(configPathOrDefault()), "wikisync-history.db"))
	if histErr == nil {
		defer hist.Close()
	}

	for _, space := range c.Spaces {
		tracked, err := changes.LoadTrackedMap(filepath.Join(space.LocalPath, ".wikisync-state.yaml"))
		if err != nil {
			fmt.Printf("%s (%s): could not read tracked state: %v\n", space.SpaceKey, space.LocalPath, err)
			continue
		}

		open := 0
		if hist != nil {
			if conflicts, err := hist.OpenConflicts(); err == nil {
				open = len(conflicts)
			}
		}

		fmt.Printf("%s: %d tracked page(s) -> %s", space.SpaceKey, len(tracked.All()), space.LocalPath)
		if open > 0 {
			fmt.Printf(" (%d open conflict(s))", open)
		}
		fmt.Println()
	}

	return nil
}
