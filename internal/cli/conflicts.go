package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/internal/history"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List or resolve unresolved merge conflicts",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files with unresolved conflict markers",
	Args:  cobra.NoArgs,
	RunE:  runConflictsList,
}

var (
	resolveKeepLocal  bool
	resolveKeepRemote bool
)

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a conflicted file by keeping one side's content",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsResolve,
}

func init() {
	conflictsResolveCmd.Flags().BoolVar(&resolveKeepLocal, "keep-local", false, "keep the local version of every conflicted block")
	conflictsResolveCmd.Flags().BoolVar(&resolveKeepRemote, "keep-remote", false, "keep the remote version of every conflicted block")
	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
}

func historyDBPath() string {
	return filepath.Join(filepath.Dir(configPathOrDefault()), "wikisync-history.db")
}

func runConflictsList(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	hist, err := history.Open(historyDBPath())
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer hist.Close()

	open, err := hist.OpenConflicts()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		fmt.Println("no open conflicts")
		return nil
	}
	for _, c := range open {
		fmt.Printf("%s\t%s\tdetected %s\n", c.PageID, c.Path, c.DetectedAt.Format(time.RFC3339))
	}
	return nil
}

func runConflictsResolve(cmd *cobra.Command, args []string) error {
	if c, err := config.Load(cfgFile); err == nil {
		cfg = c
	}

	path := args[0]
	keepLocal, keepRemote := resolveKeepLocal, resolveKeepRemote
	if keepLocal == keepRemote {
		return fmt.Errorf("specify exactly one of --keep-local or --keep-remote")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	resolved, changed := resolveConflictMarkers(string(data), keepLocal)
	if !changed {
		return fmt.Errorf("%s has no conflict markers", path)
	}

	if err := os.WriteFile(path, []byte(resolved), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if hist, err := history.Open(historyDBPath()); err == nil {
		defer hist.Close()
		if open, err := hist.OpenConflicts(); err == nil {
			for _, c := range open {
				if c.Path != path {
					continue
				}
				resolution := "theirs"
				if keepLocal {
					resolution = "ours"
				}
				_ = hist.ResolveConflict(c.PageID, resolution, time.Now())
				break
			}
		}
	}

	fmt.Printf("resolved %s, keeping %s side\n", path, sideName(keepLocal))
	return nil
}

func sideName(keepLocal bool) string {
	if keepLocal {
		return "local"
	}
	return "remote"
}

// resolveConflictMarkers strips every <<<<<<< local / ======= / >>>>>>>
// remote block from text, keeping the local or remote half of each.
func resolveConflictMarkers(text string, keepLocal bool) (string, bool) {
	lines := strings.Split(text, "\n")
	var out []string
	changed := false
	i := 0
	for i < len(lines) {
		if strings.HasPrefix(lines[i], "<<<<<<< local") {
			changed = true
			i++
			var local, remote []string
			for i < len(lines) && lines[i] != "=======" {
				local = append(local, lines[i])
				i++
			}
			i++ // skip =======
			for i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>> remote") {
				remote = append(remote, lines[i])
				i++
			}
			i++ // skip >>>>>>> remote
			if keepLocal {
				out = append(out, local...)
			} else {
				out = append(out, remote...)
			}
			continue
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n"), changed
}
