// Package cli implements the Cobra-based command-line interface for
// wikisync: a bidirectional sync engine between a local directory of
// markdown files and a hosted wiki space.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidian-notion-sync/wikisync/internal/config"
	"github.com/obsidian-notion-sync/wikisync/internal/history"
	"github.com/obsidian-notion-sync/wikisync/internal/orchestrator"
	"github.com/obsidian-notion-sync/wikisync/pkg/frontmatter"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	cfg     *config.Config

	flagInit          bool
	flagExcludeParent bool
	flagDryRun        bool
	flagForcePush     bool
	flagForcePull     bool
	flagExcludeRemote []string
	flagExcludeLocal  []string
	flagVerbosity     int
	flagNoColor       bool
	flagLogDir        string
)

// SetVersion sets the version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

var rootCmd = &cobra.Command{
	Use:   "wikisync [file]",
	Short: "Bidirectional sync between a local directory and a hosted wiki space",
	Long: `wikisync keeps a local directory of markdown files and a hosted wiki
space in sync. Run it with no arguments to run a full bidirectional cycle
over every configured space binding, or pass a single file's path to push
just that file unconditionally.

Use --init <path> <url> to register a new space binding before the first
sync.`,
	Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute adds all child commands and runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .wikisync.yaml, then $HOME/.config/wikisync/config.yaml)")

	rootCmd.Flags().BoolVar(&flagInit, "init", false, "register a new space binding: wikisync --init <path> <url>")
	rootCmd.Flags().BoolVar(&flagExcludeParent, "exclude-parent", false, "with --init, do not sync the root page itself, only its descendants")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would change without writing anything")
	rootCmd.Flags().BoolVar(&flagForcePush, "force-push", false, "push local content for every page, ignoring remote changes")
	rootCmd.Flags().BoolVar(&flagForcePull, "force-pull", false, "pull remote content for every page, ignoring local changes")
	rootCmd.Flags().StringArrayVar(&flagExcludeRemote, "exclude-confluence", nil, "exclude a remote page by its canonical URL (repeatable)")
	rootCmd.Flags().StringArrayVar(&flagExcludeLocal, "exclude-local", nil, "exclude local files matching a glob (repeatable)")
	rootCmd.Flags().IntVar(&flagVerbosity, "verbosity", 1, "output verbosity: 0 (quiet), 1 (normal), 2 (debug)")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.Flags().StringVar(&flagLogDir, "logdir", "", "directory to write a per-run log file to, in addition to stdout")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(conflictsCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flagInit {
		if len(args) != 2 {
			return fmt.Errorf("--init requires exactly two arguments: <path> <url>")
		}
		return runInit(args[0], args[1], flagExcludeParent)
	}

	if flagForcePush && flagForcePull {
		return fmt.Errorf("--force-push and --force-pull are mutually exclusive")
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("%w: run 'wikisync --init <path> <url>' first", err)
	}

	token := os.Getenv("WIKISYNC_TOKEN")
	if token == "" {
		token = os.Getenv("NOTION_TOKEN")
	}
	if token == "" {
		return &exitError{code: orchestrator.ExitAuthError, err: fmt.Errorf("no API token set (expected WIKISYNC_TOKEN or NOTION_TOKEN)")}
	}

	mode := orchestrator.ModeBidirectional
	switch {
	case flagForcePush:
		mode = orchestrator.ModeForcePush
	case flagForcePull:
		mode = orchestrator.ModeForcePull
	}

	var singleFile string
	if len(args) == 1 {
		singleFile = args[0]
	}

	logger := newRunLogger(flagVerbosity, flagNoColor, flagLogDir)
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	histPath := filepath.Join(filepath.Dir(configPathOrDefault()), "wikisync-history.db")
	hist, err := history.Open(histPath)
	if err != nil {
		logger.Warnf("could not open history database at %s: %v", histPath, err)
		hist = nil
	} else {
		defer hist.Close()
	}

	if len(flagExcludeRemote) > 0 || len(flagExcludeLocal) > 0 {
		for i := range cfg.Spaces {
			cfg.Spaces[i] = applyExclusions(cfg.Spaces[i], flagExcludeRemote, flagExcludeLocal)
		}
		if !flagDryRun {
			if err := cfg.Save(""); err != nil {
				logger.Warnf("could not persist exclusions: %v", err)
			}
		}
	}

	finalCode := orchestrator.ExitSuccess
	for _, binding := range cfg.Spaces {
		opts := orchestrator.Options{DryRun: flagDryRun, Mode: mode}
		if singleFile != "" {
			rel, ok := relativeToBinding(binding, singleFile)
			if !ok {
				continue
			}
			opts.SingleFile = rel
		}

		logger.Infof("syncing %s -> %s", binding.SpaceKey, binding.LocalPath)

		engine, buildErr := buildEngine(binding, token, hist)
		var result orchestrator.Result
		if buildErr == nil {
			result, err = engine.Cycle(ctx, opts)
		} else {
			err = buildErr
		}

		code := orchestrator.Classify(result, err)
		if code > finalCode {
			finalCode = code
		}
		if err != nil {
			logger.Errorf("space %s: %v", binding.SpaceKey, err)
			continue
		}
		logger.Summary(binding.SpaceKey, result)
	}

	if !flagDryRun {
		cfg.SetLastSynced(time.Now())
		if err := cfg.Save(""); err != nil {
			logger.Warnf("could not persist last-synced time: %v", err)
		}
	}

	if finalCode != orchestrator.ExitSuccess {
		return &exitError{code: finalCode, err: fmt.Errorf("sync completed with issues")}
	}
	return nil
}

func configPathOrDefault() string {
	if cfg != nil && cfg.Path() != "" {
		return cfg.Path()
	}
	return ".wikisync.yaml"
}

func applyExclusions(binding config.SpaceBinding, excludeRemote, excludeLocal []string) config.SpaceBinding {
	for _, url := range excludeRemote {
		if _, id, ok := frontmatter.ParseConfluenceURL(url); ok {
			binding.ExcludePageIDs = append(append([]string{}, binding.ExcludePageIDs...), id)
		}
	}
	if len(excludeLocal) > 0 {
		binding.ExcludeLocal = append(append([]string{}, binding.ExcludeLocal...), excludeLocal...)
	}
	return binding
}

func relativeToBinding(binding config.SpaceBinding, path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	root, err := filepath.Abs(binding.LocalPath)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

// exitError carries the orchestrator.ExitCode a failed run should exit
// with, so main can translate it into a process exit status without this
// package calling os.Exit directly.
type exitError struct {
	code orchestrator.ExitCode
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode extracts the orchestrator.ExitCode carried by an error returned
// from Execute, defaulting to ExitGeneralError for anything else.
func ExitCode(err error) orchestrator.ExitCode {
	if err == nil {
		return orchestrator.ExitSuccess
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return orchestrator.ExitGeneralError
}

