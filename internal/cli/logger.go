package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/obsidian-notion-sync/wikisync/internal/orchestrator"
)

// runLogger writes progress output to stdout at the requested verbosity,
// optionally tee'd to a per-run log file under --logdir. There is no
// structured logging library anywhere in this codebase's lineage (the
// underlying Notion client wraps errors with plain fmt.Errorf), so this
// stays a thin wrapper over fmt rather than reaching for one.
type runLogger struct {
	verbosity int
	color     bool
	file      *os.File
}

func newRunLogger(verbosity int, noColor bool, logDir string) *runLogger {
	l := &runLogger{verbosity: verbosity, color: !noColor}

	if logDir == "" {
		return l
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "wikisync: could not create logdir %s: %v\n", logDir, err)
		return l
	}
	name := filepath.Join(logDir, fmt.Sprintf("wikisync-%s.log", time.Now().UTC().Format("20060102T150405Z")))
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wikisync: could not create log file %s: %v\n", name, err)
		return l
	}
	l.file = f
	return l
}

func (l *runLogger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

func (l *runLogger) tee(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w, msg)
	if l.file != nil {
		fmt.Fprintln(l.file, msg)
	}
}

func (l *runLogger) colorize(code, s string) string {
	if !l.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (l *runLogger) Infof(format string, args ...any) {
	if l.verbosity < 1 {
		return
	}
	l.tee(os.Stdout, l.colorize("36", "info")+": "+format, args...)
}

func (l *runLogger) Warnf(format string, args ...any) {
	if l.verbosity < 1 {
		return
	}
	l.tee(os.Stdout, l.colorize("33", "warn")+": "+format, args...)
}

func (l *runLogger) Errorf(format string, args ...any) {
	l.tee(os.Stderr, l.colorize("31", "error")+": "+format, args...)
}

func (l *runLogger) Debugf(format string, args ...any) {
	if l.verbosity < 2 {
		return
	}
	l.tee(os.Stdout, l.colorize("90", "debug")+": "+format, args...)
}

func (l *runLogger) Summary(spaceKey string, r orchestrator.Result) {
	if l.verbosity < 1 {
		return
	}
	l.tee(os.Stdout, "%s: pushed=%d pulled=%d merged=%d moved(local=%d,remote=%d) deleted(local=%d,remote=%d) conflicts=%d errors=%d",
		l.colorize("1", spaceKey), r.Pushed, r.Pulled, r.Merged, r.MovedLocal, r.MovedRemote, r.DeletedLocal, r.DeletedRemote, len(r.Conflicts), len(r.Errors))
	for _, c := range r.Conflicts {
		l.tee(os.Stdout, "  conflict: %s (%s)", c.Path, c.PageID)
	}
	for _, e := range r.Errors {
		l.tee(os.Stdout, "  error: %s: %v", e.Path, e.Err)
	}
}
