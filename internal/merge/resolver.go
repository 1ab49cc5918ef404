package merge

// MergeOutcome is the result of resolving one page's base/local/remote
// bodies into a single merged body.
type MergeOutcome struct {
	Text     string
	Conflict bool
}

// Resolve merges base, local, and remote bodies for one page. It takes the
// fast path whenever one side is unchanged relative to base or both sides
// made the identical change, and otherwise runs the table-aware three-way
// merge, producing inline conflict markers for anything it cannot
// reconcile automatically.
func Resolve(base, local, remote string) MergeOutcome {
	switch {
	case local == remote:
		return MergeOutcome{Text: local}
	case local == base:
		return MergeOutcome{Text: remote}
	case remote == base:
		return MergeOutcome{Text: local}
	}

	text, conflict := mergeContentWithTableAwareness(base, local, remote)
	return MergeOutcome{Text: text, Conflict: conflict}
}
