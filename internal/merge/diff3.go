// Package merge implements the Conflict Resolver: a three-way, line-based
// merge with a table-aware pass layered on top so that independent cell
// edits in a markdown table merge cleanly instead of producing a
// whole-table conflict.
//
// This replaces shelling out to `git merge-file`, which is what the engine
// this was modeled on does; an in-process merge keeps the sync engine
// free of an external git dependency and gives full control over conflict
// marker formatting.
package merge

import "strings"

const (
	localMarkerStart  = "<<<<<<< local"
	localMarkerMiddle = "======="
	remoteMarkerEnd   = ">>>>>>> remote"
)

// match is a maximal run of lines common to base and another sequence.
type match struct {
	BaseStart, OtherStart, Size int
}

// syncPoint is a base range known to be unchanged relative to both local
// and remote, anchoring the merge between it and its neighbors.
type syncPoint struct {
	BaseStart, BaseEnd int
	LocalStart         int
	RemoteStart        int
}

// Diff3 performs a three-way merge of base/local/remote text, returning the
// merged text and whether any conflicts remain (marked inline with
// <<<<<<< local / ======= / >>>>>>> remote markers).
func Diff3(base, local, remote string) (merged string, conflict bool) {
	baseLines := splitLines(base)
	localLines := splitLines(local)
	remoteLines := splitLines(remote)

	matchesLocal := matchingBlocks(baseLines, localLines)
	matchesRemote := matchingBlocks(baseLines, remoteLines)
	syncs := intersectMatches(matchesLocal, matchesRemote)

	var out []string
	prevBase, prevLocal, prevRemote := 0, 0, 0

	emitGap := func(baseEnd, localEnd, remoteEnd int) {
		baseGap := baseLines[prevBase:baseEnd]
		localGap := localLines[prevLocal:localEnd]
		remoteGap := remoteLines[prevRemote:remoteEnd]

		switch {
		case linesEqual(localGap, baseGap):
			out = append(out, remoteGap...)
		case linesEqual(remoteGap, baseGap):
			out = append(out, localGap...)
		case linesEqual(localGap, remoteGap):
			out = append(out, localGap...)
		default:
			if len(localGap) == 0 && len(remoteGap) == 0 {
				return
			}
			conflict = true
			out = append(out, localMarkerStart)
			out = append(out, localGap...)
			out = append(out, localMarkerMiddle)
			out = append(out, remoteGap...)
			out = append(out, remoteMarkerEnd)
		}
	}

	for _, s := range syncs {
		if s.BaseStart < prevBase {
			continue // already covered by a larger prior sync region
		}
		localEnd := s.LocalStart
		remoteEnd := s.RemoteStart
		emitGap(s.BaseStart, localEnd, remoteEnd)

		size := s.BaseEnd - s.BaseStart
		out = append(out, baseLines[s.BaseStart:s.BaseEnd]...)
		prevBase = s.BaseEnd
		prevLocal = s.LocalStart + size
		prevRemote = s.RemoteStart + size
	}
	emitGap(len(baseLines), len(localLines), len(remoteLines))

	return strings.Join(out, "\n"), conflict
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// matchingBlocks finds the maximal non-overlapping runs common to base and
// other, in ascending order, via a classic LCS backtrack.
func matchingBlocks(base, other []string) []match {
	n, m := len(base), len(other)
	if n == 0 || m == 0 {
		return nil
	}

	// lcs[i][j] = length of the LCS of base[i:] and other[j:].
	lcs := make([][]int32, n+1)
	for i := range lcs {
		lcs[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if base[i] == other[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var matches []match
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case base[i] == other[j]:
			start := i
			startJ := j
			for i < n && j < m && base[i] == other[j] && lcs[i][j] == lcs[i+1][j+1]+1 {
				i++
				j++
			}
			matches = append(matches, match{BaseStart: start, OtherStart: startJ, Size: i - start})
		case lcs[i+1][j] >= lcs[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matches
}

// intersectMatches finds base ranges that both matchesLocal and
// matchesRemote agree are unchanged, which anchor the merge.
func intersectMatches(matchesLocal, matchesRemote []match) []syncPoint {
	var out []syncPoint
	i, j := 0, 0
	for i < len(matchesLocal) && j < len(matchesRemote) {
		a := matchesLocal[i]
		b := matchesRemote[j]
		aEnd := a.BaseStart + a.Size
		bEnd := b.BaseStart + b.Size

		start := a.BaseStart
		if b.BaseStart > start {
			start = b.BaseStart
		}
		end := aEnd
		if bEnd < end {
			end = bEnd
		}

		if start < end {
			out = append(out, syncPoint{
				BaseStart:   start,
				BaseEnd:     end,
				LocalStart:  a.OtherStart + (start - a.BaseStart),
				RemoteStart: b.OtherStart + (start - b.BaseStart),
			})
		}

		if aEnd < bEnd {
			i++
		} else {
			j++
		}
	}
	return out
}
