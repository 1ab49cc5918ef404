package merge

import (
	"strings"
	"testing"
)

func tableLines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestFindTables_SingleTable(t *testing.T) {
	lines := tableLines(`
intro text
| a | b |
| - | - |
| 1 | 2 |
trailing text
`)

	regions := findTables(lines)
	if len(regions) != 1 {
		t.Fatalf("expected 1 table region, got %d", len(regions))
	}
	if regions[0].Start != 1 || regions[0].End != 4 {
		t.Errorf("region = %+v; want {1 4}", regions[0])
	}
}

func TestIsSeparatorRow(t *testing.T) {
	cases := map[string]bool{
		"| - | - |":     true,
		"|---|---|":     true,
		"| :-- | --: |": true,
		"| a | b |":     false,
		"not a table":   false,
	}
	for input, want := range cases {
		if got := isSeparatorRow(input); got != want {
			t.Errorf("isSeparatorRow(%q) = %v; want %v", input, got, want)
		}
	}
}

func TestParseTableRow(t *testing.T) {
	cells := parseTableRow("| a | b \\| c | d |")
	want := []string{"a", "b \\| c", "d"}
	if len(cells) != len(want) {
		t.Fatalf("got %d cells, want %d: %v", len(cells), len(want), cells)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %q; want %q", i, cells[i], want[i])
		}
	}
}

func TestMergeTables_IndependentCellEdits(t *testing.T) {
	base := tableLines(`
| Name | Status |
| - | - |
| Alice | pending |
| Bob | pending |
`)
	local := tableLines(`
| Name | Status |
| - | - |
| Alice | approved |
| Bob | pending |
`)
	remote := tableLines(`
| Name | Status |
| - | - |
| Alice | pending |
| Bob | rejected |
`)

	merged, conflict := mergeTables(base, local, remote)
	if conflict {
		t.Fatalf("expected independent cell edits to merge cleanly, got conflict: %v", merged)
	}

	joined := strings.Join(merged, "\n")
	if !strings.Contains(joined, "approved") {
		t.Errorf("merged table missing local's edit: %s", joined)
	}
	if !strings.Contains(joined, "rejected") {
		t.Errorf("merged table missing remote's edit: %s", joined)
	}
}

func TestMergeTables_SameCellConflict(t *testing.T) {
	base := tableLines(`
| Name | Status |
| - | - |
| Alice | pending |
`)
	local := tableLines(`
| Name | Status |
| - | - |
| Alice | approved |
`)
	remote := tableLines(`
| Name | Status |
| - | - |
| Alice | rejected |
`)

	_, conflict := mergeTables(base, local, remote)
	if !conflict {
		t.Error("expected conflict when both sides edit the same cell")
	}
}

func TestMergeContentWithTableAwareness_FallsBackOnTableCountMismatch(t *testing.T) {
	base := "para\n\n| a | b |\n| - | - |\n| 1 | 2 |\n"
	local := "para\n\n| a | b |\n| - | - |\n| 1 | 2 |\n\n| c | d |\n| - | - |\n| 3 | 4 |\n"
	remote := "para changed\n\n| a | b |\n| - | - |\n| 1 | 2 |\n"

	merged, _ := mergeContentWithTableAwareness(base, local, remote)
	// No panic and a non-empty result is sufficient here; the mismatch in
	// table count must route through the plain line-based merge rather
	// than the cell-aware path.
	if merged == "" {
		t.Error("expected a non-empty merge result")
	}
}
