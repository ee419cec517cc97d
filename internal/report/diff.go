package report

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// CellDiff is one differing cell; Row is the 1-based data row
type CellDiff struct {
	Row int
	A   string
	B   string
}

// ColumnDiff describes the differences of one shared column
type ColumnDiff struct {
	Column      string
	Differences int
	Similarity  float64 // mean normalized edit similarity over compared rows, 0..1
	Samples     []CellDiff
}

// DiffReport compares two CSV documents
type DiffReport struct {
	RowsA    int
	RowsB    int
	ColumnsA int
	ColumnsB int
	OnlyInA  []string
	OnlyInB  []string
	Columns  []ColumnDiff // shared columns that differ, in A's order
}

// Identical reports whether both documents have the same shape, columns and cells
func (d *DiffReport) Identical() bool {
	return d.RowsA == d.RowsB &&
		d.ColumnsA == d.ColumnsB &&
		len(d.OnlyInA) == 0 &&
		len(d.OnlyInB) == 0 &&
		len(d.Columns) == 0
}

// Diff compares two CSV documents given as records, header first.
// Columns are matched by name and rows by position; at most maxSamples
// differing cells are kept per column.
func Diff(a, b [][]string, maxSamples int) *DiffReport {
	headerA, rowsA := split(a)
	headerB, rowsB := split(b)

	d := &DiffReport{
		RowsA:    len(rowsA),
		RowsB:    len(rowsB),
		ColumnsA: len(headerA),
		ColumnsB: len(headerB),
	}

	indexB := make(map[string]int, len(headerB))
	for i, col := range headerB {
		indexB[col] = i
	}
	inA := make(map[string]bool, len(headerA))
	for _, col := range headerA {
		inA[col] = true
		if _, ok := indexB[col]; !ok {
			d.OnlyInA = append(d.OnlyInA, col)
		}
	}
	for _, col := range headerB {
		if !inA[col] {
			d.OnlyInB = append(d.OnlyInB, col)
		}
	}

	n := min(len(rowsA), len(rowsB))
	for ia, col := range headerA {
		ib, ok := indexB[col]
		if !ok {
			continue
		}

		cd := ColumnDiff{Column: col}
		total := 0.0
		for r := 0; r < n; r++ {
			va := cell(rowsA[r], ia)
			vb := cell(rowsB[r], ib)
			if CellsEqual(va, vb) {
				total++
				continue
			}
			cd.Differences++
			total += Similarity(va, vb)
			if len(cd.Samples) < maxSamples {
				cd.Samples = append(cd.Samples, CellDiff{Row: r + 1, A: va, B: vb})
			}
		}

		if cd.Differences > 0 {
			cd.Similarity = total / float64(n)
			d.Columns = append(d.Columns, cd)
		}
	}

	return d
}

// CellsEqual compares two cells after trimming; numeric cells compare by value
func CellsEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	da, okA := ParsePrice(a)
	db, okB := ParsePrice(b)
	return okA && okB && da.Equal(db)
}

// Similarity returns 1 - editDistance/maxLen over runes, in 0..1
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return max(0, 1-float64(dist)/float64(longest))
}

func split(records [][]string) ([]string, [][]string) {
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], records[1:]
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}
