package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/parser"
	"github.com/badno/wcflat/internal/report"
)

var (
	diffSamples int
	diffStrict  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <a.csv> <b.csv>",
	Short: "Compare two product CSVs column by column",
	Long: `Compare two CSV files row by row. Cells are compared after trimming;
numeric cells are equal when their decimal values match.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().IntVar(&diffSamples, "samples", 3, "Differing cells to show per column")
	diffCmd.Flags().BoolVar(&diffStrict, "strict", false, "Fail when the files differ")
}

func runDiff(cmd *cobra.Command, args []string) error {
	printHeader("COMPARING FILES")

	a, err := parser.ParseRecords(args[0])
	if err != nil {
		return err
	}
	b, err := parser.ParseRecords(args[1])
	if err != nil {
		return err
	}

	d := report.Diff(a, b, diffSamples)

	shape := newTable("", "Rows", "Columns")
	shape.Append([]string{args[0], strconv.Itoa(d.RowsA), strconv.Itoa(d.ColumnsA)})
	shape.Append([]string{args[1], strconv.Itoa(d.RowsB), strconv.Itoa(d.ColumnsB)})
	shape.Render()
	fmt.Println()

	if len(d.OnlyInA) > 0 {
		color.Yellow("  Only in %s: %s\n", args[0], strings.Join(d.OnlyInA, ", "))
	}
	if len(d.OnlyInB) > 0 {
		color.Yellow("  Only in %s: %s\n", args[1], strings.Join(d.OnlyInB, ", "))
	}

	if d.Identical() {
		color.Green("  ✓ Files are identical\n\n")
		return nil
	}

	table := newTable("Column", "Differences", "Similarity", "Examples")
	for _, c := range d.Columns {
		if c.Differences == 0 {
			continue
		}
		samples := make([]string, 0, len(c.Samples))
		for _, s := range c.Samples {
			samples = append(samples, fmt.Sprintf("row %d: %q → %q", s.Row, truncate(s.A, 20), truncate(s.B, 20)))
		}
		table.Append([]string{
			c.Column,
			strconv.Itoa(c.Differences),
			fmt.Sprintf("%.1f%%", c.Similarity*100),
			strings.Join(samples, "; "),
		})
	}
	table.Render()
	fmt.Println()

	if diffStrict {
		return fmt.Errorf("files differ")
	}
	return nil
}
