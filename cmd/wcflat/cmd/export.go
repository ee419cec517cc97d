package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/orchestrator"
	"github.com/badno/wcflat/internal/output"
	chout "github.com/badno/wcflat/internal/output/clickhouse"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Inspect export destinations",
	Long:  `List the configured export destinations and test their connectivity.`,
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List export destinations and their formats",
	RunE:  runExportList,
}

var exportTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity of every destination",
	RunE:  runExportTest,
}

var exportRunsLimit int

var exportRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List conversion runs stored in ClickHouse",
	RunE:  runExportRuns,
}

func init() {
	exportRunsCmd.Flags().IntVarP(&exportRunsLimit, "limit", "n", 20, "Runs to show")

	exportCmd.AddCommand(exportListCmd)
	exportCmd.AddCommand(exportTestCmd)
	exportCmd.AddCommand(exportRunsCmd)
}

type formatLister interface {
	SupportedFormats() []output.Format
}

func runExportList(cmd *cobra.Command, args []string) error {
	printHeader("EXPORT DESTINATIONS")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(context.Background()); err != nil {
		return err
	}
	defer orch.Close()

	table := newTable("Destination", "Formats", "Default")
	for _, a := range orch.Outputs().List() {
		formats := "-"
		if fl, ok := a.(formatLister); ok && len(fl.SupportedFormats()) > 0 {
			names := make([]string, 0, len(fl.SupportedFormats()))
			for _, f := range fl.SupportedFormats() {
				names = append(names, string(f))
			}
			formats = strings.Join(names, ", ")
		}
		def := ""
		if a.Name() == cfg.Outputs.Default {
			def = "✓"
		}
		table.Append([]string{a.Name(), formats, def})
	}
	table.Render()
	fmt.Println()
	return nil
}

func runExportTest(cmd *cobra.Command, args []string) error {
	printHeader("TESTING DESTINATIONS")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Close()

	results := orch.Outputs().TestAll(ctx)
	failed := 0
	for _, a := range orch.Outputs().List() {
		if err := results[a.Name()]; err != nil {
			failed++
			color.Red("  ✗ %s: %v\n", a.Name(), err)
			continue
		}
		color.Green("  ✓ %s\n", a.Name())
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d of %d destinations unreachable", failed, len(results))
	}
	return nil
}

func runExportRuns(cmd *cobra.Command, args []string) error {
	printHeader("CLICKHOUSE RUNS")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Close()

	a, err := orch.Outputs().Get(chout.AdapterName)
	if err != nil {
		return err
	}
	ch, ok := a.(*chout.Adapter)
	if !ok {
		return fmt.Errorf("unexpected adapter type for %s", chout.AdapterName)
	}

	summaries, err := ch.RunSummaries(ctx, exportRunsLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		color.Yellow("  No runs stored yet\n\n")
		return nil
	}

	table := newTable("Run", "Exported", "Products", "Rows", "Variants", "Images")
	for _, s := range summaries {
		table.Append([]string{
			s.RunID,
			s.ExportedAt.Local().Format("2006-01-02 15:04"),
			strconv.FormatUint(s.Products, 10),
			strconv.FormatUint(s.Rows, 10),
			strconv.FormatUint(s.Variants, 10),
			strconv.FormatUint(s.Images, 10),
		})
	}
	table.Render()
	fmt.Println()
	return nil
}
