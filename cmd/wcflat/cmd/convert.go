package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/flatten"
	"github.com/badno/wcflat/internal/orchestrator"
	"github.com/badno/wcflat/internal/output"
)

var (
	convertDest         []string
	convertFormat       string
	convertOutputPath   string
	convertSingleTag    bool
	convertSamplePerTag bool
	convertVariantAttrs []string
	convertPrimaryMatch string
	convertHandles      []string
	convertDryRun       bool
	convertTimeout      time.Duration
	convertMaxListed    int
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.csv>",
	Short: "Flatten a WooCommerce export into a Shopify product CSV",
	Long: `Parse a WooCommerce product export, build one primary row, one row per
extra image and one row per option combination for every parent product,
and export the result to CSV, JSON or ClickHouse.

Products that cannot be converted are reported and skipped; the rest of
the run continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringSliceVar(&convertDest, "dest", nil, "Export destinations (csv, json, clickhouse); default from config")
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "Output format (shopify, matrixify, json, jsonl)")
	convertCmd.Flags().StringVarP(&convertOutputPath, "output", "o", "", "Output file path (single file destination only)")
	convertCmd.Flags().BoolVar(&convertSingleTag, "single-tag", false, "Emit one level-1 category tag per product")
	convertCmd.Flags().BoolVar(&convertSamplePerTag, "sample-per-tag", false, "Convert only the first product of each level-1 category")
	convertCmd.Flags().StringSliceVar(&convertVariantAttrs, "variant-attrs", nil, "Attributes that become Shopify options (default from config)")
	convertCmd.Flags().StringVar(&convertPrimaryMatch, "primary-match", "", "Child backing the primary row (combination, positional)")
	convertCmd.Flags().StringSliceVar(&convertHandles, "only", nil, "Export only these handles")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "Convert without writing any output")
	convertCmd.Flags().DurationVar(&convertTimeout, "timeout", 10*time.Minute, "Overall time limit")
	convertCmd.Flags().IntVar(&convertMaxListed, "list", 20, "Products to list in the breakdown (0 = all)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	success := color.New(color.FgGreen)

	printHeader("CONVERTING PRODUCTS")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
	defer cancel()

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Close()

	conv := orch.FlattenConfig()
	if cmd.Flags().Changed("single-tag") {
		conv.SingleTagMode = convertSingleTag
	}
	if cmd.Flags().Changed("sample-per-tag") {
		conv.SamplePerTag = convertSamplePerTag
	}
	if len(convertVariantAttrs) > 0 {
		conv.VariantAttributes = convertVariantAttrs
	}
	if convertPrimaryMatch != "" {
		switch pm := flatten.PrimaryMatch(convertPrimaryMatch); pm {
		case flatten.PrimaryMatchCombination, flatten.PrimaryMatchPositional:
			conv.PrimaryMatch = pm
		default:
			return fmt.Errorf("invalid --primary-match: %s", convertPrimaryMatch)
		}
	}

	color.Yellow("  Input: %s\n", args[0])
	if convertDryRun {
		color.Yellow("  Mode: DRY RUN\n")
	}
	fmt.Println()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("  Flattening products"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        color.GreenString("█"),
					SaucerHead:    color.GreenString("█"),
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionShowCount(),
			)
		}
		bar.Set(done)
	}

	result, err := orch.Convert(ctx, orchestrator.ConvertOptions{
		Input:        args[0],
		Destinations: convertDest,
		Format:       output.Format(convertFormat),
		OutputPath:   convertOutputPath,
		Handles:      convertHandles,
		Conversion:   conv,
		DryRun:       convertDryRun,
		Progress:     progress,
	})
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if result != nil && result.Flatten != nil {
		printBreakdown(result.Flatten, convertMaxListed)
		printProductErrors(result.Flatten.Errors)
	}
	if err != nil {
		if errors.Is(err, orchestrator.ErrNothingConverted) {
			color.Yellow("  No products could be converted.")
		}
		return err
	}

	for _, e := range result.Exports {
		if e == nil {
			continue
		}
		success.Printf("  ✓ %s\n", e.Details)
		if e.Destination != "" {
			success.Printf("  ✓ Output: %s\n", e.Destination)
		}
	}
	success.Printf("  ✓ Run %s finished in %s\n", result.RunID, result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Println()

	return nil
}

func printBreakdown(res *flatten.Result, limit int) {
	header := color.New(color.FgCyan, color.Bold)

	header.Println("\n  PRODUCT BREAKDOWN")
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Handle", "Title", "Rows", "Variants", "Images"})
	table.SetBorder(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	rows, variants, images := 0, 0, 0
	for i, p := range res.Products {
		rows += p.Rows
		variants += p.Variants
		images += p.Images
		if limit > 0 && i >= limit {
			continue
		}
		table.Append([]string{
			p.Handle,
			truncate(p.Title, 40),
			strconv.Itoa(p.Rows),
			strconv.Itoa(p.Variants),
			strconv.Itoa(p.Images),
		})
	}
	table.SetFooter([]string{fmt.Sprintf("%d products", len(res.Products)), "", strconv.Itoa(rows), strconv.Itoa(variants), strconv.Itoa(images)})
	table.Render()

	if limit > 0 && len(res.Products) > limit {
		color.Yellow("  ... and %d more products\n", len(res.Products)-limit)
	}
	fmt.Println()
}

func printProductErrors(errs []*flatten.ProductError) {
	if len(errs) == 0 {
		return
	}

	color.Red("  %d product(s) skipped:\n\n", len(errs))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Product", "Line", "Error"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgRedColor},
	)

	for _, e := range errs {
		line := ""
		if e.Line > 0 {
			line = strconv.Itoa(e.Line)
		}
		reason := e.Message
		if e.Err != nil {
			reason = fmt.Sprintf("%v: %s", e.Err, e.Message)
		}
		table.Append([]string{e.ProductID, line, reason})
	}
	table.Render()
	fmt.Println()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
