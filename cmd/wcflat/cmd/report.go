package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/images"
	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/internal/output/file"
	"github.com/badno/wcflat/internal/parser"
	"github.com/badno/wcflat/internal/report"
	"github.com/badno/wcflat/pkg/models"
)

var (
	reportLimit       int
	reportPlaceholder string

	filterVariantImages string
	filterPrice         string
	filterMinPrice      string
	filterMaxPrice      string
	filterMinVariants   int
	filterMaxVariants   int
	filterTags          []string
	filterLimit         int
	filterOutput        string
	filterFormat        string

	imagesInspect     bool
	imagesConcurrency int
	imagesMinSize     int
	imagesTimeout     time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyze a flattened Shopify CSV",
	Long:  `Statistics, tag analysis, quality audit and filtering over a Shopify product CSV.`,
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats <shopify.csv>",
	Short: "Show per-product statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportStats,
}

var reportTagsCmd = &cobra.Command{
	Use:   "tags <shopify.csv>",
	Short: "Show products and variants per tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportTags,
}

var reportAuditCmd = &cobra.Command{
	Use:   "audit <shopify.csv>",
	Short: "Check images, compare-at prices and variant coverage",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportAudit,
}

var reportImagesCmd = &cobra.Command{
	Use:   "images <shopify.csv>",
	Short: "Check that image URLs resolve, optionally detecting blank images",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportImages,
}

var reportFilterCmd = &cobra.Command{
	Use:   "filter <shopify.csv>",
	Short: "Write the products matching filters to a new CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportFilter,
}

func init() {
	reportStatsCmd.Flags().IntVar(&reportLimit, "limit", 30, "Products to list (0 = all)")
	reportTagsCmd.Flags().IntVar(&reportLimit, "limit", 30, "Tags to list (0 = all)")
	reportAuditCmd.Flags().StringVar(&reportPlaceholder, "placeholder", "", "Image URL treated as blank (default from config)")

	reportImagesCmd.Flags().BoolVar(&imagesInspect, "inspect", false, "Download and decode images to detect blank ones")
	reportImagesCmd.Flags().IntVar(&imagesConcurrency, "concurrency", 8, "Parallel requests")
	reportImagesCmd.Flags().IntVar(&imagesMinSize, "min-size", 100, "With --inspect, smaller images count as blank")
	reportImagesCmd.Flags().DurationVar(&imagesTimeout, "timeout", 15*time.Second, "Per-request timeout")

	reportFilterCmd.Flags().StringVar(&filterVariantImages, "variant-images", "", "with or without variant images")
	reportFilterCmd.Flags().StringVar(&filterPrice, "price", "", "Price filter (zero, nonzero, range)")
	reportFilterCmd.Flags().StringVar(&filterMinPrice, "min-price", "", "Lower bound for --price range")
	reportFilterCmd.Flags().StringVar(&filterMaxPrice, "max-price", "", "Upper bound for --price range")
	reportFilterCmd.Flags().IntVar(&filterMinVariants, "min-variants", 0, "Minimum priced rows")
	reportFilterCmd.Flags().IntVar(&filterMaxVariants, "max-variants", 0, "Maximum priced rows (0 = unbounded)")
	reportFilterCmd.Flags().StringSliceVar(&filterTags, "tags", nil, "Keep products carrying any of these tags")
	reportFilterCmd.Flags().IntVar(&filterLimit, "limit", 0, "Keep at most this many products")
	reportFilterCmd.Flags().StringVarP(&filterOutput, "output", "o", "filtered.csv", "Output file path")
	reportFilterCmd.Flags().StringVar(&filterFormat, "format", "shopify", "Output format (shopify, matrixify)")

	reportCmd.AddCommand(reportStatsCmd)
	reportCmd.AddCommand(reportTagsCmd)
	reportCmd.AddCommand(reportAuditCmd)
	reportCmd.AddCommand(reportImagesCmd)
	reportCmd.AddCommand(reportFilterCmd)
}

func loadTable(path string) (*models.Table, error) {
	table, err := parser.ParseShopifyCSV(path)
	if err != nil {
		return nil, err
	}
	color.Yellow("  Loaded %d rows for %d products from %s\n\n", len(table.Rows), len(table.Handles()), path)
	return table, nil
}

func newTable(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetBorder(false)
	colors := make([]tablewriter.Colors, len(headers))
	for i := range colors {
		colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor}
	}
	table.SetHeaderColor(colors...)
	return table
}

func formatPrice(d decimal.Decimal, ok bool) string {
	if !ok {
		return "-"
	}
	return d.StringFixed(2)
}

func runReportStats(cmd *cobra.Command, args []string) error {
	printHeader("PRODUCT STATISTICS")

	table, err := loadTable(args[0])
	if err != nil {
		return err
	}
	s := report.Summarize(table)

	overview := newTable("Metric", "Value")
	overview.Append([]string{"Products", strconv.Itoa(len(s.Products))})
	overview.Append([]string{"Rows", strconv.Itoa(s.TotalRows)})
	overview.Append([]string{"With several variants", strconv.Itoa(s.WithVariants)})
	overview.Append([]string{"Single variant", strconv.Itoa(s.SingleVariant)})
	overview.Append([]string{"With variant images", strconv.Itoa(s.WithVariantImages)})
	overview.Append([]string{"Zero or missing price", strconv.Itoa(s.ZeroPrice)})
	overview.Render()
	fmt.Println()

	breakdown := newTable("Handle", "Title", "Variants", "Images", "Min", "Max", "Category", "Tags")
	for i, p := range s.Products {
		if reportLimit > 0 && i >= reportLimit {
			color.Yellow("  ... and %d more products\n", len(s.Products)-reportLimit)
			break
		}
		breakdown.Append([]string{
			p.Handle,
			truncate(p.Title, 30),
			strconv.Itoa(p.Variants),
			strconv.Itoa(p.Images),
			formatPrice(p.MinPrice, p.Priced),
			formatPrice(p.MaxPrice, p.Priced),
			categoryText(p),
			truncate(strings.Join(p.Tags, ", "), 30),
		})
	}
	breakdown.Render()
	fmt.Println()

	return nil
}

func runReportTags(cmd *cobra.Command, args []string) error {
	printHeader("TAG ANALYSIS")

	table, err := loadTable(args[0])
	if err != nil {
		return err
	}
	stats := report.TagCounts(report.Summarize(table))

	out := newTable("Tag", "Products", "Variants", "Avg Min Price")
	for i, ts := range stats {
		if reportLimit > 0 && i >= reportLimit {
			break
		}
		out.Append([]string{
			ts.Tag,
			strconv.Itoa(ts.Products),
			strconv.Itoa(ts.Variants),
			formatPrice(ts.AveragePrice, !ts.AveragePrice.IsZero()),
		})
	}
	out.Render()
	fmt.Println()
	color.Yellow("  %d distinct tags\n\n", len(stats))

	return nil
}

func runReportAudit(cmd *cobra.Command, args []string) error {
	printHeader("CATALOG AUDIT")

	placeholder := reportPlaceholder
	if placeholder == "" {
		if cfg, err := loadConfig(); err == nil {
			placeholder = cfg.Report.PlaceholderImage
		}
	}

	table, err := loadTable(args[0])
	if err != nil {
		return err
	}
	a := report.Audit(table, placeholder)

	checks := newTable("Check", "Products", "Examples")
	addCheck := func(name string, handles []string) {
		checks.Append([]string{name, strconv.Itoa(len(handles)), truncate(strings.Join(handles, ", "), 50)})
	}
	addCheck("No main image", a.MissingImage)
	addCheck("No compare-at price", a.MissingCompareAt)
	addCheck("Partial compare-at prices", a.PartialCompareAt)
	addCheck("Variants without images", a.WithoutVariantImages)
	addCheck("Single variant", a.SingleVariant)
	addCheck("Zero or missing price", a.ZeroPrice)
	checks.Render()
	fmt.Println()

	if placeholder != "" {
		if len(a.BlankImages) == 0 {
			color.Green("  ✓ No placeholder images found\n\n")
		} else {
			blanks := newTable("Handle", "Main", "Variant", "Rows")
			for _, b := range a.BlankImages {
				blanks.Append([]string{b.Handle, strconv.Itoa(b.MainImages), strconv.Itoa(b.VariantImages), strconv.Itoa(b.AffectedRows)})
			}
			blanks.Render()
			fmt.Println()
		}
	}

	if n := a.Issues(); n > 0 {
		color.Yellow("  %d of %d products flagged\n\n", n, a.Products)
	} else {
		color.Green("  ✓ All %d products passed\n\n", a.Products)
	}
	return nil
}

func runReportImages(cmd *cobra.Command, args []string) error {
	printHeader("CHECKING IMAGES")

	table, err := loadTable(args[0])
	if err != nil {
		return err
	}
	targets := images.Targets(table)
	if len(targets) == 0 {
		color.Yellow("  No image URLs found\n\n")
		return nil
	}

	bar := progressbar.NewOptions(len(targets),
		progressbar.OptionSetDescription("  Checking"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
	)
	fetcher := images.NewFetcher(imagesTimeout)
	results, err := fetcher.Check(cmd.Context(), targets, images.CheckOptions{
		Concurrency:  imagesConcurrency,
		Inspect:      imagesInspect,
		MinDimension: imagesMinSize,
	}, func(int, int) {
		bar.Add(1)
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	failed := newTable("URL", "Status", "Problem", "Products")
	bad := 0
	for i := range results {
		r := &results[i]
		if r.OK() {
			continue
		}
		bad++
		failed.Append([]string{
			truncate(r.URL, 50),
			strconv.Itoa(r.StatusCode),
			imageProblem(r),
			truncate(strings.Join(r.Handles, ", "), 30),
		})
	}

	if bad == 0 {
		color.Green("  ✓ All %d images OK\n\n", len(results))
		return nil
	}
	failed.Render()
	fmt.Println()
	color.Yellow("  %d of %d images need attention\n\n", bad, len(results))
	return nil
}

func imageProblem(r *images.Result) string {
	switch {
	case r.Err != nil:
		return truncate(r.Err.Error(), 40)
	case r.Info != nil && r.Info.Uniform:
		return fmt.Sprintf("blank (%dx%d)", r.Info.Width, r.Info.Height)
	case r.Info != nil && r.Info.TooSmall:
		return fmt.Sprintf("too small (%dx%d)", r.Info.Width, r.Info.Height)
	default:
		return "unreachable"
	}
}

func runReportFilter(cmd *cobra.Command, args []string) error {
	success := color.New(color.FgGreen)

	printHeader("FILTERING PRODUCTS")

	opts := report.FilterOptions{
		VariantImages: report.VariantImageFilter(filterVariantImages),
		Price:         report.PriceFilter(filterPrice),
		MinVariants:   filterMinVariants,
		MaxVariants:   filterMaxVariants,
		Tags:          filterTags,
		Limit:         filterLimit,
	}
	var err error
	if opts.MinPrice, err = parseBound("--min-price", filterMinPrice); err != nil {
		return err
	}
	if opts.MaxPrice, err = parseBound("--max-price", filterMaxPrice); err != nil {
		return err
	}

	format := output.Format(filterFormat)
	if format != output.FormatShopify && format != output.FormatMatrixify {
		return fmt.Errorf("invalid --format: %s", filterFormat)
	}

	table, err := loadTable(args[0])
	if err != nil {
		return err
	}

	filtered, err := report.Filter(table, opts)
	if err != nil {
		return err
	}
	if err := file.WriteCSVFile(filterOutput, filtered, format); err != nil {
		return err
	}

	success.Printf("  ✓ Kept %d of %d products (%d rows)\n", len(filtered.Handles()), len(table.Handles()), len(filtered.Rows))
	success.Printf("  ✓ Output: %s\n\n", filterOutput)
	return nil
}

func categoryText(p *report.ProductStats) string {
	if p.SubCategory == "" {
		return p.Category
	}
	return p.Category + " / " + p.SubCategory
}

func parseBound(flag, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, ok := report.ParsePrice(value)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", flag, value)
	}
	return &d, nil
}
