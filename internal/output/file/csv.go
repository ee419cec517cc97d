package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/pkg/models"
)

const (
	CSVAdapterName = "csv"

	matrixifyCommand = "MERGE"
)

// CSVConfig holds CSV file output configuration
type CSVConfig struct {
	OutputDir string // Directory for output files
}

// CSVAdapter implements the output.Adapter interface for CSV files
type CSVAdapter struct {
	*output.BaseAdapter
	config CSVConfig
}

// NewCSVAdapter creates a new CSV file adapter
func NewCSVAdapter(cfg CSVConfig) *CSVAdapter {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	return &CSVAdapter{
		BaseAdapter: output.NewBaseAdapter(
			CSVAdapterName,
			[]output.Format{output.FormatShopify, output.FormatMatrixify},
		),
		config: cfg,
	}
}

// Connect creates the output directory
func (a *CSVAdapter) Connect(ctx context.Context) error {
	if err := os.MkdirAll(a.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	a.SetConnected(true)
	return nil
}

// Close cleans up resources
func (a *CSVAdapter) Close() error {
	a.SetConnected(false)
	return nil
}

// Test verifies the output directory is writable
func (a *CSVAdapter) Test(ctx context.Context) error {
	return testWritable(a.config.OutputDir)
}

// ExportRows writes the table to a CSV file
func (a *CSVAdapter) ExportRows(ctx context.Context, table *models.Table, opts output.ExportOptions) (*output.ExportResult, error) {
	table = output.FilterHandles(table, opts.Handles)
	result := output.NewResult(table, time.Now())

	if opts.DryRun {
		result.Success = true
		result.Details = fmt.Sprintf("Dry run: would write %d rows for %d products", result.RowsExported, result.ProductsExported)
		result.CompletedAt = time.Now()
		return result, nil
	}

	if !a.IsConnected() {
		if err := a.Connect(ctx); err != nil {
			result.Error = err
			return result, err
		}
	}

	format := opts.Format
	if format == "" {
		format = output.FormatShopify
	}

	// Determine filename
	filename := opts.OutputPath
	if filename == "" {
		timestamp := time.Now().Format("2006-01-02_150405")
		filename = filepath.Join(a.config.OutputDir, fmt.Sprintf("shopify_%s.csv", timestamp))
	}

	if err := WriteCSVFile(filename, table, format); err != nil {
		result.Error = err
		return result, err
	}

	result.Destination = filename
	result.Success = true
	result.Details = fmt.Sprintf("Exported %d products (%d rows) to %s", result.ProductsExported, result.RowsExported, filename)
	result.CompletedAt = time.Now()

	return result, nil
}

// WriteCSVFile writes the table to path, creating parent directories
func WriteCSVFile(path string, table *models.Table, format output.Format) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, table, format); err != nil {
		return err
	}
	return f.Close()
}

// Header returns the CSV header of a table. Option columns are sized to
// the widest row so every product fits.
func Header(table *models.Table, format output.Format) []string {
	header := []string{models.ColHandle}
	if format == output.FormatMatrixify {
		header = append(header, models.ColCommand)
	}
	header = append(header, models.ColTitle, models.ColBody, models.ColPublished, models.ColTags)
	header = append(header, table.Columns...)
	header = append(header,
		models.ColVariantPrice,
		models.ColVariantCompareAtPrice,
		models.ColVariantImage,
		models.ColImageSrc,
		models.ColImageAlt,
		models.ColImagePosition,
	)
	for k := 1; k <= table.MaxOptions(); k++ {
		header = append(header, models.OptionNameColumn(k), models.OptionValueColumn(k))
	}
	return header
}

// WriteCSV writes the table as a Shopify product CSV
func WriteCSV(w io.Writer, table *models.Table, format output.Format) error {
	writer := csv.NewWriter(w)

	header := Header(table, format)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	optionSlots := table.MaxOptions()
	for i := range table.Rows {
		if err := writer.Write(encodeRow(&table.Rows[i], table.Columns, optionSlots, format)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// encodeRow renders a row in header order
func encodeRow(row *models.OutputRow, metaColumns []string, optionSlots int, format output.Format) []string {
	record := []string{row.Handle}
	if format == output.FormatMatrixify {
		record = append(record, matrixifyCommand)
	}

	// Image rows only carry handle, tags, metafields and image fields
	published := ""
	if row.IsVariant() {
		published = strconv.FormatBool(row.Published)
	}
	record = append(record, row.Title, row.Body, published, row.Tags)

	for _, col := range metaColumns {
		record = append(record, row.Metafields[col])
	}

	position := ""
	if row.ImagePosition > 0 {
		position = strconv.Itoa(row.ImagePosition)
	}
	record = append(record,
		row.VariantPrice,
		row.VariantCompareAtPrice,
		row.VariantImage,
		row.ImageSrc,
		row.ImageAlt,
		position,
	)

	for k := 0; k < optionSlots; k++ {
		if k < len(row.Options) {
			record = append(record, row.Options[k].Name, row.Options[k].Value)
		} else {
			record = append(record, "", "")
		}
	}

	return record
}

func testWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	testFile := filepath.Join(dir, ".test")
	f, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	f.Close()
	os.Remove(testFile)
	return nil
}
