package output

import (
	"context"
	"time"

	"github.com/badno/wcflat/pkg/models"
)

// Format specifies the output format
type Format string

const (
	FormatMatrixify Format = "matrixify" // Shopify CSV with a Matrixify Command column
	FormatShopify   Format = "shopify"   // Standard Shopify product CSV
	FormatJSON      Format = "json"      // JSON envelope
	FormatJSONL     Format = "jsonl"     // JSON Lines, one row per line
)

// ExportOptions configures export behavior
type ExportOptions struct {
	Format     Format   // Output format
	OutputPath string   // File path or destination
	Handles    []string // Only export these products
	RunID      string   // Conversion run the rows belong to
	DryRun     bool     // Preview without actually exporting
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Destination      string // Where data was exported
	ProductsExported int    // Number of distinct handles exported
	RowsExported     int    // Number of rows exported
	ImagesExported   int    // Number of rows carrying an image
	Success          bool
	Error            error
	StartedAt        time.Time
	CompletedAt      time.Time
	Details          string // Human-readable details
}

// Adapter defines the interface for output adapters
type Adapter interface {
	// Name returns the adapter's unique identifier
	Name() string

	// Connect establishes connection to the output destination
	Connect(ctx context.Context) error

	// Close cleans up any resources
	Close() error

	// ExportRows exports a flattened table to the destination
	ExportRows(ctx context.Context, table *models.Table, opts ExportOptions) (*ExportResult, error)

	// Test verifies connectivity to the destination
	Test(ctx context.Context) error

	// SupportsFormat checks if the adapter supports a specific format
	SupportsFormat(format Format) bool
}

// BaseAdapter provides common functionality for adapters
type BaseAdapter struct {
	name      string
	connected bool
	formats   []Format
}

// NewBaseAdapter creates a new base adapter
func NewBaseAdapter(name string, formats []Format) *BaseAdapter {
	return &BaseAdapter{
		name:    name,
		formats: formats,
	}
}

func (b *BaseAdapter) Name() string {
	return b.name
}

func (b *BaseAdapter) IsConnected() bool {
	return b.connected
}

func (b *BaseAdapter) SetConnected(connected bool) {
	b.connected = connected
}

func (b *BaseAdapter) SupportsFormat(format Format) bool {
	for _, f := range b.formats {
		if f == format {
			return true
		}
	}
	return false
}

func (b *BaseAdapter) SupportedFormats() []Format {
	return b.formats
}

// FilterHandles returns a table holding only the rows of the given handles.
// An empty handle list returns the table unchanged.
func FilterHandles(table *models.Table, handles []string) *models.Table {
	if len(handles) == 0 {
		return table
	}

	keep := make(map[string]bool, len(handles))
	for _, h := range handles {
		keep[h] = true
	}

	filtered := &models.Table{Columns: table.Columns}
	for _, row := range table.Rows {
		if keep[row.Handle] {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}

// CountImages returns the number of rows that carry an image
func CountImages(table *models.Table) int {
	n := 0
	for i := range table.Rows {
		if table.Rows[i].ImageSrc != "" {
			n++
		}
	}
	return n
}

// NewResult fills the counters of an export result for a table
func NewResult(table *models.Table, started time.Time) *ExportResult {
	return &ExportResult{
		ProductsExported: len(table.Handles()),
		RowsExported:     len(table.Rows),
		ImagesExported:   CountImages(table),
		StartedAt:        started,
	}
}
