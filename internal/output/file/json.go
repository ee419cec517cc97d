package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/pkg/models"
)

const (
	JSONAdapterName = "json"

	envelopeVersion = "1.0"
)

// JSONConfig holds JSON file output configuration
type JSONConfig struct {
	OutputDir string // Directory for output files
	Pretty    bool   // Pretty-print JSON
}

// JSONAdapter implements the output.Adapter interface for JSON files
type JSONAdapter struct {
	*output.BaseAdapter
	config JSONConfig
}

// Envelope wraps exported rows in a JSON document
type Envelope struct {
	Version    string             `json:"version"`
	RunID      string             `json:"run_id"`
	ExportedAt time.Time          `json:"exported_at"`
	Products   int                `json:"products"`
	Columns    []string           `json:"columns"`
	Rows       []models.OutputRow `json:"rows"`
}

// NewJSONAdapter creates a new JSON file adapter
func NewJSONAdapter(cfg JSONConfig) *JSONAdapter {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	return &JSONAdapter{
		BaseAdapter: output.NewBaseAdapter(
			JSONAdapterName,
			[]output.Format{output.FormatJSON, output.FormatJSONL},
		),
		config: cfg,
	}
}

// Connect creates the output directory
func (a *JSONAdapter) Connect(ctx context.Context) error {
	if err := os.MkdirAll(a.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	a.SetConnected(true)
	return nil
}

// Close cleans up resources
func (a *JSONAdapter) Close() error {
	a.SetConnected(false)
	return nil
}

// Test verifies the output directory is writable
func (a *JSONAdapter) Test(ctx context.Context) error {
	return testWritable(a.config.OutputDir)
}

// ExportRows writes the table as a JSON envelope or JSON Lines
func (a *JSONAdapter) ExportRows(ctx context.Context, table *models.Table, opts output.ExportOptions) (*output.ExportResult, error) {
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

	// Determine filename and format
	filename := opts.OutputPath
	format := opts.Format
	if format == "" {
		format = output.FormatJSON
	}

	if filename == "" {
		timestamp := time.Now().Format("2006-01-02_150405")
		ext := ".json"
		if format == output.FormatJSONL {
			ext = ".jsonl"
		}
		filename = filepath.Join(a.config.OutputDir, fmt.Sprintf("shopify_%s%s", timestamp, ext))
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	var err error
	switch format {
	case output.FormatJSONL:
		err = a.writeJSONL(filename, table)
	default:
		err = a.writeJSON(filename, table, runID)
	}

	if err != nil {
		result.Error = err
		return result, err
	}

	result.Destination = filename
	result.Success = true
	result.Details = fmt.Sprintf("Exported %d products (%d rows) to %s", result.ProductsExported, result.RowsExported, filename)
	result.CompletedAt = time.Now()

	return result, nil
}

// writeJSON writes the table wrapped in an export envelope
func (a *JSONAdapter) writeJSON(filename string, table *models.Table, runID string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if a.config.Pretty {
		encoder.SetIndent("", "  ")
	}

	export := Envelope{
		Version:    envelopeVersion,
		RunID:      runID,
		ExportedAt: time.Now().UTC(),
		Products:   len(table.Handles()),
		Columns:    table.Columns,
		Rows:       table.Rows,
	}

	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return f.Close()
}

// writeJSONL writes rows as JSON Lines (one object per line)
func (a *JSONAdapter) writeJSONL(filename string, table *models.Table) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for i := range table.Rows {
		data, err := json.Marshal(&table.Rows[i])
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i+1, err)
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
		if _, err := writer.WriteString("\n"); err != nil {
			return err
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	return f.Close()
}
