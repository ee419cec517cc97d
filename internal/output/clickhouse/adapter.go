package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	chdb "github.com/badno/wcflat/internal/database/clickhouse"
	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/pkg/models"
)

const AdapterName = "clickhouse"

// Config holds ClickHouse connection configuration
type Config struct {
	Host        string // ClickHouse host
	Port        int    // ClickHouse port (default: 9000)
	Database    string // Database name
	UsernameEnv string // Environment variable for username
	PasswordEnv string // Environment variable for password
	Table       string // Target table name
	Secure      bool   // Use TLS
}

// Adapter implements the output.Adapter interface for ClickHouse
type Adapter struct {
	*output.BaseAdapter
	config Config
	client *chdb.Client
}

// NewAdapter creates a new ClickHouse output adapter
func NewAdapter(cfg Config) *Adapter {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "flattened_rows"
	}

	dbCfg := chdb.ConfigFromEnv(cfg.UsernameEnv, cfg.PasswordEnv)
	dbCfg.Host = cfg.Host
	dbCfg.Port = cfg.Port
	dbCfg.Database = cfg.Database
	dbCfg.Secure = cfg.Secure

	return &Adapter{
		BaseAdapter: output.NewBaseAdapter(
			AdapterName,
			[]output.Format{}, // ClickHouse uses its own format
		),
		config: cfg,
		client: chdb.NewClient(dbCfg),
	}
}

// SupportsFormat - ClickHouse adapter doesn't use file formats
func (a *Adapter) SupportsFormat(format output.Format) bool {
	return false
}

// Connect establishes connection to ClickHouse
func (a *Adapter) Connect(ctx context.Context) error {
	if err := a.client.Connect(ctx); err != nil {
		return err
	}
	a.SetConnected(true)
	return nil
}

// Close cleans up resources
func (a *Adapter) Close() error {
	a.SetConnected(false)
	return a.client.Close()
}

// Test verifies connectivity to ClickHouse
func (a *Adapter) Test(ctx context.Context) error {
	if !a.IsConnected() {
		if err := a.Connect(ctx); err != nil {
			return err
		}
	}
	if err := a.client.Ping(ctx); err != nil {
		return fmt.Errorf("ClickHouse ping failed: %w", err)
	}
	return nil
}

// ExportRows inserts the table into ClickHouse, tagged with the run id
func (a *Adapter) ExportRows(ctx context.Context, table *models.Table, opts output.ExportOptions) (*output.ExportResult, error) {
	table = output.FilterHandles(table, opts.Handles)
	result := output.NewResult(table, time.Now())
	result.Destination = fmt.Sprintf("%s.%s", a.client.Address(), a.config.Table)

	if opts.DryRun {
		result.Success = true
		result.Details = fmt.Sprintf("Dry run: would insert %d rows into ClickHouse", result.RowsExported)
		result.CompletedAt = time.Now()
		return result, nil
	}

	if !a.IsConnected() {
		if err := a.Connect(ctx); err != nil {
			result.Error = err
			return result, err
		}
	}

	// Ensure table exists
	if err := a.client.InitSchema(ctx, a.config.Table); err != nil {
		result.Error = err
		return result, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if err := a.client.InsertRows(ctx, a.config.Table, FlatRows(runID, table)); err != nil {
		result.Error = err
		return result, err
	}

	result.Success = true
	result.Details = fmt.Sprintf("Inserted %d rows for %d products into ClickHouse (run %s)", result.RowsExported, result.ProductsExported, runID)
	result.CompletedAt = time.Now()

	return result, nil
}

// FlatRows converts every table row for storage
func FlatRows(runID string, table *models.Table) []chdb.FlatRow {
	rows := make([]chdb.FlatRow, 0, len(table.Rows))
	for i := range table.Rows {
		rows = append(rows, chdb.NewFlatRow(runID, i, &table.Rows[i]))
	}
	return rows
}

// RunSummaries connects if needed and lists the runs stored in the target table
func (a *Adapter) RunSummaries(ctx context.Context, limit int) ([]chdb.RunSummary, error) {
	if !a.IsConnected() {
		if err := a.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return a.client.GetRunSummaries(ctx, a.config.Table, limit)
}
