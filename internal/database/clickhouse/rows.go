package clickhouse

import (
	"context"
	"fmt"
	"regexp"

	"github.com/badno/wcflat/pkg/models"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FlatRow is one flattened output row as stored in ClickHouse
type FlatRow struct {
	RunID         string
	Handle        string
	RowIndex      uint32
	Kind          string
	Title         string
	Body          string
	Published     bool
	Tags          string
	Metafields    map[string]string
	VariantPrice  string
	CompareAt     string
	VariantImage  string
	ImageSrc      string
	ImageAlt      string
	ImagePosition uint16
	OptionNames   []string
	OptionValues  []string
}

// NewFlatRow converts an output row; index is the row's position in the run
func NewFlatRow(runID string, index int, row *models.OutputRow) FlatRow {
	fr := FlatRow{
		RunID:         runID,
		Handle:        row.Handle,
		RowIndex:      uint32(index),
		Kind:          string(row.Kind),
		Title:         row.Title,
		Body:          row.Body,
		Published:     row.Published,
		Tags:          row.Tags,
		Metafields:    row.Metafields,
		VariantPrice:  row.VariantPrice,
		CompareAt:     row.VariantCompareAtPrice,
		VariantImage:  row.VariantImage,
		ImageSrc:      row.ImageSrc,
		ImageAlt:      row.ImageAlt,
		ImagePosition: uint16(row.ImagePosition),
		OptionNames:   make([]string, 0, len(row.Options)),
		OptionValues:  make([]string, 0, len(row.Options)),
	}
	if fr.Metafields == nil {
		fr.Metafields = map[string]string{}
	}
	for _, o := range row.Options {
		fr.OptionNames = append(fr.OptionNames, o.Name)
		fr.OptionValues = append(fr.OptionValues, o.Value)
	}
	return fr
}

// CreateRowsTableSQL returns the DDL of the flattened rows table
func CreateRowsTableSQL(table string) (string, error) {
	if !identifierPattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id String,
			handle String,
			row_index UInt32,
			kind LowCardinality(String),
			title String,
			body String,
			published Bool,
			tags String,
			metafields Map(String, String),
			variant_price String,
			variant_compare_at_price String,
			variant_image String,
			image_src String,
			image_alt String,
			image_position UInt16,
			option_names Array(String),
			option_values Array(String),
			exported_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (handle, run_id, row_index)
	`, table), nil
}

// InitSchema creates the flattened rows table
func (c *Client) InitSchema(ctx context.Context, table string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	query, err := CreateRowsTableSQL(table)
	if err != nil {
		return err
	}
	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to execute schema query: %w", err)
	}
	return nil
}

// InsertRows inserts rows into the flattened rows table in one batch
func (c *Client) InsertRows(ctx context.Context, table string, rows []FlatRow) error {
	if len(rows) == 0 {
		return nil
	}
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("invalid table name: %q", table)
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			run_id, handle, row_index, kind, title, body, published, tags,
			metafields, variant_price, variant_compare_at_price, variant_image,
			image_src, image_alt, image_position, option_names, option_values
		)
	`, table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(
			r.RunID,
			r.Handle,
			r.RowIndex,
			r.Kind,
			r.Title,
			r.Body,
			r.Published,
			r.Tags,
			r.Metafields,
			r.VariantPrice,
			r.CompareAt,
			r.VariantImage,
			r.ImageSrc,
			r.ImageAlt,
			r.ImagePosition,
			r.OptionNames,
			r.OptionValues,
		)
		if err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// CountRunRows returns the number of stored rows of a run
func (c *Client) CountRunRows(ctx context.Context, table, runID string) (uint64, error) {
	if c.conn == nil {
		return 0, fmt.Errorf("not connected")
	}
	if !identifierPattern.MatchString(table) {
		return 0, fmt.Errorf("invalid table name: %q", table)
	}

	var count uint64
	query := fmt.Sprintf(`SELECT count() FROM %s WHERE run_id = ?`, table)
	if err := c.conn.QueryRow(ctx, query, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}
