package clickhouse

import (
	"context"
	"fmt"
	"time"
)

// RunSummary aggregates the stored rows of one conversion run
type RunSummary struct {
	RunID      string
	Products   uint64
	Rows       uint64
	Variants   uint64
	Images     uint64
	ExportedAt time.Time
}

// GetRunSummaries returns the most recent runs stored in a rows table
func (c *Client) GetRunSummaries(ctx context.Context, table string, limit int) ([]RunSummary, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT
			run_id,
			uniqExact(handle) as products,
			count() as rows,
			countIf(variant_price != '') as variants,
			countIf(image_src != '') as images,
			max(exported_at) as exported_at
		FROM %s
		GROUP BY run_id
		ORDER BY exported_at DESC
		LIMIT ?
	`, table)

	rows, err := c.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Products, &s.Rows, &s.Variants, &s.Images, &s.ExportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
