package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/badno/wcflat/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, input, destination, format, products, rows, images, errors, status, details, dry_run, started_at, completed_at`

// RunRepo implements the RunRepository interface for PostgreSQL
type RunRepo struct {
	client *Client
}

var _ database.RunRepository = (*RunRepo)(nil)

// NewRunRepo creates a new PostgreSQL run repository
func NewRunRepo(client *Client) *RunRepo {
	return &RunRepo{client: client}
}

// Add inserts a new conversion run
func (r *RunRepo) Add(ctx context.Context, run *database.ConversionRun) error {
	if r.client.pool == nil {
		return fmt.Errorf("database not connected")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO conversion_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.client.pool.Exec(ctx, query,
		run.ID.String(),
		run.Input,
		run.Destination,
		run.Format,
		run.Products,
		run.Rows,
		run.Images,
		run.Errors,
		string(run.Status),
		run.Details,
		run.DryRun,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add conversion run: %w", err)
	}

	return nil
}

// GetRecent retrieves the most recent runs
func (r *RunRepo) GetRecent(ctx context.Context, limit int) ([]*database.ConversionRun, error) {
	if r.client.pool == nil {
		return nil, fmt.Errorf("database not connected")
	}
	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT ` + runColumns + `
		FROM conversion_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.client.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion runs: %w", err)
	}
	defer rows.Close()

	var runs []*database.ConversionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetByID retrieves a single run
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*database.ConversionRun, error) {
	if r.client.pool == nil {
		return nil, fmt.Errorf("database not connected")
	}

	query := `SELECT ` + runColumns + ` FROM conversion_runs WHERE id = $1`

	run, err := scanRun(r.client.pool.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversion run not found: %s", id)
	}
	return run, err
}

func scanRun(row pgx.Row) (*database.ConversionRun, error) {
	var run database.ConversionRun
	var idStr, status string

	err := row.Scan(
		&idStr, &run.Input, &run.Destination, &run.Format,
		&run.Products, &run.Rows, &run.Images, &run.Errors,
		&status, &run.Details, &run.DryRun, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan conversion run: %w", err)
	}

	run.ID, _ = uuid.Parse(idStr)
	run.Status = database.RunStatus(status)
	return &run, nil
}
