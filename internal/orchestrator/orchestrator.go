package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/internal/config"
	"github.com/badno/wcflat/internal/database"
	"github.com/badno/wcflat/internal/database/postgres"
	"github.com/badno/wcflat/internal/flatten"
	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/internal/output/clickhouse"
	"github.com/badno/wcflat/internal/output/file"
	"github.com/badno/wcflat/internal/parser"
	"github.com/badno/wcflat/internal/state"
	"github.com/badno/wcflat/pkg/models"
)

// ErrNothingConverted is returned when no product of the input could be flattened
var ErrNothingConverted = errors.New("no products converted")

// Orchestrator coordinates the parse, flatten, export and history pipeline
type Orchestrator struct {
	config  *config.Config
	log     *slog.Logger
	outputs *output.Registry
	history database.RunRepository
	pg      *postgres.Client
}

// New creates a new orchestrator
func New(cfg *config.Config, log *slog.Logger) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		config:  cfg,
		log:     log,
		outputs: output.NewRegistry(),
	}
}

// Initialize registers the output adapters and opens the run history
func (o *Orchestrator) Initialize(ctx context.Context) error {
	adapters := []output.Adapter{
		file.NewCSVAdapter(file.CSVConfig{
			OutputDir: o.config.Outputs.File.OutputDir,
		}),
		file.NewJSONAdapter(file.JSONConfig{
			OutputDir: o.config.Outputs.File.OutputDir,
			Pretty:    o.config.Outputs.File.Pretty,
		}),
		clickhouse.NewAdapter(clickhouse.Config{
			Host:        o.config.Outputs.ClickHouse.Host,
			Port:        o.config.Outputs.ClickHouse.Port,
			Database:    o.config.Outputs.ClickHouse.Database,
			UsernameEnv: o.config.Outputs.ClickHouse.UsernameEnv,
			PasswordEnv: o.config.Outputs.ClickHouse.PasswordEnv,
			Table:       o.config.Outputs.ClickHouse.Table,
			Secure:      o.config.Outputs.ClickHouse.Secure,
		}),
	}
	for _, a := range adapters {
		if err := o.outputs.Register(a); err != nil {
			return err
		}
	}

	if o.config.Database.UseDB {
		return o.openPostgres(ctx)
	}

	path, err := o.config.GetStatePath()
	if err != nil {
		return err
	}
	store := state.NewStore(path)
	if err := store.Load(); err != nil {
		// A broken history file must not block conversions
		o.log.Warn("failed to load run history", "path", path, "error", err)
	}
	o.history = store
	return nil
}

func (o *Orchestrator) openPostgres(ctx context.Context) error {
	pgCfg := o.config.Database.Postgres
	dbCfg := postgres.ConfigFromEnv(pgCfg.UsernameEnv, pgCfg.PasswordEnv)
	if pgCfg.Host != "" {
		dbCfg.Host = pgCfg.Host
	}
	if pgCfg.Port != 0 {
		dbCfg.Port = pgCfg.Port
	}
	if pgCfg.Database != "" {
		dbCfg.Database = pgCfg.Database
	}
	if pgCfg.SSLMode != "" {
		dbCfg.SSLMode = pgCfg.SSLMode
	}

	client := postgres.NewClient(dbCfg)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := client.RunMigrations(); err != nil {
		client.Close()
		return err
	}

	o.log.Debug("run history in postgres", "address", client.Address())
	o.pg = client
	o.history = postgres.NewRunRepo(client)
	return nil
}

// Close cleans up all resources
func (o *Orchestrator) Close() error {
	err := o.outputs.CloseAll()
	if o.pg != nil {
		o.pg.Close()
	}
	return err
}

// Outputs returns the adapter registry
func (o *Orchestrator) Outputs() *output.Registry {
	return o.outputs
}

// Postgres returns the history database client, nil unless database.use_db is set
func (o *Orchestrator) Postgres() *postgres.Client {
	return o.pg
}

// History returns the run history repository, nil before Initialize
func (o *Orchestrator) History() database.RunRepository {
	return o.history
}

// ParserColumns returns the default WooCommerce columns extended by the configuration
func (o *Orchestrator) ParserColumns() parser.Columns {
	cols := parser.DefaultColumns()
	if len(o.config.Input.AttributePrefixes) > 0 {
		cols.AttributePrefixes = o.config.Input.AttributePrefixes
	}
	for field, aliases := range o.config.Input.ColumnAliases {
		cols.Aliases[field] = append(cols.Aliases[field], aliases...)
	}
	return cols
}

// FlattenConfig returns the conversion settings of the configuration
func (o *Orchestrator) FlattenConfig() flatten.Config {
	c := o.config.Conversion
	return flatten.Config{
		VariantAttributes: c.VariantAttributes,
		Options: flatten.Options{
			SingleTagMode:          c.SingleTagMode,
			SamplePerTag:           c.SamplePerTag,
			PrimaryMatch:           flatten.PrimaryMatch(c.PrimaryMatch),
			MaxCombinations:        c.MaxCombinations,
			MaxOptions:             c.MaxOptions,
			SkipCategoryMetafields: c.SkipCategoryMetafields,
		},
	}
}

// ConvertOptions configures a conversion run
type ConvertOptions struct {
	Input        string
	Destinations []string      // adapter names, empty uses outputs.default
	Format       output.Format // empty uses outputs.file.format where supported
	OutputPath   string        // only valid with a single destination
	Handles      []string      // export only these products
	Conversion   flatten.Config
	DryRun       bool
	Progress     flatten.ProgressFunc
}

// ConvertResult contains the results of a conversion run
type ConvertResult struct {
	RunID       uuid.UUID
	Input       string
	Flatten     *flatten.Result
	Exports     []*output.ExportResult
	Run         *database.ConversionRun
	StartedAt   time.Time
	CompletedAt time.Time
}

// Convert parses a WooCommerce export, flattens it and exports the table to
// every destination. Failed products are logged and reported, not fatal.
func (o *Orchestrator) Convert(ctx context.Context, opts ConvertOptions) (*ConvertResult, error) {
	result := &ConvertResult{
		RunID:     uuid.New(),
		Input:     opts.Input,
		StartedAt: time.Now(),
	}
	log := o.log.With("run_id", result.RunID.String())

	destinations := opts.Destinations
	if len(destinations) == 0 {
		destinations = []string{o.config.Outputs.Default}
	}
	adapters, err := o.outputs.Resolve(destinations)
	if err != nil {
		return nil, err
	}
	if len(adapters) > 1 && opts.OutputPath != "" {
		return nil, fmt.Errorf("an output path needs a single destination, got %d", len(adapters))
	}

	variantAttrs := opts.Conversion.VariantAttributes
	if variantAttrs == nil {
		variantAttrs = catalog.DefaultVariantAttributes
	}
	export, err := parser.ParseWooCommerceCSV(opts.Input, o.ParserColumns(), variantAttrs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	log.Info("parsed input", "path", opts.Input, "records", len(export.Records), "attributes", len(export.Schema.Attributes))

	engine := flatten.New(export.Schema, opts.Conversion.Options)
	result.Flatten = engine.RunWithProgress(export.Records, opts.Progress)
	for _, perr := range result.Flatten.Errors {
		log.Warn("product skipped",
			"product_id", perr.ProductID,
			"line", perr.Line,
			"error", perr.Error(),
		)
	}

	if len(result.Flatten.Table.Rows) == 0 {
		result.CompletedAt = time.Now()
		result.Run = o.record(ctx, log, result, opts, nil)
		return result, ErrNothingConverted
	}

	exports, exportErr := o.exportAll(ctx, adapters, &result.Flatten.Table, opts, result.RunID)
	result.Exports = exports
	result.CompletedAt = time.Now()
	result.Run = o.record(ctx, log, result, opts, exportErr)

	if exportErr != nil {
		return result, exportErr
	}
	return result, nil
}

// exportAll writes the table to every adapter concurrently
func (o *Orchestrator) exportAll(ctx context.Context, adapters []output.Adapter, table *models.Table, opts ConvertOptions, runID uuid.UUID) ([]*output.ExportResult, error) {
	formats := make([]output.Format, len(adapters))
	for i, a := range adapters {
		format, err := o.formatFor(a, opts.Format)
		if err != nil {
			return nil, err
		}
		formats[i] = format
	}

	exports := make([]*output.ExportResult, len(adapters))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			res, err := a.ExportRows(ctx, table, output.ExportOptions{
				Format:     formats[i],
				OutputPath: opts.OutputPath,
				Handles:    opts.Handles,
				RunID:      runID.String(),
				DryRun:     opts.DryRun,
			})
			mu.Lock()
			exports[i] = res
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("export to %s failed: %w", a.Name(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	return exports, err
}

type formatLister interface {
	SupportedFormats() []output.Format
}

// formatFor picks the export format of an adapter. Adapters without file
// formats ignore it.
func (o *Orchestrator) formatFor(a output.Adapter, requested output.Format) (output.Format, error) {
	fl, ok := a.(formatLister)
	if !ok || len(fl.SupportedFormats()) == 0 {
		return "", nil
	}
	if requested != "" {
		if !a.SupportsFormat(requested) {
			return "", fmt.Errorf("destination %s does not support format %s", a.Name(), requested)
		}
		return requested, nil
	}
	if def := output.Format(o.config.Outputs.File.Format); a.SupportsFormat(def) {
		return def, nil
	}
	return fl.SupportedFormats()[0], nil
}

// record stores the run in the history. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, result *ConvertResult, opts ConvertOptions, exportErr error) *database.ConversionRun {
	completed := result.CompletedAt
	run := &database.ConversionRun{
		ID:          result.RunID,
		Input:       result.Input,
		Format:      string(opts.Format),
		Products:    len(result.Flatten.Products),
		Rows:        len(result.Flatten.Table.Rows),
		Errors:      len(result.Flatten.Errors),
		Status:      database.StatusFor(len(result.Flatten.Products), len(result.Flatten.Errors)),
		DryRun:      opts.DryRun,
		StartedAt:   result.StartedAt,
		CompletedAt: &completed,
	}

	var dests, details []string
	for _, e := range result.Exports {
		if e == nil {
			continue
		}
		if e.Destination != "" {
			dests = append(dests, e.Destination)
		}
		if e.Details != "" {
			details = append(details, e.Details)
		}
		run.Images = max(run.Images, e.ImagesExported)
	}
	run.Destination = strings.Join(dests, ", ")
	run.Details = strings.Join(details, "; ")

	if exportErr != nil || len(result.Flatten.Table.Rows) == 0 {
		run.Status = database.RunFailed
		if exportErr != nil {
			run.Details = exportErr.Error()
		}
	}

	if o.history == nil {
		return run
	}
	if err := o.history.Add(ctx, run); err != nil {
		log.Warn("failed to record conversion run", "error", err)
	}
	return run
}

// Recent returns the latest conversion runs
func (o *Orchestrator) Recent(ctx context.Context, limit int) ([]*database.ConversionRun, error) {
	if o.history == nil {
		return nil, fmt.Errorf("run history not initialized")
	}
	return o.history.GetRecent(ctx, limit)
}
