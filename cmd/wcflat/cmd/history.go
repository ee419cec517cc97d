package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/database"
	"github.com/badno/wcflat/internal/orchestrator"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversion runs",
	Long:  `List recorded conversion runs, newest first, from the JSON state file or PostgreSQL.`,
	RunE:  runHistory,
}

var historyDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Show the PostgreSQL history database status",
	RunE:  runHistoryDB,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Runs to show (0 = all)")
	historyCmd.AddCommand(historyDBCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	printHeader("CONVERSION HISTORY")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Close()

	runs, err := orch.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		color.Yellow("  No conversion runs recorded yet\n\n")
		return nil
	}

	table := newTable("ID", "Started", "Input", "Status", "Products", "Rows", "Errors", "Destination")
	for _, r := range runs {
		table.Append([]string{
			r.ID.String()[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Input, 30),
			statusText(r),
			strconv.Itoa(r.Products),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Errors),
			truncate(r.Destination, 30),
		})
	}
	table.Render()
	color.Yellow("\n  %d runs shown\n\n", len(runs))
	return nil
}

func statusText(r *database.ConversionRun) string {
	status := string(r.Status)
	if r.DryRun {
		status += " (dry)"
	}
	switch r.Status {
	case database.RunSucceeded:
		return color.GreenString(status)
	case database.RunPartial:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

func runHistoryDB(cmd *cobra.Command, args []string) error {
	printHeader("HISTORY DATABASE")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.UseDB {
		path, _ := cfg.GetStatePath()
		color.Yellow("  Database disabled, run history is kept in %s\n", path)
		color.Yellow("  Enable with: wcflat config set database.use_db true\n\n")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch := orchestrator.New(cfg, newLogger(cfg))
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer orch.Close()

	pg := orch.Postgres()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	version, dirty, err := pg.MigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	table := newTable("Setting", "Value")
	table.Append([]string{"Address", pg.Address()})
	table.Append([]string{"Migration", fmt.Sprintf("%d", version)})
	table.Append([]string{"Dirty", strconv.FormatBool(dirty)})
	if stats := pg.Stats(); stats != nil {
		table.Append([]string{"Connections", fmt.Sprintf("%d total, %d idle", stats.TotalConns(), stats.IdleConns())})
	}
	table.Render()
	fmt.Println()
	return nil
}
