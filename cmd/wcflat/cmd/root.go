package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/badno/wcflat/internal/config"
	"github.com/badno/wcflat/internal/logger"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wcflat",
	Short: "WooCommerce to Shopify catalog flattener",
	Long: color.New(color.FgCyan, color.Bold).Sprint(`
                 __ _       _
 __      _____  / _| | __ _| |_
 \ \ /\ / / __|| |_| |/ _' | __|
  \ V  V / (__ |  _| | (_| | |_
   \_/\_/ \___||_| |_|\__,_|\__|
`) + `
wcflat - WooCommerce to Shopify catalog flattener

Turn a WooCommerce product export (parents plus variation rows) into a
Shopify or Matrixify product CSV: one primary row per product, one row
per extra image and one row per option combination.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.Red("  Error: %v", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.wcflat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// resolveConfigPath returns the --config flag or the default location
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.GetConfigPath()
}

// loadConfig loads the configuration, falling back to defaults when the
// file cannot be read
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		color.Yellow("  Warning: Could not locate config, using defaults")
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger of a command
func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}

func printHeader(title string) {
	header := color.New(color.FgCyan, color.Bold)
	header.Println("\n  " + title)
	fmt.Println("  " + strings.Repeat("─", 50))
	fmt.Println()
}
