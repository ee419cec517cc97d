package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/badno/wcflat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Initialize, view, and modify configuration settings.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default settings.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.Keys {
			fmt.Println("  " + k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	success := color.New(color.FgGreen)

	printHeader("INITIALIZING CONFIGURATION")

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if config.ExistsAt(path) {
		color.Yellow("  Configuration file already exists: %s\n\n", path)
		return nil
	}
	if err := config.InitAt(path); err != nil {
		return err
	}
	success.Printf("  ✓ Created configuration file: %s\n\n", path)

	color.Yellow("  Next steps:")
	fmt.Println("    1. Set which WooCommerce attributes become Shopify options:")
	fmt.Println("       wcflat config set conversion.variant_attributes size,color")
	fmt.Println()
	fmt.Println("    2. Convert an export:")
	fmt.Println("       wcflat convert products.csv")
	fmt.Println()
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	printHeader("CURRENT CONFIGURATION")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, _ := resolveConfigPath()
	if path != "" && config.ExistsAt(path) {
		color.Yellow("  Config file: %s\n\n", path)
	} else {
		color.Yellow("  Using default configuration (no config file)\n\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println("  " + strings.ReplaceAll(string(data), "\n", "\n  "))

	printHeader("ENVIRONMENT VARIABLES")

	table := newTable("Variable", "Name", "Status")
	envVars := []struct {
		name    string
		envName string
	}{
		{"ClickHouse Username", cfg.Outputs.ClickHouse.UsernameEnv},
		{"ClickHouse Password", cfg.Outputs.ClickHouse.PasswordEnv},
		{"Postgres Username", cfg.Database.Postgres.UsernameEnv},
		{"Postgres Password", cfg.Database.Postgres.PasswordEnv},
	}
	for _, ev := range envVars {
		status := color.RedString("not set")
		if ev.envName != "" && os.Getenv(ev.envName) != "" {
			status = color.GreenString("set")
		}
		table.Append([]string{ev.name, ev.envName, status})
	}
	table.Render()
	fmt.Println()
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := config.SetAt(path, args[0], args[1]); err != nil {
		return err
	}
	color.Green("  ✓ Set %s = %s\n", args[0], args[1])
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	value, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}
