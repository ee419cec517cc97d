package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".wcflat"
	DefaultConfigFile = "config.yaml"
	DefaultStateFile  = "state.json"

	// EnvPrefix prefixes every environment override, e.g. WCFLAT_LOG_LEVEL
	EnvPrefix = "WCFLAT_"
)

// Config represents the application configuration
type Config struct {
	Input      InputConfig      `yaml:"input" envPrefix:"INPUT_"`
	Conversion ConversionConfig `yaml:"conversion" envPrefix:"CONVERSION_"`
	Outputs    OutputsConfig    `yaml:"outputs" envPrefix:"OUTPUTS_"`
	Database   DatabaseConfig   `yaml:"database,omitempty" envPrefix:"DATABASE_"`
	Report     ReportConfig     `yaml:"report,omitempty" envPrefix:"REPORT_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
}

// InputConfig describes how WooCommerce headers are recognised
type InputConfig struct {
	AttributePrefixes []string            `yaml:"attribute_prefixes" env:"ATTRIBUTE_PREFIXES" envSeparator:"," validate:"min=1,dive,required"`
	ColumnAliases     map[string][]string `yaml:"column_aliases,omitempty"` // field -> extra accepted headers
}

// ConversionConfig holds flattening settings
type ConversionConfig struct {
	VariantAttributes      []string `yaml:"variant_attributes" env:"VARIANT_ATTRIBUTES" envSeparator:"," validate:"dive,required"`
	SingleTagMode          bool     `yaml:"single_tag_mode" env:"SINGLE_TAG_MODE"`
	SamplePerTag           bool     `yaml:"sample_per_tag" env:"SAMPLE_PER_TAG"`
	PrimaryMatch           string   `yaml:"primary_match" env:"PRIMARY_MATCH" validate:"oneof=combination positional"`
	MaxCombinations        int      `yaml:"max_combinations" env:"MAX_COMBINATIONS" validate:"min=0"` // 0 = unlimited
	MaxOptions             int      `yaml:"max_options" env:"MAX_OPTIONS" validate:"min=0"`           // 0 = unlimited
	SkipCategoryMetafields bool     `yaml:"skip_category_metafields" env:"SKIP_CATEGORY_METAFIELDS"`
}

// OutputsConfig contains configuration for all output adapters
type OutputsConfig struct {
	Default    string           `yaml:"default" env:"DEFAULT" validate:"oneof=csv json clickhouse"`
	File       FileOutputConfig `yaml:"file" envPrefix:"FILE_"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse" envPrefix:"CLICKHOUSE_"`
}

// FileOutputConfig holds file output settings
type FileOutputConfig struct {
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR" validate:"required"`
	Format    string `yaml:"format" env:"FORMAT" validate:"oneof=shopify matrixify json jsonl"`
	Pretty    bool   `yaml:"pretty" env:"PRETTY"`
}

// ClickHouseConfig holds ClickHouse settings
type ClickHouseConfig struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT" validate:"min=0,max=65535"`
	Database    string `yaml:"database" env:"DATABASE"`
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
	Table       string `yaml:"table" env:"TABLE"`
	Secure      bool   `yaml:"secure" env:"SECURE"`
}

// DatabaseConfig holds run history storage settings
type DatabaseConfig struct {
	Postgres  PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	UseDB     bool           `yaml:"use_db" env:"USE_DB"`          // Enable database backend
	StatePath string         `yaml:"state_path" env:"STATE_PATH"` // JSON history file when use_db is off
}

// PostgresConfig holds PostgreSQL settings
type PostgresConfig struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT" validate:"min=0,max=65535"`
	Database    string `yaml:"database" env:"DATABASE"`
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
	SSLMode     string `yaml:"ssl_mode" env:"SSL_MODE"`
}

// ReportConfig holds report settings
type ReportConfig struct {
	PlaceholderImage string `yaml:"placeholder_image,omitempty" env:"PLACEHOLDER_IMAGE"` // URL treated as a blank image
}

// LogConfig holds diagnostic logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=text json"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			AttributePrefixes: []string{"meta:attribute_pa_", "attribute_pa_"},
		},
		Conversion: ConversionConfig{
			VariantAttributes: []string{"size", "sizes", "color"},
			PrimaryMatch:      "combination",
			MaxCombinations:   2048,
			MaxOptions:        3, // Shopify allows three options per product
		},
		Outputs: OutputsConfig{
			Default: "csv",
			File: FileOutputConfig{
				OutputDir: "./output",
				Format:    "shopify",
				Pretty:    true,
			},
			ClickHouse: ClickHouseConfig{
				Host:        "localhost",
				Port:        9000,
				Database:    "catalog",
				UsernameEnv: "CLICKHOUSE_USERNAME",
				PasswordEnv: "CLICKHOUSE_PASSWORD",
				Table:       "flattened_rows",
			},
		},
		Database: DatabaseConfig{
			UseDB: false, // Disabled by default, use JSON state
			Postgres: PostgresConfig{
				Host:        "localhost",
				Port:        5432,
				Database:    "wcflat",
				UsernameEnv: "POSTGRES_USER",
				PasswordEnv: "POSTGRES_PASSWORD",
				SSLMode:     "prefer",
			},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// GetStatePath returns the JSON history path: the configured one, else
// state.json next to the config file
func (c *Config) GetStatePath() (string, error) {
	if c.Database.StatePath != "" {
		return c.Database.StatePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultStateFile), nil
}

// LoadFrom reads the configuration from a specific path, then applies
// defaults and WCFLAT_* environment overrides and validates the result
func LoadFrom(path string) (*Config, error) {
	config, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&config)

	return &config, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveTo writes the configuration to a specific path
func SaveTo(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// InitAt creates a new config file with defaults at path
func InitAt(path string) error {
	if ExistsAt(path) {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return SaveTo(DefaultConfig(), path)
}

// ExistsAt checks if a config file exists at path
func ExistsAt(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// applyDefaults fills in missing values with defaults
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	// Input
	if len(config.Input.AttributePrefixes) == 0 {
		config.Input.AttributePrefixes = defaults.Input.AttributePrefixes
	}

	// Conversion
	if config.Conversion.VariantAttributes == nil {
		config.Conversion.VariantAttributes = defaults.Conversion.VariantAttributes
	}
	if config.Conversion.PrimaryMatch == "" {
		config.Conversion.PrimaryMatch = defaults.Conversion.PrimaryMatch
	}

	// Outputs
	if config.Outputs.Default == "" {
		config.Outputs.Default = defaults.Outputs.Default
	}
	if config.Outputs.File.OutputDir == "" {
		config.Outputs.File.OutputDir = defaults.Outputs.File.OutputDir
	}
	if config.Outputs.File.Format == "" {
		config.Outputs.File.Format = defaults.Outputs.File.Format
	}
	if config.Outputs.ClickHouse.Port == 0 {
		config.Outputs.ClickHouse.Port = defaults.Outputs.ClickHouse.Port
	}
	if config.Outputs.ClickHouse.Table == "" {
		config.Outputs.ClickHouse.Table = defaults.Outputs.ClickHouse.Table
	}

	// Database
	if config.Database.Postgres.Port == 0 {
		config.Database.Postgres.Port = defaults.Database.Postgres.Port
	}

	// Log
	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}
}

// SetAt updates a specific config value in the file at path
func SetAt(path, key, value string) error {
	config, err := readFile(path)
	if err != nil {
		return err
	}

	if err := config.set(key, value); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	return SaveTo(config, path)
}

func (c *Config) set(key, value string) error {
	switch key {
	case "input.attribute_prefixes":
		c.Input.AttributePrefixes = splitList(value)
	case "conversion.variant_attributes":
		c.Conversion.VariantAttributes = splitList(value)
	case "conversion.single_tag_mode":
		return parseBool(key, value, &c.Conversion.SingleTagMode)
	case "conversion.sample_per_tag":
		return parseBool(key, value, &c.Conversion.SamplePerTag)
	case "conversion.primary_match":
		c.Conversion.PrimaryMatch = value
	case "conversion.max_combinations":
		return parseInt(key, value, &c.Conversion.MaxCombinations)
	case "conversion.max_options":
		return parseInt(key, value, &c.Conversion.MaxOptions)
	case "conversion.skip_category_metafields":
		return parseBool(key, value, &c.Conversion.SkipCategoryMetafields)
	case "outputs.default":
		c.Outputs.Default = value
	case "outputs.file.output_dir":
		c.Outputs.File.OutputDir = value
	case "outputs.file.format":
		c.Outputs.File.Format = value
	case "outputs.file.pretty":
		return parseBool(key, value, &c.Outputs.File.Pretty)
	case "outputs.clickhouse.host":
		c.Outputs.ClickHouse.Host = value
	case "outputs.clickhouse.database":
		c.Outputs.ClickHouse.Database = value
	case "outputs.clickhouse.table":
		c.Outputs.ClickHouse.Table = value
	case "outputs.clickhouse.port":
		return parseInt(key, value, &c.Outputs.ClickHouse.Port)
	case "outputs.clickhouse.secure":
		return parseBool(key, value, &c.Outputs.ClickHouse.Secure)
	case "database.use_db":
		return parseBool(key, value, &c.Database.UseDB)
	case "database.state_path":
		c.Database.StatePath = value
	case "database.postgres.host":
		c.Database.Postgres.Host = value
	case "database.postgres.port":
		return parseInt(key, value, &c.Database.Postgres.Port)
	case "database.postgres.database":
		c.Database.Postgres.Database = value
	case "database.postgres.ssl_mode":
		c.Database.Postgres.SSLMode = value
	case "database.postgres.username_env":
		c.Database.Postgres.UsernameEnv = value
	case "database.postgres.password_env":
		c.Database.Postgres.PasswordEnv = value
	case "report.placeholder_image":
		c.Report.PlaceholderImage = value
	case "log.level":
		c.Log.Level = value
	case "log.format":
		c.Log.Format = value
	default:
		return unknownKey(key)
	}
	return nil
}

// Get returns the value of a dotted config key as a string
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "input.attribute_prefixes":
		return strings.Join(c.Input.AttributePrefixes, ","), nil
	case "conversion.variant_attributes":
		return strings.Join(c.Conversion.VariantAttributes, ","), nil
	case "conversion.single_tag_mode":
		return strconv.FormatBool(c.Conversion.SingleTagMode), nil
	case "conversion.sample_per_tag":
		return strconv.FormatBool(c.Conversion.SamplePerTag), nil
	case "conversion.primary_match":
		return c.Conversion.PrimaryMatch, nil
	case "conversion.max_combinations":
		return strconv.Itoa(c.Conversion.MaxCombinations), nil
	case "conversion.max_options":
		return strconv.Itoa(c.Conversion.MaxOptions), nil
	case "conversion.skip_category_metafields":
		return strconv.FormatBool(c.Conversion.SkipCategoryMetafields), nil
	case "outputs.default":
		return c.Outputs.Default, nil
	case "outputs.file.output_dir":
		return c.Outputs.File.OutputDir, nil
	case "outputs.file.format":
		return c.Outputs.File.Format, nil
	case "outputs.file.pretty":
		return strconv.FormatBool(c.Outputs.File.Pretty), nil
	case "outputs.clickhouse.host":
		return c.Outputs.ClickHouse.Host, nil
	case "outputs.clickhouse.database":
		return c.Outputs.ClickHouse.Database, nil
	case "outputs.clickhouse.table":
		return c.Outputs.ClickHouse.Table, nil
	case "outputs.clickhouse.port":
		return strconv.Itoa(c.Outputs.ClickHouse.Port), nil
	case "outputs.clickhouse.secure":
		return strconv.FormatBool(c.Outputs.ClickHouse.Secure), nil
	case "database.use_db":
		return strconv.FormatBool(c.Database.UseDB), nil
	case "database.state_path":
		return c.Database.StatePath, nil
	case "database.postgres.host":
		return c.Database.Postgres.Host, nil
	case "database.postgres.port":
		return strconv.Itoa(c.Database.Postgres.Port), nil
	case "database.postgres.database":
		return c.Database.Postgres.Database, nil
	case "database.postgres.ssl_mode":
		return c.Database.Postgres.SSLMode, nil
	case "database.postgres.username_env":
		return c.Database.Postgres.UsernameEnv, nil
	case "database.postgres.password_env":
		return c.Database.Postgres.PasswordEnv, nil
	case "report.placeholder_image":
		return c.Report.PlaceholderImage, nil
	case "log.level":
		return c.Log.Level, nil
	case "log.format":
		return c.Log.Format, nil
	default:
		return "", unknownKey(key)
	}
}

// Keys lists every dotted key accepted by SetAt and Get
var Keys = []string{
	"input.attribute_prefixes",
	"conversion.variant_attributes",
	"conversion.single_tag_mode",
	"conversion.sample_per_tag",
	"conversion.primary_match",
	"conversion.max_combinations",
	"conversion.max_options",
	"conversion.skip_category_metafields",
	"outputs.default",
	"outputs.file.output_dir",
	"outputs.file.format",
	"outputs.file.pretty",
	"outputs.clickhouse.host",
	"outputs.clickhouse.port",
	"outputs.clickhouse.database",
	"outputs.clickhouse.table",
	"outputs.clickhouse.secure",
	"database.use_db",
	"database.state_path",
	"database.postgres.host",
	"database.postgres.port",
	"database.postgres.database",
	"database.postgres.username_env",
	"database.postgres.password_env",
	"database.postgres.ssl_mode",
	"report.placeholder_image",
	"log.level",
	"log.format",
}

// ErrUnknownKey is returned by SetAt and Get for keys not in Keys
var ErrUnknownKey = errors.New("unknown config key")

// unknownKey suggests the closest known key when one is near enough
func unknownKey(key string) error {
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range Keys {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best != "" {
		return fmt.Errorf("%w: %s (did you mean %s?)", ErrUnknownKey, key, best)
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

const maxSuggestDistance = 4

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseBool(key, value string, dst *bool) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = b
	return nil
}

func parseInt(key, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = n
	return nil
}
