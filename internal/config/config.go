// Package config loads the YAML run configuration shared by the CLI commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Aggregation policies for authz reward claims.
const (
	AggregateCount  = "count"
	AggregateHashes = "hashes"
)

type Config struct {
	// Address is the tracked account whose perspective the ledger is written from.
	Address string `yaml:"address"`

	Currency CurrencyConfig `yaml:"currency"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Convert  ConvertConfig  `yaml:"convert"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Notion   NotionConfig   `yaml:"notion"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CurrencyConfig struct {
	Denom    string `yaml:"denom"`    // base denomination, ncheq
	Symbol   string `yaml:"symbol"`   // display currency, CHEQ
	Exponent int32  `yaml:"exponent"` // 9 for ncheq -> CHEQ
}

type FetchConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	BatchSize       int           `yaml:"batch_size"`
	MaxTransactions int           `yaml:"max_transactions"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	PageDelay       time.Duration `yaml:"page_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	CheckpointEvery int           `yaml:"checkpoint_every"` // transactions between progress saves
	ProgressDB      string        `yaml:"progress_db"`
	Output          string        `yaml:"output"` // empty: transactions_<timestamp>.json
}

type ConvertConfig struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Aggregation string `yaml:"aggregation"` // count | hashes
	DebugHash   string `yaml:"debug_hash"`
}

type BigQueryConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
}

// Enabled reports whether ledger rows should be published to BigQuery.
func (c BigQueryConfig) Enabled() bool {
	return c.ProjectID != "" && c.Dataset != ""
}

type NotionConfig struct {
	DatabaseID string `yaml:"database_id"`
	TokenEnv   string `yaml:"token_env"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node-exporter textfile collector path
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	DebugFile string `yaml:"debug_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Currency: CurrencyConfig{
			Denom:    "ncheq",
			Symbol:   "CHEQ",
			Exponent: 9,
		},
		Fetch: FetchConfig{
			BatchSize:       100,
			MaxTransactions: 5000,
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
			PageDelay:       500 * time.Millisecond,
			RequestTimeout:  30 * time.Second,
			CheckpointEvery: 1000,
			ProgressDB:      "fetch_progress.db",
		},
		Convert: ConvertConfig{
			Output:      "koinly_export.csv",
			Aggregation: AggregateCount,
		},
		BigQuery: BigQueryConfig{
			Table: "ledger_records",
		},
		Notion: NotionConfig{
			TokenEnv: "NOTION_TOKEN",
		},
		Logging: LoggingConfig{
			Level:     "info",
			DebugFile: "koinly_debug.log",
		},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command relies on. Command specific
// requirements (input path, endpoint, ...) are checked by the command.
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.Currency.Denom == "" || c.Currency.Symbol == "" {
		errs = append(errs, errors.New("currency denom and symbol are required"))
	}
	if c.Currency.Exponent < 0 {
		errs = append(errs, fmt.Errorf("currency exponent must be >= 0, got %d", c.Currency.Exponent))
	}
	if c.Fetch.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("fetch.batch_size must be positive, got %d", c.Fetch.BatchSize))
	}
	if c.Fetch.MaxTransactions < 0 {
		errs = append(errs, fmt.Errorf("fetch.max_transactions must be >= 0, got %d", c.Fetch.MaxTransactions))
	}
	if c.Fetch.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("fetch.max_retries must be at least 1, got %d", c.Fetch.MaxRetries))
	}
	switch c.Convert.Aggregation {
	case AggregateCount, AggregateHashes:
	default:
		errs = append(errs, fmt.Errorf("convert.aggregation must be %q or %q, got %q", AggregateCount, AggregateHashes, c.Convert.Aggregation))
	}
	return errors.Join(errs...)
}
