package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/config"
	"github.com/dvloznov/cheqd-ledger/internal/fetch"
	"github.com/dvloznov/cheqd-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/cheqd-ledger/internal/infra/bigquery"
	"github.com/dvloznov/cheqd-ledger/internal/infra/sqlite"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/logger"
	"github.com/dvloznov/cheqd-ledger/internal/metrics"
	"github.com/dvloznov/cheqd-ledger/internal/notionsync"
	"github.com/dvloznov/cheqd-ledger/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		runFetch(log)
	case "convert":
		runConvert(log)
	case "sync-notion":
		runSyncNotion(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("cheqd ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  fetch        Download the transactions of an address from a GraphQL indexer")
	fmt.Println("  convert      Convert downloaded transactions to a Koinly CSV")
	fmt.Println("  sync-notion  Convert and mirror the ledger into a Notion database")
	fmt.Println("  upload       Upload a local export to GCS")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// commonFlags are accepted by every command that reads the configuration.
type commonFlags struct {
	config  *string
	address *string
	debug   *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:  fs.String("config", "", "Path to a YAML config file"),
		address: fs.String("address", "", "Wallet address the ledger is written for"),
		debug:   fs.Bool("debug", false, "Write debug logs to the configured debug file"),
	}
}

// load reads the config file and applies the flags that were set on fs.
// overrides maps flag names to setters for command specific flags.
func (c *commonFlags) load(fs *flag.FlagSet, overrides map[string]func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(*c.config)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "address" {
			cfg.Address = *c.address
		}
		if set, ok := overrides[f.Name]; ok {
			set(cfg)
		}
	})
	return cfg, cfg.Validate()
}

// setupLogger returns the run logger and a cleanup func for the debug file.
func setupLogger(cfg *config.Config, debug bool) (zerolog.Logger, func(), error) {
	if debug {
		log, closer, err := logger.NewWithDebugFile(cfg.Logging.DebugFile)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		return log, func() { closer.Close() }, nil
	}
	log, err := logger.NewWithLevel(cfg.Logging.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	return log, func() {}, nil
}

func writeMetrics(log zerolog.Logger, cfg *config.Config, rec *metrics.Recorder) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics")
	}
}

func runFetch(log zerolog.Logger) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	common := addCommonFlags(fs)
	endpoint := fs.String("endpoint", "", "GraphQL endpoint URL")
	batchSize := fs.Int("batch-size", 100, "Number of transactions per request")
	maxTx := fs.Int("max-transactions", 5000, "Maximum number of transactions to fetch")
	output := fs.String("output", "", "Output JSON path or gs:// URI (default: transactions_YYYYMMDD_HHMMSS.json)")
	progressDB := fs.String("progress-db", "", "SQLite file used to resume interrupted fetches")
	fs.Parse(os.Args[2:])

	cfg, err := common.load(fs, map[string]func(*config.Config){
		"endpoint":         func(c *config.Config) { c.Fetch.Endpoint = *endpoint },
		"batch-size":       func(c *config.Config) { c.Fetch.BatchSize = *batchSize },
		"max-transactions": func(c *config.Config) { c.Fetch.MaxTransactions = *maxTx },
		"output":           func(c *config.Config) { c.Fetch.Output = *output },
		"progress-db":      func(c *config.Config) { c.Fetch.ProgressDB = *progressDB },
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Fetch.Endpoint == "" {
		log.Fatal().Msg("Error: --endpoint is required")
	}

	runLog, cleanup, err := setupLogger(cfg, *common.debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer cleanup()
	log = runLog

	// Interrupting a fetch saves its progress.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var progress fetch.ProgressStore
	if cfg.Fetch.ProgressDB != "" {
		store, err := sqlite.Open(ctx, cfg.Fetch.ProgressDB, cfg.Address)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Fetch.ProgressDB).Msg("Failed to open progress database")
		}
		defer store.Close()
		progress = store
	}

	recorder := metrics.New()
	client := fetch.NewGraphQLClient(cfg.Fetch.Endpoint, cfg.Address, cfg.Fetch.BatchSize, cfg.Fetch.RequestTimeout)
	fetcher := fetch.NewFetcher(client, progress, gcsuploader.NewGCSObjectStore(), fetch.Options{
		BatchSize:       cfg.Fetch.BatchSize,
		MaxTransactions: cfg.Fetch.MaxTransactions,
		MaxRetries:      cfg.Fetch.MaxRetries,
		RetryDelay:      cfg.Fetch.RetryDelay,
		PageDelay:       cfg.Fetch.PageDelay,
		CheckpointEvery: cfg.Fetch.CheckpointEvery,
	}, log)
	fetcher.Observer = recorder

	log.Info().
		Str("endpoint", cfg.Fetch.Endpoint).
		Str("address", cfg.Address).
		Int("max_transactions", cfg.Fetch.MaxTransactions).
		Msg("Starting fetch")

	res, err := fetcher.FetchAll(ctx, cfg.Fetch.Output)
	writeMetrics(log, cfg, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("Fetch failed")
	}

	fmt.Printf("Saved %d transactions to %s\n", res.Transactions, res.Output)
}

// convertFlags are shared by convert and sync-notion.
type convertFlags struct {
	*commonFlags
	input       *string
	output      *string
	aggregation *string
	hash        *string
}

func addConvertFlags(fs *flag.FlagSet) *convertFlags {
	return &convertFlags{
		commonFlags: addCommonFlags(fs),
		input:       fs.String("input", "", "Input JSON path or gs:// URI from fetch"),
		output:      fs.String("output", pipeline.DefaultOutput, "Output CSV path or gs:// URI"),
		aggregation: fs.String("aggregation", config.AggregateCount, "Daily authz summary description: count or hashes"),
		hash:        fs.String("hash", "", "Transaction hash to dump at debug level"),
	}
}

func (c *convertFlags) load(fs *flag.FlagSet, extra map[string]func(*config.Config)) (*config.Config, error) {
	overrides := map[string]func(*config.Config){
		"input":       func(cfg *config.Config) { cfg.Convert.Input = *c.input },
		"output":      func(cfg *config.Config) { cfg.Convert.Output = *c.output },
		"aggregation": func(cfg *config.Config) { cfg.Convert.Aggregation = *c.aggregation },
		"hash":        func(cfg *config.Config) { cfg.Convert.DebugHash = *c.hash },
	}
	for k, v := range extra {
		overrides[k] = v
	}
	cfg, err := c.commonFlags.load(fs, overrides)
	if err != nil {
		return nil, err
	}
	if cfg.Convert.Input == "" {
		return nil, fmt.Errorf("--input is required")
	}
	return cfg, nil
}

func runConvert(log zerolog.Logger) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	flags := addConvertFlags(fs)
	noSummary := fs.Bool("no-summary", false, "Do not print the per-label summary table")
	fs.Parse(os.Args[2:])

	cfg, err := flags.load(fs, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	runLog, cleanup, err := setupLogger(cfg, *flags.debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer cleanup()
	log = runLog

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	recorder := metrics.New()
	deps := pipeline.DefaultDeps(log)
	deps.Metrics = recorder

	if cfg.BigQuery.Enabled() {
		publisher, err := infraBQ.NewLedgerPublisher(ctx, cfg.BigQuery, cfg.Address, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize BigQuery publisher")
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	state, err := pipeline.Convert(ctx, cfg, deps, log)
	writeMetrics(log, cfg, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}

	if !*noSummary {
		ledger.RenderSummary(os.Stdout, state.Records)
	}
	fmt.Printf("Wrote %d records to %s\n", len(state.Records), state.Output)
}

func runSyncNotion(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	flags := addConvertFlags(fs)
	databaseID := fs.String("notion-db-id", "", "Notion database ID")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	prune := fs.Bool("prune", false, "Archive pages whose record is no longer in the ledger")
	fs.Parse(os.Args[2:])

	cfg, err := flags.load(fs, map[string]func(*config.Config){
		"notion-db-id": func(c *config.Config) { c.Notion.DatabaseID = *databaseID },
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Notion.DatabaseID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	runLog, cleanup, err := setupLogger(cfg, *flags.debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer cleanup()
	log = runLog

	client, err := notionsync.NewNotionClientFromEnv(cfg.Notion.TokenEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Notion client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	deps := pipeline.DefaultDeps(log)
	deps.Publisher = &notionsync.Publisher{
		Service:    client,
		DatabaseID: cfg.Notion.DatabaseID,
		Options:    notionsync.Options{DryRun: *dryRun, Prune: *prune},
	}

	state, err := pipeline.Convert(ctx, cfg, deps, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Synced %d of %d records to Notion.\n", state.Published, len(state.Records))
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local CSV or JSON export")
	gcsURI := fs.String("gcs-uri", "", "Destination gs://bucket/object (object defaults to the file name)")
	fs.Parse(os.Args[2:])

	if *filePath == "" || *gcsURI == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH -gcs-uri gs://BUCKET[/OBJECT]")
	}
	dest := *gcsURI
	if _, _, err := gcsuploader.ParseURI(dest); err != nil {
		dest = strings.TrimSuffix(dest, "/") + "/" + filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	log.Info().
		Str("file", *filePath).
		Str("gcs_uri", dest).
		Msg("Uploading file to GCS")

	if err := gcsuploader.UploadBytes(ctx, dest, data, contentType(*filePath)); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, dest)
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return pipeline.CSVContentType
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
