package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/cheqd-ledger/internal/config"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/logger"
	"github.com/dvloznov/cheqd-ledger/internal/pipeline"
)

func main() {
	log := logger.New()

	input := flag.String("input", "", "Input JSON file from fetch (required)")
	output := flag.String("output", pipeline.DefaultOutput, "Output CSV file name")
	address := flag.String("address", "", "Your wallet address (required)")
	debug := flag.Bool("debug", false, "Enable debug logging to file")
	hash := flag.String("hash", "", "Transaction hash to debug")
	flag.Parse()

	if *input == "" || *address == "" {
		log.Fatal().Msg("Usage: convert -input FILE -address ADDRESS [-output FILE] [-debug] [-hash HASH]")
	}

	cfg := config.Default()
	cfg.Address = *address
	cfg.Convert.Input = *input
	cfg.Convert.Output = *output
	cfg.Convert.DebugHash = *hash
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if *debug {
		debugLog, closer, err := logger.NewWithDebugFile(cfg.Logging.DebugFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open debug log")
		}
		defer closer.Close()
		log = debugLog
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	state, err := pipeline.Convert(ctx, cfg, pipeline.DefaultDeps(log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}

	ledger.RenderSummary(os.Stdout, state.Records)
	fmt.Printf("Wrote %d records to %s\n", len(state.Records), state.Output)
}
