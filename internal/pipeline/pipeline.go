package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/config"
	"github.com/dvloznov/cheqd-ledger/internal/gcsuploader"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/loader"
)

// CSVWriter writes the export to a local file or a gs:// object.
type CSVWriter struct {
	Store gcsuploader.ObjectStore
}

func (w *CSVWriter) Write(ctx context.Context, location string, records []*ledger.Record) error {
	if !gcsuploader.IsGCSURI(location) {
		return ledger.WriteFile(location, records)
	}
	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, records); err != nil {
		return err
	}
	return gcsuploader.WriteLocation(ctx, w.Store, location, buf.Bytes(), CSVContentType)
}

// Deps are the collaborators of a conversion run. Publisher and Metrics are
// optional.
type Deps struct {
	Source    TransactionSource
	Writer    RecordWriter
	Publisher LedgerPublisher
	Metrics   MetricsRecorder
}

// DefaultDeps wires the loader and CSV writer to Cloud Storage.
func DefaultDeps(log zerolog.Logger) Deps {
	store := gcsuploader.NewGCSObjectStore()
	return Deps{
		Source: loader.New(store, log),
		Writer: &CSVWriter{Store: store},
	}
}

// UnitFromConfig returns the currency unit described by cfg.
func UnitFromConfig(cfg config.CurrencyConfig) chain.Unit {
	return chain.Unit{Denom: cfg.Denom, Symbol: cfg.Symbol, Exponent: cfg.Exponent}
}

// NewConversionPipeline builds the standard conversion:
// load, assemble, consolidate, sort, write and, when configured, publish.
func NewConversionPipeline(cfg *config.Config, deps Deps, log zerolog.Logger) (*Pipeline, error) {
	policy, err := ParseAggregationPolicy(cfg.Convert.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("NewConversionPipeline: %w", err)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	unit := UnitFromConfig(cfg.Currency)
	assembler := NewAssembler(cfg.Address, unit, log)
	assembler.DebugHash = cfg.Convert.DebugHash

	steps := []PipelineStep{
		&LoadTransactionsStep{Source: deps.Source, Metrics: metrics},
		&AssembleRecordsStep{Assembler: assembler, Metrics: metrics, Log: log},
		&ConsolidateAuthzStep{Policy: policy, Currency: unit.Symbol, Metrics: metrics},
		&SortRecordsStep{},
		&WriteExportStep{Writer: deps.Writer, Metrics: metrics},
	}
	if deps.Publisher != nil {
		steps = append(steps, &PublishLedgerStep{Publisher: deps.Publisher})
	}
	return NewPipeline(steps...), nil
}

// Convert runs one conversion of cfg.Convert.Input into cfg.Convert.Output.
func Convert(ctx context.Context, cfg *config.Config, deps Deps, log zerolog.Logger) (*PipelineState, error) {
	state := &PipelineState{
		RunID:  uuid.New().String(),
		Input:  cfg.Convert.Input,
		Output: cfg.Convert.Output,
	}
	if state.Output == "" {
		state.Output = DefaultOutput
	}
	log = log.With().Str("run_id", state.RunID).Logger()

	p, err := NewConversionPipeline(cfg, deps, log)
	if err != nil {
		return nil, err
	}

	// 1. Load, 2. classify, 3. consolidate, 4. sort, 5. write, 6. publish
	if err := p.Execute(ctx, state); err != nil {
		return state, err
	}

	log.Info().
		Int("records", len(state.Records)).
		Int("aggregated", state.Aggregated).
		Int("failed", state.Outcomes[OutcomeFailed]).
		Str("output", state.Output).
		Msgf("Processed %d records", len(state.Records))
	return state, nil
}
