package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/loader"
)

// PipelineStep represents a single step in the conversion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID        string
	Input        string
	Output       string
	Transactions []*chain.Transaction
	LoadStats    loader.Stats
	Records      []*ledger.Record
	Outcomes     map[Outcome]int
	Aggregated   int
	Published    int
}

// Step 1: LoadTransactionsStep reads and deduplicates the input document.
type LoadTransactionsStep struct {
	Source  TransactionSource
	Metrics MetricsRecorder
}

func (s *LoadTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, stats, err := s.Source.Load(ctx, state.Input)
	if err != nil {
		return err
	}
	state.Transactions = txs
	state.LoadStats = stats
	s.Metrics.ObserveLoad(stats)
	return nil
}

// Step 2: AssembleRecordsStep turns each transaction into at most one record.
// A transaction that fails is logged with its hash and left out.
type AssembleRecordsStep struct {
	Assembler *Assembler
	Metrics   MetricsRecorder
	Log       zerolog.Logger
}

func (s *AssembleRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	s.Log.Info().Msgf("Processing %d transactions...", len(state.Transactions))

	state.Outcomes = make(map[Outcome]int)
	records := make([]*ledger.Record, 0, len(state.Transactions))
	for _, tx := range state.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, outcome, err := s.Assembler.Assemble(tx)
		state.Outcomes[outcome]++
		s.Metrics.ObserveOutcome(outcome.String())
		if err != nil {
			hash := ""
			if tx != nil {
				hash = tx.Hash
			}
			s.Log.Error().Err(err).Str("tx_hash", hash).Msg("Error processing transaction")
			continue
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	state.Records = records
	return nil
}

// Step 3: ConsolidateAuthzStep folds authz reward claims into daily summaries.
type ConsolidateAuthzStep struct {
	Policy   AggregationPolicy
	Currency string
	Metrics  MetricsRecorder
}

func (s *ConsolidateAuthzStep) Execute(ctx context.Context, state *PipelineState) error {
	agg := NewDailyAggregator(s.Policy, s.Currency)
	before := len(state.Records)
	state.Records = Consolidate(state.Records, agg)

	days := agg.Len()
	state.Aggregated = before - (len(state.Records) - days)
	s.Metrics.ObserveAggregated(days, state.Aggregated)
	return nil
}

// Step 4: SortRecordsStep orders records by date.
type SortRecordsStep struct{}

func (s *SortRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	ledger.SortRecords(state.Records)
	return nil
}

// Step 5: WriteExportStep writes the CSV to its output location.
type WriteExportStep struct {
	Writer  RecordWriter
	Metrics MetricsRecorder
}

func (s *WriteExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Writer.Write(ctx, state.Output, state.Records); err != nil {
		return err
	}
	s.Metrics.ObserveExported(len(state.Records))
	return nil
}

// Step 6: PublishLedgerStep copies the records to the analytics store.
type PublishLedgerStep struct {
	Publisher LedgerPublisher
}

func (s *PublishLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	n, err := s.Publisher.PublishLedger(ctx, state.RunID, state.Records)
	if err != nil {
		return fmt.Errorf("publish ledger: %w", err)
	}
	state.Published = n
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
