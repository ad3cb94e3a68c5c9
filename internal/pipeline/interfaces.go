package pipeline

import (
	"context"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/loader"
)

// TransactionSource loads the unique transactions of an input document.
type TransactionSource interface {
	Load(ctx context.Context, location string) ([]*chain.Transaction, loader.Stats, error)
}

// RecordWriter persists the final export.
type RecordWriter interface {
	Write(ctx context.Context, location string, records []*ledger.Record) error
}

// LedgerPublisher copies exported records to an analytics store.
type LedgerPublisher interface {
	PublishLedger(ctx context.Context, runID string, records []*ledger.Record) (int, error)
}

// MetricsRecorder receives run statistics.
type MetricsRecorder interface {
	ObserveLoad(stats loader.Stats)
	ObserveOutcome(outcome string)
	ObserveAggregated(days, transactions int)
	ObserveExported(records int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveLoad(loader.Stats)   {}
func (nopMetrics) ObserveOutcome(string)      {}
func (nopMetrics) ObserveAggregated(int, int) {}
func (nopMetrics) ObserveExported(int)        {}
