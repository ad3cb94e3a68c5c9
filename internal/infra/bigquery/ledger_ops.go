package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/cheqd-ledger/internal/config"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

// LedgerPublisher appends ledger records of one address to a table, skipping
// transactions a previous run already published. Daily summaries are replaced.
type LedgerPublisher struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	address string
	log     zerolog.Logger
}

// NewLedgerPublisher creates a publisher with its own BigQuery client.
func NewLedgerPublisher(ctx context.Context, cfg config.BigQueryConfig, address string, log zerolog.Logger) (*LedgerPublisher, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerPublisher: creating client: %w", err)
	}
	return &LedgerPublisher{
		client:  client,
		project: cfg.ProjectID,
		dataset: cfg.Dataset,
		table:   cfg.Table,
		address: address,
		log:     log,
	}, nil
}

// Close closes the BigQuery client connection.
func (p *LedgerPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// EnsureTable creates the ledger table from the LedgerRow schema if it does
// not exist yet.
func (p *LedgerPublisher) EnsureTable(ctx context.Context) error {
	table := p.client.DatasetInProject(p.project, p.dataset).Table(p.table)
	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{
		Schema:      schema,
		Description: "cheqd ledger records exported for Koinly",
	}); err != nil {
		return fmt.Errorf("EnsureTable: creating %s.%s: %w", p.dataset, p.table, err)
	}
	p.log.Info().Str("dataset", p.dataset).Str("table", p.table).Msg("Created ledger table")
	return nil
}

// ExistingKeys returns which of keys are already stored for the address.
func (p *LedgerPublisher) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(keys) == 0 {
		return existing, nil
	}

	q := p.client.Query(fmt.Sprintf(`
		SELECT DISTINCT record_key
		FROM `+"`%s.%s.%s`"+`
		WHERE address = @address
		  AND record_key IN UNNEST(@keys)
	`, p.project, p.dataset, p.table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "address", Value: p.address},
		{Name: "keys", Value: keys},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExistingKeys: query read: %w", err)
	}
	for {
		var r struct {
			RecordKey string `bigquery:"record_key"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExistingKeys: iter next: %w", err)
		}
		existing[r.RecordKey] = true
	}
	return existing, nil
}

// PublishLedger inserts the transactions not yet in the table, replaces the
// stored daily summaries of the same days, and returns how many rows were
// inserted.
func (p *LedgerPublisher) PublishLedger(ctx context.Context, runID string, records []*ledger.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := p.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("PublishLedger: %w", err)
	}

	txKeys, summaryKeys := SplitKeys(records)
	existing, err := p.ExistingKeys(ctx, txKeys)
	if err != nil {
		return 0, fmt.Errorf("PublishLedger: %w", err)
	}

	rows := NewRows(runID, p.address, records, existing, time.Now())
	if len(rows) == 0 {
		p.log.Info().Int("skipped", len(records)).Msg("All ledger records already published")
		return 0, nil
	}
	if err := p.DeleteKeys(ctx, summaryKeys); err != nil {
		return 0, fmt.Errorf("PublishLedger: %w", err)
	}

	inserter := p.client.DatasetInProject(p.project, p.dataset).Table(p.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("PublishLedger: inserting rows: %w", err)
	}
	p.log.Info().
		Int("inserted", len(rows)).
		Int("skipped", len(records)-len(rows)).
		Msgf("Published %d ledger records to %s.%s", len(rows), p.dataset, p.table)
	return len(rows), nil
}

// DeleteKeys removes the address's rows stored under keys.
func (p *LedgerPublisher) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	q := p.client.Query(fmt.Sprintf(`
		DELETE FROM `+"`%s.%s.%s`"+`
		WHERE address = @address
		  AND record_key IN UNNEST(@keys)
	`, p.project, p.dataset, p.table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "address", Value: p.address},
		{Name: "keys", Value: keys},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("DeleteKeys: running delete query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("DeleteKeys: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("DeleteKeys: job error: %w", err)
	}
	p.log.Debug().Strs("keys", keys).Msg("Deleted superseded daily summaries")
	return nil
}

// SplitKeys returns the distinct keys of transaction records and of daily
// summaries, in input order.
func SplitKeys(records []*ledger.Record) (txKeys, summaryKeys []string) {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if rec.IsSummary() {
			summaryKeys = append(summaryKeys, key)
		} else {
			txKeys = append(txKeys, key)
		}
	}
	return txKeys, summaryKeys
}

// NewRows maps the records to insert: transactions whose key is not in
// existing, and every daily summary, since a summary's totals may have
// changed since it was last published. A key repeated within records is kept
// once.
func NewRows(runID, address string, records []*ledger.Record, existing map[string]bool, now time.Time) []*LedgerRow {
	seen := make(map[string]bool, len(records))
	var rows []*LedgerRow
	for _, rec := range records {
		key := rec.Key()
		if seen[key] || (existing[key] && !rec.IsSummary()) {
			continue
		}
		seen[key] = true
		rows = append(rows, NewLedgerRow(runID, address, rec, now))
	}
	return rows
}
