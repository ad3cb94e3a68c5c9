// Package bigquery publishes exported ledger records to a BigQuery table so
// runs can be queried alongside each other.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

// LedgerRow is one ledger record as stored in BigQuery.
type LedgerRow struct {
	RecordKey string `bigquery:"record_key"` // REQUIRED, tx hash or daily:<date>
	RunID     string `bigquery:"run_id"`     // REQUIRED
	Address   string `bigquery:"address"`    // REQUIRED

	TxHash bigquery.NullString `bigquery:"tx_hash"` // NULLABLE, empty for daily summaries
	Date   civil.DateTime      `bigquery:"date"`    // REQUIRED, UTC

	SentAmount       *big.Rat            `bigquery:"sent_amount"` // NULLABLE NUMERIC
	SentCurrency     bigquery.NullString `bigquery:"sent_currency"`
	ReceivedAmount   *big.Rat            `bigquery:"received_amount"` // NULLABLE NUMERIC
	ReceivedCurrency bigquery.NullString `bigquery:"received_currency"`
	FeeAmount        *big.Rat            `bigquery:"fee_amount"` // NULLABLE NUMERIC
	FeeCurrency      bigquery.NullString `bigquery:"fee_currency"`

	Labels     []string `bigquery:"labels"`     // REPEATED STRING
	Senders    []string `bigquery:"senders"`    // REPEATED STRING
	Recipients []string `bigquery:"recipients"` // REPEATED STRING

	Description string    `bigquery:"description"`
	InsertedTS  time.Time `bigquery:"inserted_ts"` // REQUIRED
}

// NewLedgerRow maps rec to its table row. Records with an unparseable date
// get the zero DateTime.
func NewLedgerRow(runID, address string, rec *ledger.Record, now time.Time) *LedgerRow {
	row := &LedgerRow{
		RecordKey:   rec.Key(),
		RunID:       runID,
		Address:     address,
		TxHash:      nullString(rec.TxHash),
		Labels:      rec.Labels.Sorted(),
		Senders:     rec.Senders.Sorted(),
		Recipients:  rec.Recipients.Sorted(),
		Description: rec.Description,
		InsertedTS:  now.UTC(),
	}
	if ts, err := time.Parse(ledger.DateLayout, rec.Date); err == nil {
		row.Date = civil.DateTimeOf(ts)
	}
	row.SentAmount, row.SentCurrency = numeric(rec.Sent)
	row.ReceivedAmount, row.ReceivedCurrency = numeric(rec.Received)
	row.FeeAmount, row.FeeCurrency = numeric(rec.Fee)
	return row
}

func numeric(a *ledger.Amount) (*big.Rat, bigquery.NullString) {
	if a == nil {
		return nil, bigquery.NullString{}
	}
	return a.Value.Rat(), nullString(a.Currency)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
