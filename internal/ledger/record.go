// Package ledger holds the normalized, exportable representation of a
// transaction's financial effect.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the minute-precision timestamp format used in the Date column.
const DateLayout = "2006-01-02 15:04"

// Labels written by the classifier.
const (
	LabelCost     = "cost"
	LabelReward   = "reward"
	LabelTransfer = "transfer"
	LabelAuthz    = "authz"
)

// Amount is a value in display units together with its currency symbol.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// NewAmount returns nil for zero values so that absent and zero amounts are
// treated alike.
func NewAmount(v decimal.Decimal, currency string) *Amount {
	if v.IsZero() {
		return nil
	}
	return &Amount{Value: v, Currency: currency}
}

// Record is one output row: a dated financial event for the tracked address.
type Record struct {
	Date        string
	Sent        *Amount
	Received    *Amount
	Fee         *Amount
	Recipients  StringSet
	Senders     StringSet
	Labels      StringSet
	TxHash      string
	Description string
}

// NewRecord creates an empty record for the transaction hash at time ts.
func NewRecord(ts time.Time, hash string) *Record {
	return &Record{
		Date:       ts.UTC().Format(DateLayout),
		Recipients: StringSet{},
		Senders:    StringSet{},
		Labels:     StringSet{},
		TxHash:     hash,
	}
}

// ClearAmounts drops sent and received amounts; the fee is kept.
func (r *Record) ClearAmounts() {
	r.Sent = nil
	r.Received = nil
}

// HasEffect reports whether the record moves any value, fees included.
func (r *Record) HasEffect() bool {
	return r.Sent != nil || r.Received != nil || r.Fee != nil
}

// Key identifies the record across runs: the transaction hash, or
// "daily:<day>" for a daily summary, which has none.
func (r *Record) Key() string {
	if r.TxHash != "" {
		return r.TxHash
	}
	return "daily:" + r.Day()
}

// IsSummary reports whether r is a daily summary rather than a transaction.
// A summary's totals can change between runs while its key stays the same.
func (r *Record) IsSummary() bool {
	return r.TxHash == ""
}

// Day returns the calendar date part of Date.
func (r *Record) Day() string {
	if i := strings.IndexByte(r.Date, ' '); i >= 0 {
		return r.Date[:i]
	}
	return r.Date
}

// StringSet is an unordered set of strings with a deterministic serialization.
type StringSet map[string]struct{}

func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v; empty strings are ignored.
func (s StringSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Reset replaces the contents of the set with values.
func (s StringSet) Reset(values ...string) {
	for k := range s {
		delete(s, k)
	}
	for _, v := range values {
		s.Add(v)
	}
}

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// String joins the sorted members with commas.
func (s StringSet) String() string {
	return strings.Join(s.Sorted(), ",")
}
