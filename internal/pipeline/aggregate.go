package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

// AggregationPolicy controls what a daily summary remembers about the
// transactions folded into it.
type AggregationPolicy int

const (
	// AggregateCount keeps only the number of transactions.
	AggregateCount AggregationPolicy = iota
	// AggregateHashes also lists the constituent hashes in the description.
	AggregateHashes
)

// ParseAggregationPolicy accepts "count" and "hashes".
func ParseAggregationPolicy(s string) (AggregationPolicy, error) {
	switch s {
	case "", "count":
		return AggregateCount, nil
	case "hashes":
		return AggregateHashes, nil
	default:
		return AggregateCount, fmt.Errorf("unknown aggregation policy %q", s)
	}
}

// QualifiesForAggregation reports whether r is an authz-executed reward claim.
func QualifiesForAggregation(r *ledger.Record) bool {
	return r.Labels.Has(ledger.LabelAuthz) && r.Labels.Has(ledger.LabelReward)
}

// DailyAggregate accumulates the reward claims of one calendar day.
type DailyAggregate struct {
	Day        string
	Received   decimal.Decimal
	Fee        decimal.Decimal
	Senders    ledger.StringSet
	Recipients ledger.StringSet
	Count      int
	Hashes     []string
}

// DailyAggregator folds qualifying records into one accumulator per day.
// Add is safe for concurrent use.
type DailyAggregator struct {
	policy   AggregationPolicy
	currency string

	mu   sync.Mutex
	days map[string]*DailyAggregate
}

func NewDailyAggregator(policy AggregationPolicy, currency string) *DailyAggregator {
	return &DailyAggregator{
		policy:   policy,
		currency: currency,
		days:     make(map[string]*DailyAggregate),
	}
}

// Add folds r into the accumulator of its day.
func (a *DailyAggregator) Add(r *ledger.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	day := r.Day()
	agg, ok := a.days[day]
	if !ok {
		agg = &DailyAggregate{
			Day:        day,
			Senders:    ledger.StringSet{},
			Recipients: ledger.StringSet{},
		}
		a.days[day] = agg
	}

	if r.Received != nil {
		agg.Received = agg.Received.Add(r.Received.Value)
	}
	if r.Fee != nil {
		agg.Fee = agg.Fee.Add(r.Fee.Value)
	}
	for s := range r.Senders {
		agg.Senders.Add(s)
	}
	for s := range r.Recipients {
		agg.Recipients.Add(s)
	}
	agg.Count++
	if a.policy == AggregateHashes {
		agg.Hashes = append(agg.Hashes, r.TxHash)
	}
}

// Len returns the number of days with at least one folded record.
func (a *DailyAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.days)
}

// Records finalizes every accumulator into a summary record, ordered by day.
func (a *DailyAggregator) Records() []*ledger.Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	days := make([]string, 0, len(a.days))
	for d := range a.days {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]*ledger.Record, 0, len(days))
	for _, d := range days {
		out = append(out, a.finalize(a.days[d]))
	}
	return out
}

func (a *DailyAggregator) finalize(agg *DailyAggregate) *ledger.Record {
	desc := fmt.Sprintf("Summarised rewards withdrawn in %d separate Authz Exec transactions", agg.Count)
	if a.policy == AggregateHashes && len(agg.Hashes) > 0 {
		desc += ": " + strings.Join(agg.Hashes, ",")
	}
	return &ledger.Record{
		Date:        agg.Day + " " + AggregateTime,
		Received:    ledger.NewAmount(agg.Received, a.currency),
		Fee:         ledger.NewAmount(agg.Fee, a.currency),
		Labels:      ledger.NewStringSet(ledger.LabelReward),
		Senders:     agg.Senders,
		Recipients:  agg.Recipients,
		Description: desc,
	}
}

// Consolidate moves qualifying records into agg and returns the remaining
// records followed by one summary per day.
func Consolidate(records []*ledger.Record, agg *DailyAggregator) []*ledger.Record {
	out := make([]*ledger.Record, 0, len(records))
	for _, r := range records {
		if QualifiesForAggregation(r) {
			agg.Add(r)
			continue
		}
		out = append(out, r)
	}
	return append(out, agg.Records()...)
}
