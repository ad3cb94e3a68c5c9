package ledger

import (
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// LabelTotals is the per-label roll-up shown after a conversion run.
type LabelTotals struct {
	Label    string
	Records  int
	Sent     decimal.Decimal
	Received decimal.Decimal
	Fee      decimal.Decimal
}

// Summarize groups records by their serialized label set. Records without
// labels are grouped under "-".
func Summarize(records []*Record) []LabelTotals {
	byLabel := map[string]*LabelTotals{}
	for _, r := range records {
		key := r.Labels.String()
		if key == "" {
			key = "-"
		}
		t, ok := byLabel[key]
		if !ok {
			t = &LabelTotals{Label: key}
			byLabel[key] = t
		}
		t.Records++
		if r.Sent != nil {
			t.Sent = t.Sent.Add(r.Sent.Value)
		}
		if r.Received != nil {
			t.Received = t.Received.Add(r.Received.Value)
		}
		if r.Fee != nil {
			t.Fee = t.Fee.Add(r.Fee.Value)
		}
	}

	out := make([]LabelTotals, 0, len(byLabel))
	for _, t := range byLabel {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// RenderSummary writes the per-label totals as a text table.
func RenderSummary(w io.Writer, records []*Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Label", "Records", "Sent", "Received", "Fee"})

	var total LabelTotals
	for _, t := range Summarize(records) {
		table.Append([]string{
			t.Label,
			strconv.Itoa(t.Records),
			FormatValue(t.Sent),
			FormatValue(t.Received),
			FormatValue(t.Fee),
		})
		total.Records += t.Records
		total.Sent = total.Sent.Add(t.Sent)
		total.Received = total.Received.Add(t.Received)
		total.Fee = total.Fee.Add(t.Fee)
	}
	table.SetFooter([]string{
		"Total",
		strconv.Itoa(total.Records),
		FormatValue(total.Sent),
		FormatValue(total.Received),
		FormatValue(total.Fee),
	})
	table.Render()
}
