package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dvloznov/cheqd-ledger/internal/loader"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.ObserveLoad(loader.Stats{Total: 10, Unique: 7, Duplicates: 2, Dropped: 1})
	r.ObserveOutcome("recorded")
	r.ObserveOutcome("recorded")
	r.ObserveOutcome("failed")
	r.ObserveAggregated(1, 5)
	r.ObserveExported(3)
	r.ObserveFetched(100)
	r.ObserveRetry()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"unique", testutil.ToFloat64(r.envelopes.WithLabelValues("unique")), 7},
		{"duplicate", testutil.ToFloat64(r.envelopes.WithLabelValues("duplicate")), 2},
		{"dropped", testutil.ToFloat64(r.envelopes.WithLabelValues("dropped")), 1},
		{"recorded", testutil.ToFloat64(r.outcomes.WithLabelValues("recorded")), 2},
		{"failed", testutil.ToFloat64(r.outcomes.WithLabelValues("failed")), 1},
		{"aggregated days", testutil.ToFloat64(r.aggregatedDays), 1},
		{"aggregated txs", testutil.ToFloat64(r.aggregatedTxs), 5},
		{"exported", testutil.ToFloat64(r.exported), 3},
		{"fetched", testutil.ToFloat64(r.fetched), 100},
		{"retries", testutil.ToFloat64(r.fetchRetries), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveExported(4)

	path := filepath.Join(t.TempDir(), "cheqd_ledger.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "cheqd_ledger_exported_records_total 4") {
		t.Errorf("textfile missing exported counter:\n%s", out)
	}
	if !strings.Contains(out, "cheqd_ledger_last_run_timestamp_seconds") {
		t.Errorf("textfile missing last run gauge:\n%s", out)
	}
}
