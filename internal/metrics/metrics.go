// Package metrics counts what a fetch or conversion run did and writes the
// result in the Prometheus text format for the node-exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvloznov/cheqd-ledger/internal/loader"
)

const namespace = "cheqd_ledger"

type Recorder struct {
	registry *prometheus.Registry

	envelopes      *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	aggregatedDays prometheus.Counter
	aggregatedTxs  prometheus.Counter
	exported       prometheus.Counter
	fetched        prometheus.Counter
	fetchRetries   prometheus.Counter
	lastRun        prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_total",
			Help:      "Transaction envelopes read from the input, by result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Unique transactions processed, by outcome.",
		}, []string{"outcome"}),
		aggregatedDays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregated_days_total",
			Help:      "Daily authz reward summaries produced.",
		}),
		aggregatedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregated_transactions_total",
			Help:      "Authz reward claims folded into daily summaries.",
		}),
		exported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_records_total",
			Help:      "Ledger records written to the export.",
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_transactions_total",
			Help:      "Transaction envelopes downloaded from the indexer.",
		}),
		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Indexer requests that were retried.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics were last written.",
		}),
	}
	r.registry.MustRegister(
		r.envelopes, r.outcomes,
		r.aggregatedDays, r.aggregatedTxs,
		r.exported, r.fetched, r.fetchRetries, r.lastRun,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveLoad(stats loader.Stats) {
	r.envelopes.WithLabelValues("unique").Add(float64(stats.Unique))
	r.envelopes.WithLabelValues("duplicate").Add(float64(stats.Duplicates))
	r.envelopes.WithLabelValues("dropped").Add(float64(stats.Dropped))
}

func (r *Recorder) ObserveOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveAggregated(days, transactions int) {
	r.aggregatedDays.Add(float64(days))
	r.aggregatedTxs.Add(float64(transactions))
}

func (r *Recorder) ObserveExported(records int) {
	r.exported.Add(float64(records))
}

func (r *Recorder) ObserveFetched(n int) {
	r.fetched.Add(float64(n))
}

func (r *Recorder) ObserveRetry() {
	r.fetchRetries.Inc()
}

// WriteTextfile stamps the run time and writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("WriteTextfile: %w", err)
	}
	return nil
}
