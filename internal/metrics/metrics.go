// Package metrics defines the Prometheus collectors for mining runs and
// exports them in the text exposition format.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

// Metrics holds the collectors on a private registry, so several runs in one
// process (tests, watch loops) never collide on the global registry.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	Transactions     prometheus.Gauge
	DistinctItems    prometheus.Gauge
	FrequentItemsets *prometheus.GaugeVec
	Rules            prometheus.Gauge
	CandidatesTotal  *prometheus.CounterVec
	PrunedTotal      *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basketloom_runs_total",
				Help: "Mining runs by outcome (ok, error).",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "basketloom_run_duration_seconds",
				Help:    "Wall time of a complete mining run.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
		Transactions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketloom_transactions",
				Help: "Transactions in the last mined matrix.",
			},
		),
		DistinctItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketloom_distinct_items",
				Help: "Distinct items in the last mined matrix.",
			},
		),
		FrequentItemsets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "basketloom_frequent_itemsets",
				Help: "Frequent itemsets of the last run by itemset length.",
			},
			[]string{"length"},
		),
		Rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketloom_rules",
				Help: "Association rules retained by the last run.",
			},
		),
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basketloom_candidates_total",
				Help: "Candidate itemsets generated by the join step, by level.",
			},
			[]string{"level"},
		),
		PrunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basketloom_candidates_pruned_total",
				Help: "Candidates dropped for having an infrequent subset, by level.",
			},
			[]string{"level"},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketloom_last_run_timestamp_seconds",
				Help: "Unix time at which the last successful run started.",
			},
		),
	}
	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.Transactions,
		m.DistinctItems,
		m.FrequentItemsets,
		m.Rules,
		m.CandidatesTotal,
		m.PrunedTotal,
		m.LastRunTimestamp,
	)
	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveLevel implements mining.Observer.
func (m *Metrics) ObserveLevel(st mining.LevelStats) {
	lvl := strconv.Itoa(st.Level)
	m.CandidatesTotal.WithLabelValues(lvl).Add(float64(st.Candidates))
	m.PrunedTotal.WithLabelValues(lvl).Add(float64(st.Pruned))
}

// ObserveRun records a successful run.
func (m *Metrics) ObserveRun(res *mining.Result) {
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.RunDuration.Observe(res.Duration.Seconds())
	m.Transactions.Set(float64(res.Transactions))
	m.DistinctItems.Set(float64(res.Items))
	m.Rules.Set(float64(len(res.Rules)))
	m.LastRunTimestamp.Set(float64(res.StartedAt.Unix()))
	m.FrequentItemsets.Reset()
	for _, b := range res.LengthHistogram {
		m.FrequentItemsets.WithLabelValues(strconv.Itoa(b.Length)).Set(float64(b.Count))
	}
}

// ObserveFailure records a failed run.
func (m *Metrics) ObserveFailure() {
	m.RunsTotal.WithLabelValues("error").Inc()
}

// WriteTextfile writes all metrics to path in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
