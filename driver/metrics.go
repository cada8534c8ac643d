package driver

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the importer's prometheus instrumentation. A nil *Metrics
// is valid and every method becomes a no-op, so components can be
// constructed without a registry in tests.
type Metrics struct {
	blocksImported   prometheus.Counter
	reorgsDetected   prometheus.Counter
	fillerBlocks     prometheus.Histogram
	stepDuration     prometheus.Histogram
	depositTxsPerBlk prometheus.Histogram
}

// NewMetrics registers the importer's counters and histograms on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocksImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "derivation",
			Name:      "l1_blocks_imported_total",
			Help:      "Number of L1 blocks successfully processed by the importer loop.",
		}),
		reorgsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "derivation",
			Name:      "reorgs_detected_total",
			Help:      "Number of parent-hash mismatches that triggered a re-anchor.",
		}),
		fillerBlocks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "derivation",
			Name:      "filler_blocks_per_step",
			Help:      "Number of filler L2 blocks inserted per importer step.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "derivation",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of one importer loop step.",
			Buckets:   prometheus.DefBuckets,
		}),
		depositTxsPerBlk: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "derivation",
			Name:      "deposit_txs_per_l2_block",
			Help:      "Number of ethscription deposit transactions in a real (non-filler) L2 block.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(m.blocksImported, m.reorgsDetected, m.fillerBlocks, m.stepDuration, m.depositTxsPerBlk)
	return m
}

func (m *Metrics) RecordBlockImported()        { m.orNop(func() { m.blocksImported.Inc() }) }
func (m *Metrics) RecordReorg()                { m.orNop(func() { m.reorgsDetected.Inc() }) }
func (m *Metrics) RecordFillerBlocks(n int)    { m.orNop(func() { m.fillerBlocks.Observe(float64(n)) }) }
func (m *Metrics) RecordStepDuration(s float64) { m.orNop(func() { m.stepDuration.Observe(s) }) }
func (m *Metrics) RecordDepositTxs(n int)      { m.orNop(func() { m.depositTxsPerBlk.Observe(float64(n)) }) }

func (m *Metrics) orNop(f func()) {
	if m == nil {
		return
	}
	f()
}
