package compress

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the compression pipeline.
type Metrics struct {
	RunsTotal             *prometheus.CounterVec
	LLMCallsTotal         *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	BufferRecompressTotal *prometheus.CounterVec
	CallDuration          *prometheus.HistogramVec
	TokensSavedTotal      prometheus.Counter
	OverBudgetTotal       prometheus.Counter
}

// NewMetrics returns the process-wide compression metrics, registering them
// on first use.
//
// Metrics:
//   - compress_runs_total{outcome} - MaybeCompress calls ("skipped", "disabled", "compressed")
//   - compress_llm_calls_total{kind} - compression calls issued ("section", "buffer")
//   - compress_fallbacks_total{section} - section compressions that fell back to truncation
//   - compress_buffer_recompress_total{outcome} - buffer re-compressions ("ok", "failed")
//   - compress_call_duration_seconds{kind} - latency of compression calls
//   - compress_tokens_saved_total - input tokens removed by compression
//   - compress_over_budget_total - aggregations that ended above their budget
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "compress_runs_total",
					Help: "Total number of compression decisions by outcome",
				},
				[]string{"outcome"},
			),
			LLMCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "compress_llm_calls_total",
					Help: "Total number of LLM compression calls issued",
				},
				[]string{"kind"},
			),
			FallbacksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "compress_fallbacks_total",
					Help: "Total number of section compressions that fell back to truncation",
				},
				[]string{"section"},
			),
			BufferRecompressTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "compress_buffer_recompress_total",
					Help: "Total number of rolling buffer re-compressions",
				},
				[]string{"outcome"},
			),
			CallDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "compress_call_duration_seconds",
					Help:    "Duration of LLM compression calls in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
				},
				[]string{"kind"},
			),
			TokensSavedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "compress_tokens_saved_total",
					Help: "Total input tokens removed by compression",
				},
			),
			OverBudgetTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "compress_over_budget_total",
					Help: "Total number of aggregations whose output exceeded the budget",
				},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) recordRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordCall(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(kind).Inc()
	m.CallDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) recordFallback(section string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(section).Inc()
}

func (m *Metrics) recordBufferRecompress(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.BufferRecompressTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordSaved(before, after int) {
	if m == nil || after >= before {
		return
	}
	m.TokensSavedTotal.Add(float64(before - after))
}

func (m *Metrics) recordOverBudget() {
	if m == nil {
		return
	}
	m.OverBudgetTotal.Inc()
}
