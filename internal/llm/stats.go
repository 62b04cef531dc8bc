package llm

import (
	"sort"
	"sync"
	"time"
)

type callSample struct {
	at         time.Time
	durationMs int64
	failed     bool
	usage      Usage
}

// StatsSnapshot aggregates the calls inside the stats window.
type StatsSnapshot struct {
	Calls            int     `json:"calls"`
	Failures         int     `json:"failures"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	MinMs            int64   `json:"min_ms"`
	MaxMs            int64   `json:"max_ms"`
	AvgMs            float64 `json:"avg_ms"`
	P50Ms            float64 `json:"p50_ms"`
	P95Ms            float64 `json:"p95_ms"`
	P99Ms            float64 `json:"p99_ms"`
}

// Stats keeps recent call latencies, failures and token usage within a
// rolling window. Safe for concurrent use.
type Stats struct {
	mu      sync.Mutex
	samples []callSample
	window  time.Duration
	now     func() time.Time
}

// NewStats returns Stats with the given window (one hour when ≤ 0).
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]callSample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one call. usage may be nil.
func (s *Stats) Record(d time.Duration, usage *Usage, err error) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	sm := callSample{durationMs: ms, failed: err != nil}
	if usage != nil {
		sm.usage = *usage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sm.at = s.now()
	s.pruneLocked(sm.at)
	s.samples = append(s.samples, sm)
}

// Snapshot aggregates the samples still inside the window.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			snap.Failures++
		}
		snap.PromptTokens += sm.usage.PromptTokens
		snap.CompletionTokens += sm.usage.CompletionTokens
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Calls = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	keep := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	s.samples = keep
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
