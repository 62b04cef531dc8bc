package llm

import (
	"errors"
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, nil, nil)
	}

	snap := stats.Snapshot()
	if snap.Calls != 5 {
		t.Fatalf("expected calls=5, got %d", snap.Calls)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsTracksFailuresAndUsage(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(10*time.Millisecond, &Usage{PromptTokens: 100, CompletionTokens: 20}, nil)
	stats.Record(20*time.Millisecond, &Usage{PromptTokens: 50, CompletionTokens: 5}, nil)
	stats.Record(30*time.Millisecond, nil, errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Calls != 3 || snap.Failures != 1 {
		t.Fatalf("expected calls=3 failures=1, got calls=%d failures=%d", snap.Calls, snap.Failures)
	}
	if snap.PromptTokens != 150 || snap.CompletionTokens != 25 {
		t.Fatalf("expected prompt=150 completion=25, got prompt=%d completion=%d", snap.PromptTokens, snap.CompletionTokens)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100*time.Millisecond, nil, nil)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Calls != 0 {
		t.Fatalf("expected calls=0 after prune, got %d", snap.Calls)
	}

	stats.Record(200*time.Millisecond, nil, nil)
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected a single 200ms sample, got %+v", snap)
	}
}

func TestStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10*time.Millisecond, nil, nil)
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}
