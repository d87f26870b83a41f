package services

import (
	"log/slog"
	"testing"

	"bcs-dashboard/internal/config"
	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/timeline"
)

func testConfig() *config.Config {
	return &config.Config{
		Generator: config.GeneratorConfig{
			DefaultTenant: "alpha-health",
			DefaultRange:  "14d",
			DefaultSeed:   1,
			CacheSize:     8,
		},
	}
}

func createTestAnalytics(t *testing.T) *Analytics {
	t.Helper()
	a, err := NewAnalytics(testConfig(), slog.Default())
	if err != nil {
		t.Fatalf("NewAnalytics() error: %v", err)
	}
	return a
}

func TestNewAnalytics(t *testing.T) {
	a := createTestAnalytics(t)

	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}

	if len(a.Tenants()) != 3 {
		t.Errorf("expected 3 registered tenants, got %d", len(a.Tenants()))
	}

	defaults := a.Defaults()
	if defaults.DefaultTenant != "alpha-health" {
		t.Errorf("expected default tenant alpha-health, got %q", defaults.DefaultTenant)
	}
}

func TestNewAnalytics_BadCacheSize(t *testing.T) {
	cfg := testConfig()
	cfg.Generator.CacheSize = 0

	if _, err := NewAnalytics(cfg, slog.Default()); err == nil {
		t.Error("expected error for non-positive cache size")
	}
}

func TestAnalytics_SnapshotDeterministic(t *testing.T) {
	a := createTestAnalytics(t)
	b := createTestAnalytics(t)

	first := a.Snapshot("alpha-health", dates.Range14d, 1)
	second := b.Snapshot("alpha-health", dates.Range14d, 1)

	// Two independent instances must derive identical views
	if first.Categories != second.Categories {
		t.Error("category KPIs differ across independent builds")
	}
	if first.Status != second.Status {
		t.Error("system status differs across independent builds")
	}
	if first.KPIAverages != second.KPIAverages {
		t.Error("reconciled averages differ across independent builds")
	}
	if len(first.Rows) != len(second.Rows) {
		t.Errorf("event counts differ: %d vs %d", len(first.Rows), len(second.Rows))
	}
}

func TestAnalytics_SnapshotCaching(t *testing.T) {
	a := createTestAnalytics(t)

	first := a.Snapshot("alpha-health", dates.Range14d, 1)
	second := a.Snapshot("alpha-health", dates.Range14d, 1)

	if first != second {
		t.Error("repeated snapshot request should return the cached instance")
	}

	// Different seed is a different cache entry
	third := a.Snapshot("alpha-health", dates.Range14d, 2)
	if first == third {
		t.Error("different seed must not share a cache entry")
	}

	stats := a.Stats()
	if hits, ok := stats["cache_hits"].(int64); !ok || hits != 1 {
		t.Errorf("expected 1 cache hit, got %v", stats["cache_hits"])
	}
	if misses, ok := stats["cache_misses"].(int64); !ok || misses != 2 {
		t.Errorf("expected 2 cache misses, got %v", stats["cache_misses"])
	}
	if entries, ok := stats["cache_entries"].(int); !ok || entries != 2 {
		t.Errorf("expected 2 cache entries, got %v", stats["cache_entries"])
	}
}

func TestAnalytics_SnapshotViewShapes(t *testing.T) {
	a := createTestAnalytics(t)
	snap := a.Snapshot("beta-care", dates.Range7d, 1)

	if len(snap.Rows) == 0 {
		t.Error("snapshot should carry the generated event set")
	}
	if len(snap.Daily) != 7 {
		t.Errorf("expected 7 daily volume entries, got %d", len(snap.Daily))
	}
	if len(snap.Latency) != 7 {
		t.Errorf("expected 7 daily latency entries, got %d", len(snap.Latency))
	}
	if len(snap.ErrorTrend) != 7 {
		t.Errorf("expected 7 error trend entries, got %d", len(snap.ErrorTrend))
	}
	if len(snap.Funnel) != 4 {
		t.Errorf("expected 4 funnel stages, got %d", len(snap.Funnel))
	}
	if len(snap.Channels) == 0 {
		t.Error("expected channel mix entries")
	}
	if snap.Status.Status == "" {
		t.Error("expected a derived system status")
	}
	if snap.GeneratedAt.IsZero() {
		t.Error("expected a generation timestamp")
	}
}

func TestAnalytics_Timeline(t *testing.T) {
	a := createTestAnalytics(t)

	series, err := a.Timeline(timeline.MetricCSAT, "alpha-health", dates.Range14d, 1)
	if err != nil {
		t.Fatalf("Timeline() error: %v", err)
	}

	if len(series.Points) != 14 {
		t.Errorf("expected 14 points, got %d", len(series.Points))
	}

	if got := timeline.ReconcileAverage(series.Points); got != series.Average {
		t.Errorf("displayed average %v must equal the plotted mean %v", series.Average, got)
	}

	snap := a.Snapshot("alpha-health", dates.Range14d, 1)
	if series.Target != float64(snap.Categories.User.CSAT) {
		t.Errorf("series target %v should come from the category KPI %d", series.Target, snap.Categories.User.CSAT)
	}
}

func TestAnalytics_TimelineUnknownMetric(t *testing.T) {
	a := createTestAnalytics(t)

	if _, err := a.Timeline(timeline.Metric("made_up"), "alpha-health", dates.Range14d, 1); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestAnalytics_ReconciledAveragesMatchSeries(t *testing.T) {
	a := createTestAnalytics(t)
	snap := a.Snapshot("gamma-health", dates.Range30d, 5)

	tests := []struct {
		metric timeline.Metric
		got    float64
	}{
		{timeline.MetricCSAT, snap.KPIAverages.CSAT},
		{timeline.MetricErrorRate, snap.KPIAverages.ErrorRate},
		{timeline.MetricLatencyP95, snap.KPIAverages.LatencyP95Ms},
		{timeline.MetricQueueDepth, snap.KPIAverages.QueueDepth},
	}

	for _, tt := range tests {
		target, ok := TargetFor(snap.Categories, tt.metric)
		if !ok {
			t.Fatalf("TargetFor(%s) unexpectedly unknown", tt.metric)
		}
		want := timeline.ReconcileAverage(timeline.Generate(tt.metric, target, dates.Range30d))
		if tt.got != want {
			t.Errorf("%s: snapshot average %v, regenerated series average %v", tt.metric, tt.got, want)
		}
	}
}

func TestTargetForCoversAllMetrics(t *testing.T) {
	a := createTestAnalytics(t)
	snap := a.Snapshot("alpha-health", dates.Range7d, 1)

	for _, m := range timeline.Metrics {
		if _, ok := TargetFor(snap.Categories, m); !ok {
			t.Errorf("no category KPI target mapped for metric %s", m)
		}
	}

	if _, ok := TargetFor(snap.Categories, timeline.Metric("made_up")); ok {
		t.Error("unknown metric should not map to a target")
	}
}

func TestAnalytics_HourlyErrors(t *testing.T) {
	a := createTestAnalytics(t)

	hourly, incidents := a.HourlyErrors("alpha-health", dates.Range14d, 1)

	if len(hourly) != 24 {
		t.Errorf("expected 24 hourly slots, got %d", len(hourly))
	}
	if len(incidents) > 5 {
		t.Errorf("incident log is capped at 5, got %d", len(incidents))
	}

	snap := a.Snapshot("alpha-health", dates.Range14d, 1)
	budget := errorBudgetFor(snap.Status)
	total := 0
	for _, h := range hourly {
		total += h.FailedRequests
	}
	if total > budget {
		t.Errorf("hourly errors %d exceed the tier budget %d", total, budget)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := createTestAnalytics(t)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(seed uint32) {
			defer func() { done <- true }()

			_ = a.Snapshot("alpha-health", dates.Range14d, seed%3)
			_, _ = a.Timeline(timeline.MetricCSAT, "alpha-health", dates.Range14d, seed%3)
		}(uint32(i))
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
