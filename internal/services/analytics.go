package services

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"bcs-dashboard/internal/aggregations"
	"bcs-dashboard/internal/config"
	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/models"
	"bcs-dashboard/internal/synth"
	"bcs-dashboard/internal/timeline"
)

const maxAverageWorkers = 6

// KPIAverages carries the reconciled (plotted-data) average for every KPI
// timeline. These are the literal means of the generated series, not the
// category-KPI targets that seeded them.
type KPIAverages struct {
	CSAT                     float64 `json:"csat"`
	NPS                      float64 `json:"nps"`
	FirstContactResolution   float64 `json:"firstContactResolution"`
	AbandonRate              float64 `json:"abandonRate"`
	ApprovalRate             float64 `json:"approvalRate"`
	CoverageConfirmationRate float64 `json:"coverageConfirmationRate"`
	AuthorizationConversion  float64 `json:"authorizationConversion"`
	CostToServe              float64 `json:"costToServe"`
	QueueDepth               float64 `json:"queueDepth"`
	AverageHandlingTimeMs    float64 `json:"averageHandlingTimeMs"`
	AgentUtilization         float64 `json:"agentUtilization"`
	SelfServeDeflection      float64 `json:"selfServeDeflection"`
	LatencyP50Ms             float64 `json:"latencyP50Ms"`
	LatencyP95Ms             float64 `json:"latencyP95Ms"`
	ErrorRate                float64 `json:"errorRate"`
	SuccessRate              float64 `json:"successRate"`
	RetryRate                float64 `json:"retryRate"`
	TimeoutRate              float64 `json:"timeoutRate"`
}

type VolumeAverages struct {
	AvgRequests     int `json:"avgRequests"`
	AvgApprovals    int `json:"avgApprovals"`
	AvgApprovalRate int `json:"avgApprovalRate"`
}

type LatencyAverages struct {
	AvgP50 int `json:"avgP50"`
	AvgP95 int `json:"avgP95"`
}

type FunnelAverages struct {
	AvgIntent        int `json:"avgIntent"`
	AvgCoverage      int `json:"avgCoverage"`
	AvgAuthorization int `json:"avgAuthorization"`
}

type ChannelAverages struct {
	AvgShare map[string]int `json:"avgShare"`
	AvgCSAT  map[string]int `json:"avgCSAT"`
}

type ChartAverages struct {
	RequestsVsApprovals VolumeAverages  `json:"requestsVsApprovals"`
	LatencyCombined     LatencyAverages `json:"latencyCombined"`
	Funnel              FunnelAverages  `json:"funnel"`
	ChannelMix          ChannelAverages `json:"channelMix"`
}

// Snapshot is every derived view for one (tenant, range, seed): the event set
// plus all aggregates the dashboard consumes. Snapshots are immutable once
// built; a new combination builds a new one.
type Snapshot struct {
	Tenant      string                    `json:"tenant"`
	Range       dates.RangeID             `json:"range"`
	Seed        uint32                    `json:"seed"`
	Rows        []models.EventRow         `json:"-"`
	Categories  models.CategoryKPIs       `json:"categories"`
	Funnel      []models.FunnelStageCount `json:"funnel"`
	Channels    []models.ChannelShare     `json:"channels"`
	TopErrors   []models.ErrorGroup       `json:"topErrors"`
	Daily       []models.DailyVolume      `json:"daily"`
	Latency     []models.DailyLatency     `json:"latency"`
	ErrorTrend  []models.DailyErrors      `json:"errorTrend"`
	Status      models.SystemStatus       `json:"status"`
	Trends      map[string]models.Trend   `json:"trends"`
	KPIAverages KPIAverages               `json:"kpiAverages"`
	Charts      ChartAverages             `json:"chartAverages"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

// Analytics is the facade the handlers consume. Everything underneath is
// deterministic and cheap, so the LRU cache is an optimization only: a miss
// rebuilds an identical snapshot.
type Analytics struct {
	cache    *lru.Cache[string, *Snapshot]
	tenants  []models.Tenant
	defaults config.GeneratorConfig
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

func NewAnalytics(cfg *config.Config, logger *slog.Logger) (*Analytics, error) {
	cache, err := lru.New[string, *Snapshot](cfg.Generator.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	return &Analytics{
		cache:    cache,
		tenants:  cfg.Tenants(),
		defaults: cfg.Generator,
		logger:   logger,
	}, nil
}

func (a *Analytics) Tenants() []models.Tenant {
	return a.tenants
}

// Defaults exposes the generator defaults applied when a request omits
// tenant, range, or seed.
func (a *Analytics) Defaults() config.GeneratorConfig {
	return a.defaults
}

// Snapshot returns the derived views for (tenant, range, seed), building and
// caching them on first use.
func (a *Analytics) Snapshot(tenant string, r dates.RangeID, seed uint32) *Snapshot {
	key := fmt.Sprintf("%s|%s|%d", tenant, r, seed)
	if snap, ok := a.cache.Get(key); ok {
		a.hits.Add(1)
		return snap
	}
	a.misses.Add(1)

	start := time.Now()
	snap := a.build(tenant, r, seed)
	a.cache.Add(key, snap)
	a.logger.Debug("snapshot built",
		"tenant", tenant,
		"range", r,
		"seed", seed,
		"events", len(snap.Rows),
		"duration", time.Since(start))
	return snap
}

func (a *Analytics) build(tenant string, r dates.RangeID, seed uint32) *Snapshot {
	rows := synth.Generate(tenant, r, seed)
	filtered := aggregations.FilterByTenantAndRange(rows, tenant, r)
	categories := aggregations.ComputeCategoryKpis(filtered)

	snap := &Snapshot{
		Tenant:      tenant,
		Range:       r,
		Seed:        seed,
		Rows:        filtered,
		Categories:  categories,
		Funnel:      aggregations.FunnelCounts(filtered),
		Channels:    aggregations.ChannelMix(filtered),
		TopErrors:   aggregations.TopErrors(filtered),
		Daily:       aggregations.DailyRequestsApprovals(filtered, r),
		Latency:     aggregations.DailyLatency(filtered, r),
		ErrorTrend:  aggregations.ErrorTrend(filtered, r),
		Status:      aggregations.CalculateSystemStatus(filtered),
		Trends:      headlineTrends(categories, r),
		KPIAverages: a.reconcileAverages(categories, r),
		GeneratedAt: time.Now().UTC(),
	}
	snap.Charts = chartAverages(snap, categories, r)
	return snap
}

// reconcileAverages regenerates each KPI timeline and takes the exact mean of
// what would be plotted, fanned out across a bounded worker group. The series
// generators are pure functions, so concurrent regeneration is safe and
// order-independent.
func (a *Analytics) reconcileAverages(cat models.CategoryKPIs, r dates.RangeID) KPIAverages {
	values := make([]float64, len(timeline.Metrics))

	var g errgroup.Group
	g.SetLimit(maxAverageWorkers)
	for idx, metric := range timeline.Metrics {
		target, _ := TargetFor(cat, metric)
		g.Go(func() error {
			series := timeline.Generate(metric, target, r)
			values[idx] = timeline.ReconcileAverage(series)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return KPIAverages{
		CSAT:                     values[0],
		NPS:                      values[1],
		FirstContactResolution:   values[2],
		AbandonRate:              values[3],
		ApprovalRate:             values[4],
		CoverageConfirmationRate: values[5],
		AuthorizationConversion:  values[6],
		CostToServe:              values[7],
		QueueDepth:               values[8],
		AverageHandlingTimeMs:    values[9],
		AgentUtilization:         values[10],
		SelfServeDeflection:      values[11],
		LatencyP50Ms:             values[12],
		LatencyP95Ms:             values[13],
		ErrorRate:                values[14],
		SuccessRate:              values[15],
		RetryRate:                values[16],
		TimeoutRate:              values[17],
	}
}

func chartAverages(snap *Snapshot, cat models.CategoryKPIs, r dates.RangeID) ChartAverages {
	var reqSum, appSum int
	for _, day := range snap.Daily {
		reqSum += day.Requests
		appSum += day.Approvals
	}
	volume := VolumeAverages{}
	if n := len(snap.Daily); n > 0 {
		volume.AvgRequests = int(math.Round(float64(reqSum) / float64(n)))
		volume.AvgApprovals = int(math.Round(float64(appSum) / float64(n)))
	}
	if volume.AvgRequests > 0 {
		volume.AvgApprovalRate = int(math.Round(float64(volume.AvgApprovals) / float64(volume.AvgRequests) * 100))
	}

	p50Series := timeline.Generate(timeline.MetricLatencyP50, float64(cat.Performance.LatencyP50Ms), r)
	p95Series := timeline.Generate(timeline.MetricLatencyP95, float64(cat.Performance.LatencyP95Ms), r)
	latency := LatencyAverages{
		AvgP50: int(math.Round(seriesMean(p50Series))),
		AvgP95: int(math.Round(seriesMean(p95Series))),
	}

	funnel := FunnelAverages{}
	for _, stage := range snap.Funnel {
		switch stage.Stage {
		case models.StageIntent:
			funnel.AvgIntent = stage.Count
		case models.StageCoverage:
			funnel.AvgCoverage = stage.Count
		case models.StageAuthorization:
			funnel.AvgAuthorization = stage.Count
		}
	}

	channels := ChannelAverages{AvgShare: make(map[string]int), AvgCSAT: make(map[string]int)}
	for _, ch := range snap.Channels {
		channels.AvgShare[string(ch.Channel)] = ch.Share
		channels.AvgCSAT[string(ch.Channel)] = ch.CSAT
	}

	return ChartAverages{
		RequestsVsApprovals: volume,
		LatencyCombined:     latency,
		Funnel:              funnel,
		ChannelMix:          channels,
	}
}

// headlineTrends derives the previous-period comparison for each KPI tile
// that shows a trend arrow.
func headlineTrends(cat models.CategoryKPIs, r dates.RangeID) map[string]models.Trend {
	return map[string]models.Trend{
		"csat":         aggregations.CalculateTrendData(float64(cat.User.CSAT), r),
		"approvalRate": aggregations.CalculateTrendData(float64(cat.Business.ApprovalRate), r),
		"errorRate":    aggregations.CalculateTrendData(float64(cat.Performance.ErrorRate), r),
		"successRate":  aggregations.CalculateTrendData(float64(cat.Performance.SuccessRate), r),
		"latencyP50Ms": aggregations.CalculateTrendData(float64(cat.Performance.LatencyP50Ms), r),
		"latencyP95Ms": aggregations.CalculateTrendData(float64(cat.Performance.LatencyP95Ms), r),
	}
}

func seriesMean(points []models.TimelinePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

// TargetFor maps a timeline metric onto the category-KPI value that seeds its
// waveform.
func TargetFor(cat models.CategoryKPIs, m timeline.Metric) (float64, bool) {
	switch m {
	case timeline.MetricCSAT:
		return float64(cat.User.CSAT), true
	case timeline.MetricNPS:
		return float64(cat.User.NPS), true
	case timeline.MetricFirstContactResolution:
		return float64(cat.User.FirstContactResolution), true
	case timeline.MetricAbandonRate:
		return float64(cat.User.AbandonRate), true
	case timeline.MetricApprovalRate:
		return float64(cat.Business.ApprovalRate), true
	case timeline.MetricCoverageConfirmation:
		return float64(cat.Business.CoverageConfirmationRate), true
	case timeline.MetricAuthConversion:
		return float64(cat.Business.AuthorizationConversion), true
	case timeline.MetricCostToServe:
		return float64(cat.Business.CostToServe), true
	case timeline.MetricQueueDepth:
		return float64(cat.Operational.QueueDepth), true
	case timeline.MetricAvgHandlingTime:
		return float64(cat.Operational.AverageHandlingTimeMs), true
	case timeline.MetricAgentUtilization:
		return float64(cat.Operational.AgentUtilization), true
	case timeline.MetricSelfServeDeflection:
		return float64(cat.Operational.SelfServeDeflection), true
	case timeline.MetricLatencyP50:
		return float64(cat.Performance.LatencyP50Ms), true
	case timeline.MetricLatencyP95:
		return float64(cat.Performance.LatencyP95Ms), true
	case timeline.MetricErrorRate:
		return float64(cat.Performance.ErrorRate), true
	case timeline.MetricSuccessRate:
		return float64(cat.Performance.SuccessRate), true
	case timeline.MetricRetryRate:
		return float64(cat.Performance.RetryRate), true
	case timeline.MetricTimeoutRate:
		return float64(cat.Performance.TimeoutRate), true
	}
	return 0, false
}

// TimelineSeries holds one metric's waveform plus its reconciled average.
type TimelineSeries struct {
	Metric  timeline.Metric        `json:"metric"`
	Target  float64                `json:"target"`
	Average float64                `json:"average"`
	Points  []models.TimelinePoint `json:"points"`
}

// Timeline generates the display series for one metric of a snapshot. Unknown
// metric ids are rejected here at the boundary; the generator itself never
// fails on one.
func (a *Analytics) Timeline(metric timeline.Metric, tenant string, r dates.RangeID, seed uint32) (TimelineSeries, error) {
	snap := a.Snapshot(tenant, r, seed)
	target, ok := TargetFor(snap.Categories, metric)
	if !ok {
		return TimelineSeries{}, fmt.Errorf("unknown metric %q", metric)
	}
	points := timeline.Generate(metric, target, r)
	return TimelineSeries{
		Metric:  metric,
		Target:  target,
		Average: timeline.ReconcileAverage(points),
		Points:  points,
	}, nil
}

// HourlyErrors returns the 24-hour incident view, budgeted by the snapshot's
// uptime tier.
func (a *Analytics) HourlyErrors(tenant string, r dates.RangeID, seed uint32) ([]models.HourlyErrors, []models.ErrorGroup) {
	snap := a.Snapshot(tenant, r, seed)
	budget := errorBudgetFor(snap.Status)
	hourly := aggregations.HourlyErrorTrendWithUptime(budget)
	return hourly, aggregations.Top24hErrors(hourly)
}

// errorBudgetFor caps how many hourly incidents the 24h view may show per
// severity tier.
func errorBudgetFor(status models.SystemStatus) int {
	switch status.Status {
	case models.StatusOperational:
		return 2
	case models.StatusMinorDelays:
		return 4
	default:
		return 6
	}
}

// Stats reports cache behavior for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	return map[string]any{
		"cache_entries": a.cache.Len(),
		"cache_hits":    a.hits.Load(),
		"cache_misses":  a.misses.Load(),
		"tenants":       len(a.tenants),
	}
}
