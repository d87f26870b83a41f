package aggregations

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/models"
	"bcs-dashboard/internal/synth"
)

// rowAt builds a row daysAgo days back at midday, safely inside the UTC day.
func rowAt(daysAgo int, status models.Status) models.EventRow {
	ts := dates.StartOfDay(time.Now().UTC()).AddDate(0, 0, -daysAgo).Add(12 * time.Hour)
	return models.EventRow{
		TenantID:   "alpha-health",
		Timestamp:  ts,
		Channel:    models.ChannelWeb,
		Stage:      models.StageIntent,
		Status:     status,
		DurationMs: 900,
		CSAT:       80,
		AHTMs:      150000,
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70}

	// nearest-rank on (n-1): p50 -> floor(0.5*6)=3, p95 -> floor(0.95*6)=5
	assert.Equal(t, 40.0, Percentile(values, 50))
	assert.Equal(t, 60.0, Percentile(values, 95))
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 70.0, Percentile(values, 100))
	assert.Equal(t, 0.0, Percentile(nil, 50))

	// input must not be mutated
	unsorted := []float64{30, 10, 20}
	Percentile(unsorted, 50)
	assert.Equal(t, []float64{30, 10, 20}, unsorted)
}

func TestFilterByTenantAndRange(t *testing.T) {
	inRange := rowAt(1, models.StatusApproved)
	wrongTenant := rowAt(1, models.StatusApproved)
	wrongTenant.TenantID = "beta-care"
	tooOld := rowAt(40, models.StatusApproved)

	got := FilterByTenantAndRange([]models.EventRow{inRange, wrongTenant, tooOld}, "alpha-health", dates.Range7d)

	require.Len(t, got, 1)
	assert.Equal(t, inRange, got[0])
}

func TestDailyAggregatesEmptyInput(t *testing.T) {
	for _, r := range []dates.RangeID{dates.Range7d, dates.Range14d, dates.Range30d} {
		days := dates.DaysFor(r)

		daily := DailyRequestsApprovals(nil, r)
		require.Len(t, daily, days)
		for _, day := range daily {
			assert.NotEmpty(t, day.Date)
			assert.Zero(t, day.Requests)
			assert.Zero(t, day.Approvals)
		}

		latency := DailyLatency(nil, r)
		require.Len(t, latency, days)
		for _, day := range latency {
			assert.Zero(t, day.P50)
			assert.Zero(t, day.P95)
		}
	}
}

func TestComputeKpis(t *testing.T) {
	rows := []models.EventRow{
		rowAt(1, models.StatusApproved),
		rowAt(1, models.StatusApproved),
		rowAt(2, models.StatusApproved),
		rowAt(2, models.StatusRejected),
		rowAt(3, models.StatusRequested),
	}

	k := ComputeKpis(rows)

	assert.Equal(t, 5, k.TotalRequests)
	assert.Equal(t, 3, k.Approvals)
	// decided = 4, success = round(3/4*100) = 75
	assert.Equal(t, 75, k.SuccessRate)
	assert.Equal(t, 25, k.ErrorRate)
	assert.Equal(t, 60, k.ApprovalRate)
	assert.Equal(t, 83, k.FCR) // 80 + 3%20
	assert.Equal(t, 12, k.AbandonRate)
	assert.Equal(t, 13, k.Retries) // round(25/2)
	assert.Equal(t, 80, k.CSAT)
}

func TestComputeKpisEmpty(t *testing.T) {
	k := ComputeKpis(nil)

	assert.Zero(t, k.TotalRequests)
	assert.Zero(t, k.SuccessRate)
	assert.Zero(t, k.ErrorRate, "error rate must be 0, not 100, when nothing was decided")
	assert.Zero(t, k.ApprovalRate)
	assert.Equal(t, 80, k.FCR)
	assert.Equal(t, 15, k.AbandonRate)
}

func TestComputeKpisApprovalRateFloor(t *testing.T) {
	rows := make([]models.EventRow, 0, 1000)
	rows = append(rows, rowAt(1, models.StatusApproved))
	for i := 0; i < 999; i++ {
		rows = append(rows, rowAt(1+i%5, models.StatusRejected))
	}

	k := ComputeKpis(rows)

	// round(1/1000*100) = 0, floored to 1 so the tile never shows zero
	assert.Equal(t, 1, k.ApprovalRate)
}

func TestComputeCategoryKpisBounds(t *testing.T) {
	rows := []models.EventRow{
		rowAt(1, models.StatusApproved),
		rowAt(2, models.StatusRejected),
		rowAt(3, models.StatusApproved),
	}
	rows[1].Channel = models.ChannelCallCenter
	rows[2].Stage = models.StageAuthorization

	cat := ComputeCategoryKpis(rows)

	assert.GreaterOrEqual(t, cat.User.NPS, 0)
	assert.LessOrEqual(t, cat.User.NPS, 100)
	assert.Equal(t, cat.User.CSAT-10, cat.User.NPS)
	assert.GreaterOrEqual(t, cat.Operational.AgentUtilization, 55)
	assert.LessOrEqual(t, cat.Operational.AgentUtilization, 95)
	assert.GreaterOrEqual(t, cat.Operational.QueueDepth, 3)
	assert.GreaterOrEqual(t, cat.Performance.LatencyP95Ms, cat.Performance.LatencyP50Ms)
}

func TestComputeCategoryKpisEmpty(t *testing.T) {
	cat := ComputeCategoryKpis(nil)

	assert.Zero(t, cat.Business.ApprovalRate)
	assert.Zero(t, cat.Performance.LatencyP50Ms)
	assert.GreaterOrEqual(t, cat.Operational.QueueDepth, 3)
}

func TestFunnelCountsMonotonic(t *testing.T) {
	// raw counts violate funnel order on purpose
	rows := make([]models.EventRow, 0)
	addStage := func(stage models.Stage, n int) {
		for i := 0; i < n; i++ {
			row := rowAt(1, models.StatusApproved)
			row.Stage = stage
			rows = append(rows, row)
		}
	}
	addStage(models.StageIntent, 2)
	addStage(models.StageCoverage, 10)
	addStage(models.StageAuthorization, 20)

	out := FunnelCounts(rows)
	require.Len(t, out, 4)

	assert.Equal(t, models.StageIntent, out[0].Stage)
	assert.Equal(t, 20, out[0].Count, "intent is forced to the raw maximum")
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].Count, out[i-1].Count,
			"stage %s must not exceed its predecessor", out[i].Stage)
	}
}

func TestFunnelCountsDecrementFloor(t *testing.T) {
	rows := make([]models.EventRow, 0)
	for _, stage := range models.Stages {
		row := rowAt(1, models.StatusApproved)
		row.Stage = stage
		rows = append(rows, row, row)
	}

	out := FunnelCounts(rows)

	// equal raw counts: each later stage drops by at least 1
	for i := 1; i < len(out); i++ {
		if out[i-1].Count > 0 {
			assert.Less(t, out[i].Count, out[i-1].Count)
		}
	}
}

func TestChannelMixFixedOrder(t *testing.T) {
	rows := []models.EventRow{}
	addChannel := func(ch models.Channel, csat int) {
		row := rowAt(1, models.StatusApproved)
		row.Channel = ch
		row.CSAT = csat
		rows = append(rows, row)
	}
	// insert out of enum order
	addChannel(models.ChannelEmployee, 70)
	addChannel(models.ChannelWeb, 80)
	addChannel(models.ChannelWeb, 90)
	addChannel(models.ChannelMobile, 85)

	out := ChannelMix(rows)

	require.Len(t, out, 3)
	assert.Equal(t, models.ChannelWeb, out[0].Channel)
	assert.Equal(t, models.ChannelMobile, out[1].Channel)
	assert.Equal(t, models.ChannelEmployee, out[2].Channel)
	assert.Equal(t, 50, out[0].Share)
	assert.Equal(t, 85, out[0].CSAT)
}

func TestChannelMixSharesOnGeneratedRows(t *testing.T) {
	win := dates.Resolve(dates.Range14d)
	rows := synth.GenerateWindow(win, "beta-care", 7)
	require.NotEmpty(t, rows)

	out := ChannelMix(rows)

	seen := map[models.Channel]bool{}
	for _, row := range rows {
		seen[row.Channel] = true
	}
	listed := map[models.Channel]bool{}
	shareSum := 0
	for _, ch := range out {
		listed[ch.Channel] = true
		shareSum += ch.Share
	}
	for ch := range seen {
		assert.True(t, listed[ch], "channel %s has rows but no mix entry", ch)
	}
	// per-channel rounding can shift the total by at most half a point each
	assert.InDelta(t, 100, shareSum, float64(len(out)))
}

func TestComputeKpisBoundsOnGeneratedRows(t *testing.T) {
	win := dates.Resolve(dates.Range30d)
	rows := synth.GenerateWindow(win, "gamma-health", 11)
	require.NotEmpty(t, rows)

	k := ComputeKpis(rows)

	assert.Equal(t, len(rows), k.TotalRequests)
	assert.LessOrEqual(t, k.Approvals, k.TotalRequests)
	assert.GreaterOrEqual(t, k.ApprovalRate, 0)
	assert.LessOrEqual(t, k.ApprovalRate, 100)
	assert.GreaterOrEqual(t, k.SuccessRate, 0)
	assert.LessOrEqual(t, k.SuccessRate, 100)
}

func TestChannelMixEmpty(t *testing.T) {
	assert.Empty(t, ChannelMix(nil))
}

func TestTopErrors(t *testing.T) {
	rows := []models.EventRow{}
	addError := func(errType string, ch models.Channel) {
		row := rowAt(1, models.StatusRejected)
		row.ErrorType = errType
		row.Channel = ch
		rows = append(rows, row)
	}
	addError("Auth API", models.ChannelWeb)
	addError("Eligibility API", models.ChannelWeb)
	addError("Eligibility API", models.ChannelMobile)
	addError("Eligibility API", models.ChannelWeb)
	rows = append(rows, rowAt(1, models.StatusApproved)) // untyped, ignored

	out := TopErrors(rows)

	require.Len(t, out, 2)
	assert.Equal(t, "Eligibility API", out[0].ErrorType)
	assert.Equal(t, 3, out[0].Count)
	assert.Equal(t, map[string]int{"web": 2, "mobile": 1}, out[0].ChannelImpact)
	assert.Equal(t, "Auth API", out[1].ErrorType)
}

func TestErrorTrendZeroFills(t *testing.T) {
	row := rowAt(1, models.StatusRejected)
	row.ErrorType = "Auth API"

	out := ErrorTrend([]models.EventRow{row}, dates.Range7d)

	require.Len(t, out, 7)
	total := 0
	for _, day := range out {
		total += day.Errors
	}
	assert.Equal(t, 1, total)
}

func TestHourlyErrorTrendAt(t *testing.T) {
	now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)

	out := HourlyErrorTrendAt(now, defaultHourlyErrs)
	require.Len(t, out, 24)

	assert.Equal(t, "15:00", out[0].Date)
	assert.Equal(t, "14:00", out[1].Date)
	assert.Equal(t, "16:00", out[23].Date)

	slots := map[int]bool{}
	for _, s := range hourlyErrorSlots {
		slots[s] = true
	}
	total := 0
	for i, h := range out {
		if h.FailedRequests > 0 {
			assert.True(t, slots[i], "error outside a fixed slot at index %d", i)
			assert.Contains(t, hourlyErrorTypes, h.ErrorType)
			total += h.FailedRequests
		} else {
			assert.Empty(t, h.ErrorType)
		}
	}
	assert.LessOrEqual(t, total, defaultHourlyErrs)

	// same instant, same distribution
	assert.Equal(t, out, HourlyErrorTrendAt(now, defaultHourlyErrs))
}

func TestHourlyErrorTrendZeroBudget(t *testing.T) {
	out := HourlyErrorTrendAt(time.Now(), 0)
	for _, h := range out {
		assert.Zero(t, h.FailedRequests)
	}
}

func TestTop24hErrors(t *testing.T) {
	hourly := []models.HourlyErrors{
		{Date: "01:00", FailedRequests: 4, ErrorType: "Timeout"},
		{Date: "02:00", FailedRequests: 2, ErrorType: "Network"},
		{Date: "03:00", FailedRequests: 1, ErrorType: "Timeout"},
	}

	out := Top24hErrors(hourly)
	require.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), maxTop24hErrors)

	assert.Equal(t, "Timeout", out[0].ErrorType)
	assert.Equal(t, 5, out[0].Count)

	for i, g := range out {
		if i > 0 {
			assert.LessOrEqual(t, g.Count, out[i-1].Count)
		}
		sum := 0
		for _, n := range g.ChannelImpact {
			assert.GreaterOrEqual(t, n, 0)
			sum += n
		}
		assert.Equal(t, g.Count, sum, "channel impact must redistribute the full count for %s", g.ErrorType)
	}
}

func TestTop24hErrorsNilInput(t *testing.T) {
	assert.NotPanics(t, func() { Top24hErrors(nil) })
}

func TestCalculateSystemStatusTiers(t *testing.T) {
	// no rows: error rate 0, uptime 100
	status := CalculateSystemStatus(nil)
	assert.Equal(t, models.StatusOperational, status.Status)
	assert.Equal(t, 100.0, status.Uptime)
	assert.NotEmpty(t, status.Title)
	assert.NotEmpty(t, status.UserGuidance)

	// every decided row rejected: error rate 100 forces the disruption tier
	rows := []models.EventRow{
		rowAt(1, models.StatusRejected),
		rowAt(2, models.StatusRejected),
		rowAt(3, models.StatusRejected),
	}
	status = CalculateSystemStatus(rows)
	assert.Equal(t, models.StatusServiceDisruption, status.Status)

	// raw uptime 100 - 10 + sin('2') clamps to the 95 floor before display rounding
	assert.Equal(t, 95.0, status.Uptime)

	// one decimal place
	assert.Equal(t, math.Round(status.Uptime*10)/10, status.Uptime)
}

func TestCalculateTrendData(t *testing.T) {
	trend := CalculateTrendData(0, dates.Range14d)
	assert.Zero(t, trend.PreviousValue)
	assert.Zero(t, trend.ChangePercent)

	trend = CalculateTrendData(82, dates.Range14d)
	assert.GreaterOrEqual(t, trend.PreviousValue, 0.0)
	assert.False(t, math.IsInf(trend.ChangePercent, 0))
	assert.False(t, math.IsNaN(trend.ChangePercent))

	// deterministic for a given value
	assert.Equal(t, trend, CalculateTrendData(82, dates.Range14d))
}
