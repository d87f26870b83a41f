// Package aggregations derives every dashboard summary from a filtered event
// set. All functions are pure: no I/O, no shared state, defined behavior on
// empty input (zeroes, never errors).
package aggregations

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/models"
)

// FilterByTenantAndRange keeps rows owned by tenant with timestamps inside
// [from, to+1day).
func FilterByTenantAndRange(rows []models.EventRow, tenant string, r dates.RangeID) []models.EventRow {
	win := dates.Resolve(r)
	end := win.To.Add(24 * time.Hour)
	out := make([]models.EventRow, 0, len(rows))
	for _, row := range rows {
		if row.TenantID != tenant {
			continue
		}
		if row.Timestamp.Before(win.From) || !row.Timestamp.Before(end) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Percentile uses the nearest-rank method: sort ascending, index
// floor(p/100 * (n-1)) clamped into range. Returns 0 for empty input.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Floor(p / 100 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func groupByDay(rows []models.EventRow) map[string][]models.EventRow {
	byDay := make(map[string][]models.EventRow)
	for _, row := range rows {
		key := dates.DayKey(row.Timestamp)
		byDay[key] = append(byDay[key], row)
	}
	return byDay
}

// DailyRequestsApprovals returns one entry per day in the range, zero-filled
// for days without traffic.
func DailyRequestsApprovals(rows []models.EventRow, r dates.RangeID) []models.DailyVolume {
	win := dates.Resolve(r)
	byDay := groupByDay(rows)
	out := make([]models.DailyVolume, 0, len(win.Days))
	for _, day := range win.Days {
		list := byDay[day]
		approvals := 0
		for _, row := range list {
			if row.Status == models.StatusApproved {
				approvals++
			}
		}
		out = append(out, models.DailyVolume{Date: day, Requests: len(list), Approvals: approvals})
	}
	return out
}

// DailyLatency returns per-day p50/p95 of event durations.
func DailyLatency(rows []models.EventRow, r dates.RangeID) []models.DailyLatency {
	win := dates.Resolve(r)
	byDay := groupByDay(rows)
	out := make([]models.DailyLatency, 0, len(win.Days))
	for _, day := range win.Days {
		durations := durationsOf(byDay[day])
		out = append(out, models.DailyLatency{
			Date: day,
			P50:  int(Percentile(durations, 50)),
			P95:  int(Percentile(durations, 95)),
		})
	}
	return out
}

func durationsOf(rows []models.EventRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = float64(row.DurationMs)
	}
	return out
}

// ComputeKpis derives the flat KPI set. Decided = approvals + rejections;
// in-flight "requested" rows are excluded from success/error rates. The
// approval rate is floored at 1 whenever approvals > 0 so tiny nonzero
// approval counts stay visible on tiles.
func ComputeKpis(rows []models.EventRow) models.KPISet {
	total := len(rows)
	approvals, declines := 0, 0
	csatSum, ahtSum := 0, 0
	for _, row := range rows {
		switch row.Status {
		case models.StatusApproved:
			approvals++
		case models.StatusRejected:
			declines++
		}
		csatSum += row.CSAT
		ahtSum += row.AHTMs
	}

	decided := approvals + declines
	successRate, errorRate := 0, 0
	if decided > 0 {
		successRate = roundRatio(approvals, decided)
		errorRate = 100 - successRate
	}

	approvalRate := 0
	if total > 0 && approvals > 0 {
		approvalRate = max(1, roundRatio(approvals, total))
	}

	fcr := 80 + min(20, approvals%20)
	abandonRate := max(0, 100-fcr-5)

	csat, aht := 0, 0
	if total > 0 {
		csat = int(math.Round(float64(csatSum) / float64(total)))
		aht = int(math.Round(float64(ahtSum) / float64(total)))
	}
	retries := int(math.Round(math.Max(0, float64(errorRate)/2)))

	return models.KPISet{
		TotalRequests: total,
		Approvals:     approvals,
		ApprovalRate:  approvalRate,
		FCR:           fcr,
		AbandonRate:   abandonRate,
		CSAT:          csat,
		AHTMs:         aht,
		ErrorRate:     errorRate,
		Retries:       retries,
		SuccessRate:   successRate,
	}
}

// OverallLatency is p50/p95 over the whole set.
func OverallLatency(rows []models.EventRow) (p50, p95 int) {
	durations := durationsOf(rows)
	return int(Percentile(durations, 50)), int(Percentile(durations, 95))
}

// CalculateTrendData derives a previous-period value and change percent from
// the current value alone, via a fixed sin/cos mix of a value-derived seed.
func CalculateTrendData(current float64, r dates.RangeID) models.Trend {
	seed := current * 1000
	baseVariation := math.Sin(seed) * 0.5 * 0.3
	seasonalEffect := math.Sin(seed/1000) * 0.1
	trendEffect := math.Cos(seed*1.5) * 0.3 * 0.2

	previous := math.Max(0, current*(1-(baseVariation+seasonalEffect+trendEffect)))
	change := 0.0
	if current > 0 && previous > 0 {
		change = (current - previous) / previous * 100
	}
	return models.Trend{
		PreviousValue: round2(previous),
		ChangePercent: round2(change),
	}
}

// ComputeCategoryKpis derives the four fixed-shape category bundles.
func ComputeCategoryKpis(rows []models.EventRow) models.CategoryKPIs {
	total := len(rows)
	if total == 0 {
		total = 1
	}
	k := ComputeKpis(rows)
	p50, p95 := OverallLatency(rows)

	fcr := int(math.Round(75 + math.Min(20, math.Mod(float64(k.ApprovalRate)/10, 20))))
	user := models.UserKPIs{
		CSAT:                   k.CSAT,
		NPS:                    clampInt(k.CSAT-10, 0, 100),
		FirstContactResolution: fcr,
		AbandonRate:            max(0, 100-fcr-5),
	}

	coverageRows, authApproved, callCenter, costSum := 0, 0, 0, 0
	for _, row := range rows {
		if row.Stage == models.StageCoverage {
			coverageRows++
		}
		if row.Stage == models.StageAuthorization && row.Status == models.StatusApproved {
			authApproved++
		}
		if row.Channel == models.ChannelCallCenter {
			callCenter++
			costSum += 5
		} else {
			costSum += 2
		}
	}
	business := models.BusinessKPIs{
		ApprovalRate:             k.ApprovalRate,
		CoverageConfirmationRate: roundRatio(coverageRows, total),
		AuthorizationConversion:  roundRatio(authApproved, total),
		CostToServe:              int(math.Round(float64(costSum) / float64(total))),
	}

	callCenterShare := roundRatio(callCenter, total)
	operational := models.OperationalKPIs{
		QueueDepth:            max(3, int(math.Round(float64(callCenterShare)/8))),
		AverageHandlingTimeMs: k.AHTMs,
		AgentUtilization:      clampInt(100-int(math.Round(float64(callCenterShare)/2)), 55, 95),
		SelfServeDeflection:   roundRatio(len(rows)-callCenter, total),
	}

	performance := models.PerformanceKPIs{
		LatencyP50Ms: p50,
		LatencyP95Ms: p95,
		ErrorRate:    k.ErrorRate,
		SuccessRate:  k.SuccessRate,
		RetryRate:    k.Retries,
		TimeoutRate:  int(math.Round(math.Max(0, float64(k.Retries)/2))),
	}

	return models.CategoryKPIs{User: user, Business: business, Operational: operational, Performance: performance}
}

// FunnelCounts returns per-stage counts coerced strictly decreasing from
// intent to authorization: intent is forced to the raw maximum, and each later
// stage is pushed below its predecessor by max(1, 5% of predecessor) whenever
// raw counts would violate monotonicity. This is a display-fidelity coercion
// of noisy raw counts, not a measurement.
func FunnelCounts(rows []models.EventRow) []models.FunnelStageCount {
	raw := make([]int, len(models.Stages))
	for _, row := range rows {
		for i, s := range models.Stages {
			if row.Stage == s {
				raw[i]++
				break
			}
		}
	}

	coerced := make([]int, len(models.Stages))
	for i := range models.Stages {
		value := raw[i]
		if i == 0 {
			for _, c := range raw {
				if c > value {
					value = c
				}
			}
		} else if prev := coerced[i-1]; value >= prev {
			decrement := max(1, int(math.Round(float64(prev)*0.05)))
			value = max(0, prev-decrement)
		}
		coerced[i] = value
	}

	out := make([]models.FunnelStageCount, len(models.Stages))
	for i, s := range models.Stages {
		out[i] = models.FunnelStageCount{Stage: s, Count: coerced[i]}
	}
	return out
}

// ChannelMix returns rounded share percent and mean CSAT per channel present
// in rows, in fixed channel-enumeration order.
func ChannelMix(rows []models.EventRow) []models.ChannelShare {
	total := len(rows)
	if total == 0 {
		total = 1
	}
	counts := make(map[models.Channel]int)
	csatSums := make(map[models.Channel]int)
	for _, row := range rows {
		counts[row.Channel]++
		csatSums[row.Channel] += row.CSAT
	}

	out := make([]models.ChannelShare, 0, len(counts))
	for _, ch := range models.Channels {
		n := counts[ch]
		if n == 0 {
			continue
		}
		out = append(out, models.ChannelShare{
			Channel: ch,
			Share:   roundRatio(n, total),
			CSAT:    int(math.Round(float64(csatSums[ch]) / float64(n))),
		})
	}
	return out
}

const maxTopErrors = 8

// TopErrors groups typed-error rows by error type with a per-channel
// breakdown, sorted descending by count, capped at 8.
func TopErrors(rows []models.EventRow) []models.ErrorGroup {
	order := make([]string, 0, len(models.ErrorTypes))
	groups := make(map[string]*models.ErrorGroup)
	for _, row := range rows {
		if row.ErrorType == "" {
			continue
		}
		g, ok := groups[row.ErrorType]
		if !ok {
			g = &models.ErrorGroup{ErrorType: row.ErrorType, ChannelImpact: make(map[string]int)}
			groups[row.ErrorType] = g
			order = append(order, row.ErrorType)
		}
		g.Count++
		g.ChannelImpact[string(row.Channel)]++
	}

	out := make([]models.ErrorGroup, 0, len(order))
	for _, errType := range order {
		out = append(out, *groups[errType])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > maxTopErrors {
		out = out[:maxTopErrors]
	}
	return out
}

// ErrorTrend counts typed-error rows per day across the range.
func ErrorTrend(rows []models.EventRow, r dates.RangeID) []models.DailyErrors {
	win := dates.Resolve(r)
	byDay := make(map[string]int)
	for _, row := range rows {
		if row.ErrorType != "" {
			byDay[dates.DayKey(row.Timestamp)]++
		}
	}
	out := make([]models.DailyErrors, 0, len(win.Days))
	for _, day := range win.Days {
		out = append(out, models.DailyErrors{Date: day, Errors: byDay[day]})
	}
	return out
}

// Fixed hour-of-day slot indices and error categories for the 24-hour
// incident view. The slot set and the ~70% sinusoidal accept test are a
// documented deterministic policy, not a statistical model.
var (
	hourlyErrorSlots  = []int{2, 8, 14, 18, 21, 23}
	hourlyErrorTypes  = []string{"Timeout", "Network", "Auth", "Validation", "Server"}
	defaultHourlyErrs = 6
)

// HourlyErrorTrend distributes a default error budget of 6 across the fixed
// hourly slots of the last 24 hours.
func HourlyErrorTrend() []models.HourlyErrors {
	return HourlyErrorTrendAt(time.Now(), defaultHourlyErrs)
}

// HourlyErrorTrendWithUptime distributes a caller-capped error budget, driven
// by the uptime-derived severity tier.
func HourlyErrorTrendWithUptime(maxErrors int) []models.HourlyErrors {
	return HourlyErrorTrendAt(time.Now(), maxErrors)
}

// HourlyErrorTrendAt builds 24 hour slots ending at now's hour (newest first)
// and assigns at most maxErrors single-error incidents to the fixed slot
// indices. Per slot: accept when |sin(slot*123 + index*456 + hour)| > 0.3,
// then pick the error type from a second sinusoidal draw.
func HourlyErrorTrendAt(now time.Time, maxErrors int) []models.HourlyErrors {
	currentHour := now.Hour()
	out := make([]models.HourlyErrors, 0, 24)
	for i := 0; i < 24; i++ {
		hour := ((currentHour-i)%24 + 24) % 24
		out = append(out, models.HourlyErrors{Date: fmt.Sprintf("%02d:00", hour)})
	}

	remaining := maxErrors
	for index, slot := range hourlyErrorSlots {
		if remaining <= 0 || slot >= len(out) {
			continue
		}
		seed := float64(slot*123 + index*456 + currentHour)
		if math.Abs(math.Sin(seed)) <= 0.3 {
			continue
		}
		typeSeed := seed + float64(slot*789)
		typeIdx := int(math.Abs(math.Floor(math.Sin(typeSeed)*float64(len(hourlyErrorTypes))))) % len(hourlyErrorTypes)
		out[slot].FailedRequests = 1
		out[slot].ErrorType = hourlyErrorTypes[typeIdx]
		remaining--
	}
	return out
}

const maxTop24hErrors = 5

// Top24hErrors ranks the hourly incident data by error type and spreads each
// type's count across channels with a deterministic cosine share (10-30% per
// channel, last channel absorbs the remainder, nothing goes negative).
func Top24hErrors(hourly []models.HourlyErrors) []models.ErrorGroup {
	if hourly == nil {
		hourly = HourlyErrorTrend()
	}

	counts := make(map[string]int, len(hourlyErrorTypes))
	for _, h := range hourly {
		if h.FailedRequests > 0 && h.ErrorType != "" {
			counts[h.ErrorType] += h.FailedRequests
		}
	}

	out := make([]models.ErrorGroup, 0, len(hourlyErrorTypes))
	for _, errType := range hourlyErrorTypes {
		count := counts[errType]
		impact := make(map[string]int, len(models.Channels))
		remaining := count
		seed := float64(errType[0]) * 123
		for ci, ch := range models.Channels {
			minImpact := max(1, int(math.Floor(float64(count)*0.1)))
			var channelCount int
			if ci == len(models.Channels)-1 {
				channelCount = max(0, remaining)
			} else {
				channelSeed := seed + float64(ci*456)
				share := math.Abs(math.Cos(channelSeed))*0.2 + 0.1
				maxImpact := int(math.Floor(float64(count) * 0.3))
				channelCount = clampInt(int(math.Floor(float64(count)*share)), minImpact, maxImpact)
				reserve := (len(models.Channels) - ci - 1) * minImpact
				channelCount = min(channelCount, max(0, remaining-reserve))
			}
			impact[string(ch)] = max(0, channelCount)
			remaining = max(0, remaining-channelCount)
		}
		out = append(out, models.ErrorGroup{ErrorType: errType, Count: count, ChannelImpact: impact})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > maxTop24hErrors {
		out = out[:maxTop24hErrors]
	}
	return out
}

// CalculateSystemStatus derives an uptime estimate from the error rate plus a
// small jitter seeded off the first row's timestamp, then buckets into three
// severity tiers with fixed copy.
func CalculateSystemStatus(rows []models.EventRow) models.SystemStatus {
	k := ComputeKpis(rows)

	seed := 0.0
	if len(rows) > 0 {
		seed = float64(rows[0].Timestamp.UTC().Format(time.RFC3339)[0])
	}
	uptime := 100 - float64(k.ErrorRate)*0.1 + math.Sin(seed)
	uptime = math.Max(95, math.Min(100, uptime))

	// Tier thresholds compare the raw uptime; rounding is display-only.
	status := models.SystemStatus{Uptime: math.Round(uptime*10) / 10, ErrorRate: k.ErrorRate}
	switch {
	case uptime >= 99.5 && k.ErrorRate <= 5:
		status.Status = models.StatusOperational
		status.Title = "✅ All Systems Operational"
		status.Description = "All systems are stable. Requests are processing normally."
		status.UserGuidance = "Proceed as usual."
	case uptime >= 98.0 && k.ErrorRate <= 15:
		status.Status = models.StatusMinorDelays
		status.Title = "⚠️ Minor Delays"
		status.Description = "Some requests may be delayed; expect longer approval times."
		status.UserGuidance = "Expect small delays; re-check approvals in a few minutes."
	default:
		status.Status = models.StatusServiceDisruption
		status.Title = "❌ Service Disruption"
		status.Description = "Service outage; some requests may fail — retry later."
		status.UserGuidance = "Please call support or retry after 15 minutes."
	}
	return status
}

func roundRatio(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
