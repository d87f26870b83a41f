// Package timeline generates the per-metric display waveforms behind KPI
// charts. Every point is a pure function of (metric, day index, target), so
// re-invocation is idempotent without any shared generator state.
package timeline

import (
	"math"
	"time"

	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/models"
)

// Metric identifies a named KPI waveform.
type Metric string

const (
	MetricCSAT                   Metric = "csat"
	MetricNPS                    Metric = "nps"
	MetricFirstContactResolution Metric = "first_contact_resolution"
	MetricAbandonRate            Metric = "abandon_rate"
	MetricApprovalRate           Metric = "approval_rate"
	MetricCoverageConfirmation   Metric = "coverage_confirmation"
	MetricAuthConversion         Metric = "authorization_conversion"
	MetricCostToServe            Metric = "cost_to_serve"
	MetricQueueDepth             Metric = "queue_depth"
	MetricAvgHandlingTime        Metric = "avg_handling_time"
	MetricAgentUtilization       Metric = "agent_utilization"
	MetricSelfServeDeflection    Metric = "self_serve_deflection"
	MetricLatencyP50             Metric = "latency_p50"
	MetricLatencyP95             Metric = "latency_p95"
	MetricErrorRate              Metric = "error_rate"
	MetricSuccessRate            Metric = "success_rate"
	MetricRetryRate              Metric = "retry_rate"
	MetricTimeoutRate            Metric = "timeout_rate"
)

// Metrics lists every known metric in dashboard display order.
var Metrics = []Metric{
	MetricCSAT, MetricNPS, MetricFirstContactResolution, MetricAbandonRate,
	MetricApprovalRate, MetricCoverageConfirmation, MetricAuthConversion, MetricCostToServe,
	MetricQueueDepth, MetricAvgHandlingTime, MetricAgentUtilization, MetricSelfServeDeflection,
	MetricLatencyP50, MetricLatencyP95, MetricErrorRate, MetricSuccessRate,
	MetricRetryRate, MetricTimeoutRate,
}

// Known reports whether m has a registered shape. Unknown metrics still
// generate (default shape); this only exists for callers that want to list or
// validate.
func Known(m Metric) bool {
	_, ok := shapes[m]
	return ok
}

// pseudo holds the three per-point deterministic noise terms derived from the
// point seed.
type pseudo struct {
	r1, r2, r3 float64
}

type shape struct {
	fn      func(i, days int, p pseudo) float64
	percent bool // percentage unit: capped at 100
}

// Shape table replaces metric-name string dispatch; each function returns a
// unitless variation later scaled by ±15% of the target.
var shapes = map[Metric]shape{
	MetricQueueDepth: {fn: func(i, days int, p pseudo) float64 {
		sawtooth := math.Mod(float64(i)/float64(days)*4, 1)
		trend := float64(i) / float64(days) * 0.4
		spike := 0.0
		if p.r1 > 0.3 {
			spike = p.r2 * 1.5
		}
		return (sawtooth-0.5)*1.2 + trend + spike
	}},
	MetricCostToServe: {fn: func(i, days int, p pseudo) float64 {
		decay := math.Exp(-(float64(i)/float64(days))*2) * 0.8
		walk := math.Sin(float64(i)*0.7)*0.3 + math.Cos(float64(i)*1.3)*0.2
		return (decay - 0.4) + walk + p.r1*0.4
	}},
	MetricCSAT: {percent: true, fn: func(i, days int, p pseudo) float64 {
		steps := math.Floor(float64(i) / float64(days) * 3)
		oscillation := math.Sin(float64(i)*2.1) * 0.2
		return steps*0.3 + oscillation + weekendBoost(i, 0.1)
	}},
	MetricAgentUtilization: {percent: true, fn: func(i, days int, p pseudo) float64 {
		wave1 := math.Sin(float64(i)*1.2) * 0.4
		wave2 := math.Sin(float64(i)*2.8) * 0.2
		growth := float64(i) / float64(days) * 0.3
		spike := 0.0
		if p.r1 > 0.35 {
			spike = p.r2 * 1.2
		}
		return (wave1+wave2)*(1+growth) + spike
	}},
	MetricFirstContactResolution: {percent: true, fn: func(i, days int, p pseudo) float64 {
		x := float64(i)/float64(days)*6 - 3
		logistic := 1/(1+math.Exp(-x)) - 0.5
		return logistic*0.8 + p.r1*0.2
	}},
	MetricAvgHandlingTime: {fn: func(i, days int, p pseudo) float64 {
		walk := 0.0
		if i != 0 {
			walk = p.r1 * 0.3
		}
		drift := float64(i) / float64(days) * 0.1
		burst := 0.0
		if p.r2 > 0.4 {
			burst = p.r3 * 2
		}
		return walk + drift + burst
	}},
	MetricNPS: {percent: true, fn: func(i, days int, p pseudo) float64 {
		smooth := math.Pow(float64(i)/float64(days), 1.5) * 0.6
		seasonal := math.Sin(float64(i)/float64(days)*math.Pi*2) * 0.3
		return smooth + seasonal + weekendBoost(i, 0.2)
	}},
	MetricAbandonRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		steps := math.Floor(float64(i) / float64(days) * 3)
		oscillation := -math.Sin(float64(i)*2.1) * 0.3
		return -steps*0.2 + oscillation + weekendBoost(i, -0.1)
	}},
	MetricApprovalRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		steady := float64(i) / float64(days) * 0.4
		dip := 0.0
		if p.r1 > 0.3 {
			dip = -(math.Abs(p.r2) * 0.3)
		}
		return steady + dip + p.r3*0.2
	}},
	MetricCoverageConfirmation: {percent: true, fn: func(i, days int, p pseudo) float64 {
		steps := math.Floor(float64(i) / float64(days) * 4)
		plateau := math.Sin(float64(i)*0.5) * 0.1
		return steps*0.15 + plateau
	}},
	MetricAuthConversion: {percent: true, fn: func(i, days int, p pseudo) float64 {
		growth := math.Pow(float64(i)/float64(days), 2) * 0.5
		return growth + math.Sin(float64(i)*1.8)*0.2
	}},
	MetricSelfServeDeflection: {percent: true, fn: func(i, days int, p pseudo) float64 {
		sawtooth := math.Mod(float64(i)/float64(days)*3, 1)
		trend := float64(i) / float64(days) * 0.3
		spike := 0.0
		if p.r1 > 0.4 {
			spike = p.r2 * 0.8
		}
		return (sawtooth-0.5)*0.8 + trend + spike
	}},
	MetricLatencyP50: {fn: func(i, days int, p pseudo) float64 {
		improvement := -(float64(i) / float64(days)) * 0.3
		spike := 0.0
		if p.r2 > 0.35 {
			spike = p.r3 * 1.2
		}
		return improvement + p.r1*0.4 + spike
	}},
	MetricLatencyP95: {fn: func(i, days int, p pseudo) float64 {
		improvement := -(float64(i) / float64(days)) * 0.2
		volatility := math.Sin(float64(i)*2.5)*0.3 + math.Cos(float64(i)*1.1)*0.2
		spike := 0.0
		if p.r1 > 0.25 {
			spike = p.r2 * 1.5
		}
		return improvement + volatility + spike
	}},
	MetricErrorRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		improvement := -(float64(i) / float64(days)) * 0.4
		spike := 0.0
		if p.r1 > 0.3 {
			spike = p.r2 * 2
		}
		return improvement + spike + p.r3*0.3
	}},
	MetricSuccessRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		return float64(i)/float64(days)*0.3 + p.r1*0.2
	}},
	MetricRetryRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		improvement := -(float64(i) / float64(days)) * 0.2
		spike := 0.0
		if p.r1 > 0.4 {
			spike = p.r2 * 1.5
		}
		return improvement + spike + p.r3*0.3
	}},
	MetricTimeoutRate: {percent: true, fn: func(i, days int, p pseudo) float64 {
		improvement := -(float64(i) / float64(days)) * 0.3
		volatility := math.Sin(float64(i)*3.1) * 0.4
		spike := 0.0
		if p.r1 > 0.3 {
			spike = p.r2 * 2
		}
		return improvement + volatility + spike
	}},
}

// defaultShape is the fallback for unrecognized metric names; generation must
// never fail on an unknown metric.
var defaultShape = shape{fn: func(i, days int, p pseudo) float64 {
	return float64(i)/float64(days)*0.2 + p.r1*0.3
}}

func weekendBoost(i int, amount float64) float64 {
	if i%7 == 0 || i%7 == 6 {
		return amount
	}
	return 0
}

// Generate produces the day-by-day waveform for a metric around a target
// average: shape variation scaled by ±15% of the target, floored at 0, capped
// at 100 for percentage units, then re-centered so the series mean equals the
// target. The centering is a second pass over generated points because the
// shape functions are non-linear and clamping can move the raw mean.
func Generate(m Metric, target float64, r dates.RangeID) []models.TimelinePoint {
	return GenerateAt(time.Now().UTC(), m, target, r)
}

// GenerateAt is Generate anchored at an explicit instant.
func GenerateAt(now time.Time, m Metric, target float64, r dates.RangeID) []models.TimelinePoint {
	days := dates.DaysFor(r)
	sh, ok := shapes[m]
	if !ok {
		sh = defaultShape
	}
	variance := target * 0.15

	points := make([]models.TimelinePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		p := noiseFor(m, i, target)
		value := target + sh.fn(i, days, p)*variance
		points = append(points, models.TimelinePoint{
			Date:  date.Format("Jan 2"),
			Value: clampValue(value, sh.percent),
		})
	}

	// Re-center: the clamps above can pull the raw mean off the target.
	delta := target - mean(points)
	for i := range points {
		points[i].Value = clampValue(points[i].Value+delta, sh.percent)
	}
	return points
}

// noiseFor derives the three per-point noise terms from a seed combining
// metric name, day index, and target.
func noiseFor(m Metric, i int, target float64) pseudo {
	seed := float64(len(m))*1000 + float64(i)*100 + target
	return pseudo{
		r1: math.Sin(seed) * 0.5,
		r2: math.Cos(seed*1.5) * 0.5,
		r3: math.Sin(seed*2.1) * 0.5,
	}
}

func clampValue(v float64, percent bool) float64 {
	if v < 0 {
		return 0
	}
	if percent && v > 100 {
		return 100
	}
	return v
}

func mean(points []models.TimelinePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

// ReconcileAverage returns the literal arithmetic mean of a generated series
// rounded to one decimal place. Reference lines and tiles display this value,
// not the requested target, so what is labeled "average" is always exactly
// the mean of what is plotted.
func ReconcileAverage(points []models.TimelinePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return math.Round(mean(points)*10) / 10
}
