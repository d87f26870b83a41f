package synth

import (
	"math"
	"time"

	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/models"
)

const (
	weekdayBaseVolume = 120
	weekendBaseVolume = 60
	msPerDay          = 24 * 60 * 60 * 1000
)

// Profile holds the per-tenant bias parameters that make each tenant's KPIs
// visibly different while staying fully deterministic.
type Profile struct {
	TrafficScale  float64 // multiplier on the daily base volume
	ApprovalBias  float64 // P(status = approved)
	CSATBias      float64 // additive shift on the channel CSAT base
	DurationScale float64 // multiplier on the drawn duration
	SpikePeriod   int     // every Nth event gets a latency spike; 0 disables
	SpikeMs       int     // spike amplitude
}

var tenantProfiles = map[string]Profile{
	"alpha-health": {TrafficScale: 1.0, ApprovalBias: 0.82, CSATBias: 5, DurationScale: 1.0},
	"beta-care":    {TrafficScale: 0.85, ApprovalBias: 0.75, CSATBias: 0, DurationScale: 1.15, SpikePeriod: 13, SpikeMs: 700},
	"gamma-health": {TrafficScale: 0.7, ApprovalBias: 0.68, CSATBias: -3, DurationScale: 1.25, SpikePeriod: 17, SpikeMs: 1200},
}

var defaultProfile = Profile{TrafficScale: 0.7, ApprovalBias: 0.68, CSATBias: -3, DurationScale: 1.0}

// ProfileFor returns the bias profile for a tenant id; unknown tenants get a
// neutral default so generation never fails on an unrecognized id.
func ProfileFor(tenant string) Profile {
	if p, ok := tenantProfiles[tenant]; ok {
		return p
	}
	return defaultProfile
}

// Generate produces the synthetic event set for a tenant over the resolved
// range. The PRNG draw order per event is fixed: channel, stage, status,
// duration, error threshold and type (rejected rows only), CSAT noise,
// handling time, timestamp offset. Reordering the draws changes every
// downstream KPI, so treat the sequence as part of the contract.
func Generate(tenant string, r dates.RangeID, seed uint32) []models.EventRow {
	return GenerateWindow(dates.Resolve(r), tenant, seed)
}

// GenerateWindow is Generate over an explicit window.
func GenerateWindow(win dates.Window, tenant string, seed uint32) []models.EventRow {
	rng := NewRand(SeedFor(tenant, seed))
	prof := ProfileFor(tenant)

	rows := make([]models.EventRow, 0, len(win.Days)*weekdayBaseVolume)
	for _, day := range win.Days {
		dayStart, err := dates.ParseDayKey(day)
		if err != nil {
			continue
		}
		base := float64(weekdayBaseVolume)
		if dates.IsWeekend(dayStart) {
			base = weekendBaseVolume
		}
		volume := int(math.Round(base * prof.TrafficScale * (0.8 + rng()*0.4)))
		for i := 0; i < volume; i++ {
			channel := models.Channels[int(rng()*float64(len(models.Channels)))]
			stage := models.Stages[int(rng()*float64(len(models.Stages)))]

			statusRand := rng()
			status := models.StatusRequested
			switch {
			case statusRand < prof.ApprovalBias:
				status = models.StatusApproved
			case statusRand > prof.ApprovalBias+0.1:
				status = models.StatusRejected
			}

			durationMs := int(math.Round((400 + rng()*1800) * prof.DurationScale))
			if prof.SpikePeriod > 0 && i%prof.SpikePeriod == 0 {
				durationMs += prof.SpikeMs
			}

			// Only a subset of rejections carries an error type.
			errorType := ""
			if status == models.StatusRejected && rng() > 0.4 {
				errorType = models.ErrorTypes[int(rng()*float64(len(models.ErrorTypes)))]
			}

			csatBase := channelCSATBase(channel) + prof.CSATBias
			csat := clampInt(int(math.Round(csatBase+(0.5-rng())*8)), 50, 95)

			var ahtMs int
			if channel == models.ChannelCallCenter {
				ahtMs = int(math.Round(300000 + rng()*120000))
			} else {
				ahtMs = int(math.Round(120000 + rng()*60000))
			}

			offset := time.Duration(math.Floor(rng()*msPerDay)) * time.Millisecond

			rows = append(rows, models.EventRow{
				TenantID:   tenant,
				Timestamp:  dayStart.Add(offset),
				Channel:    channel,
				Stage:      stage,
				Status:     status,
				DurationMs: durationMs,
				ErrorType:  errorType,
				CSAT:       csat,
				AHTMs:      ahtMs,
			})
		}
	}
	return rows
}

func channelCSATBase(c models.Channel) float64 {
	switch c {
	case models.ChannelMobile:
		return 80
	case models.ChannelCallCenter:
		return 70
	default:
		return 75
	}
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
