// Package metrics derives claimant and group statistics from call records.
// Everything here is pure computation over raw valuations: derived ratios are
// never persisted, they are recomputed at read time from whatever the records
// currently hold.
package metrics

import (
	"math"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

// Scoring thresholds.
const (
	// DefaultWinMultiple is the peak multiple that counts a call as a win.
	DefaultWinMultiple = 2.0

	// Rug detection: a call old enough whose peak never reached the ceiling
	// and whose current value collapsed below the floor.
	RugPeakCeiling  = 1.20
	RugCurrentFloor = 0.30
	RugMinAge       = 12 * time.Hour
)

// Summary holds derived per-entity metrics.
//
// Profitability (ProfitableRate and the reputation profitability term) is
// measured on the current-valuation return; wins and the upside term are
// measured on the peak return. The two decay at different rates and earlier
// revisions of this logic mixed them; the split here is intentional and must
// stay consistent.
type Summary struct {
	Calls          int
	AvgNow         float64 // mean of current/initial - 1
	AvgPeak        float64 // mean of max(peak,current)/initial - 1
	WinRate        float64 // fraction with peak multiple >= DefaultWinMultiple
	ProfitableRate float64 // fraction with current multiple > 1.0
	Reputation     float64 // blended 0..100 quality score
	BestX          float64 // best peak multiple ever
	Badges         []string
}

// Derive computes a Summary over the given call records. Records with a
// non-positive initial valuation are excluded from every ratio. An empty or
// fully excluded set yields the zero Summary, not an error.
func Derive(calls []*domain.CallRecord) Summary {
	var (
		sumNow, sumPeak float64
		wins, prof      int
		bestX           float64
		n               int
	)

	for _, c := range calls {
		if c.InitialVal <= 0 {
			continue
		}
		current := valueOr(c.CurrentVal, c.InitialVal)
		peak := math.Max(valueOr(c.PeakVal, c.InitialVal), current)

		xNow := current / c.InitialVal
		xPeak := peak / c.InitialVal

		sumNow += xNow - 1.0
		sumPeak += xPeak - 1.0
		if xPeak > bestX {
			bestX = xPeak
		}
		if xPeak >= DefaultWinMultiple {
			wins++
		}
		if xNow > 1.0 {
			prof++
		}
		n++
	}

	if n == 0 {
		return Summary{}
	}

	s := Summary{
		Calls:          n,
		AvgNow:         sumNow / float64(n),
		AvgPeak:        sumPeak / float64(n),
		WinRate:        float64(wins) / float64(n),
		ProfitableRate: float64(prof) / float64(n),
		BestX:          bestX,
	}
	s.Reputation = reputation(s.WinRate, s.AvgNow, s.AvgPeak, n)
	s.Badges = badges(s, n)
	return s
}

// reputation blends win rate, profitability, upside and sample confidence
// into a 0..100 score.
func reputation(winRate, avgNow, avgPeak float64, n int) float64 {
	profitability := clamp((avgNow+1.0)/2.0, 0, 1)
	upside := clamp((avgPeak+1.0)/3.0, 0, 1)
	confidence := clamp(math.Log1p(float64(n))/math.Log(25), 0, 1)

	score := 100.0 * (0.40*winRate + 0.30*profitability + 0.20*upside + 0.10*confidence)
	return clamp(score, 0, 100)
}

func badges(s Summary, n int) []string {
	var out []string
	switch {
	case s.BestX >= 100:
		out = append(out, "100x Legend")
	case s.BestX >= 25:
		out = append(out, "Moonshot")
	case s.BestX >= 10:
		out = append(out, "Sniper")
	}
	if n >= 10 && s.WinRate >= 0.60 {
		out = append(out, "High Hit Rate")
	}
	if n >= 5 && s.AvgNow > 0 {
		out = append(out, "Profitable")
	}
	return out
}

// RugSummary counts calls that never moved and then collapsed.
type RugSummary struct {
	Eligible int     // calls past RugMinAge with a positive initial valuation
	Rugs     int     // of those, peak < ceiling and current <= floor
	RatePct  float64 // Rugs/Eligible as a percentage
}

// DeriveRugStats computes rug statistics as of now.
func DeriveRugStats(calls []*domain.CallRecord, now time.Time) RugSummary {
	var r RugSummary
	for _, c := range calls {
		if c.InitialVal <= 0 || c.SubmittedAt.IsZero() {
			continue
		}
		if now.Sub(c.SubmittedAt) < RugMinAge {
			continue
		}

		current := valueOr(c.CurrentVal, c.InitialVal)
		peak := math.Max(valueOr(c.PeakVal, c.InitialVal), current)

		r.Eligible++
		if peak/c.InitialVal < RugPeakCeiling && current/c.InitialVal <= RugCurrentFloor {
			r.Rugs++
		}
	}
	if r.Eligible > 0 {
		r.RatePct = float64(r.Rugs) / float64(r.Eligible) * 100.0
	}
	return r
}

// IsWin reports whether the call's peak multiple reached the win threshold.
func IsWin(c *domain.CallRecord) bool {
	if c.InitialVal <= 0 {
		return false
	}
	current := valueOr(c.CurrentVal, c.InitialVal)
	peak := math.Max(valueOr(c.PeakVal, c.InitialVal), current)
	return peak/c.InitialVal >= DefaultWinMultiple
}

// IsLoss reports whether the call currently sits below its entry.
func IsLoss(c *domain.CallRecord) bool {
	if c.InitialVal <= 0 {
		return false
	}
	return valueOr(c.CurrentVal, c.InitialVal)/c.InitialVal < 1.0
}

// LeadingRun counts how many leading elements satisfy pred before the first
// one that does not. Calls must already be in most-recent-first order.
func LeadingRun(calls []*domain.CallRecord, pred func(*domain.CallRecord) bool) int {
	run := 0
	for _, c := range calls {
		if !pred(c) {
			break
		}
		run++
	}
	return run
}

func valueOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
