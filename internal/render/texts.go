package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// HotStreakAlert renders the win-streak notification.
func HotStreakAlert(callerName string, streak int, activeWindow time.Duration) string {
	return strings.Join([]string{
		"🔥 HOT HAND ALERT",
		Divider,
		"👤 Caller: " + callerName,
		fmt.Sprintf("🏅 Win Streak: %d", streak),
		fmt.Sprintf("⏱ Last call inside %dh", int(activeWindow.Hours())),
	}, "\n")
}

// ColdStreakAlert renders the losing-streak notification.
func ColdStreakAlert(callerName string, streak int) string {
	return strings.Join([]string{
		"⚠️ DANGER STREAK",
		Divider,
		"👤 Caller: " + callerName,
		fmt.Sprintf("🩸 Losing Streak: %d", streak),
		"🔎 Review before trusting new calls",
	}, "\n")
}

// AlertsToggled renders the confirmation shown after toggling group alerts.
func AlertsToggled(enabled bool) string {
	if enabled {
		return "🔔 ALERTS: ON\n" + Divider + "\nHeartbeat streak alerts and daily digest are enabled."
	}
	return "🔕 ALERTS: OFF\n" + Divider + "\nHeartbeat streak alerts and daily digest are disabled."
}

// RecentCall is one entry in the recent-calls section of a profile.
type RecentCall struct {
	Symbol  string
	Address string
	Date    time.Time
	PeakX   float64
	NowX    float64
}

// ProfileText renders a claimant's profile card.
func ProfileText(name string, sum metrics.Summary, rug metrics.RugSummary, recent []RecentCall) string {
	winPct := sum.WinRate * 100
	lines := []string{
		fmt.Sprintf("👤 %s  %s", name, StarsFromPct(winPct)),
		Divider,
		fmt.Sprintf("📞 Calls: %d", sum.Calls),
		fmt.Sprintf("📈 Avg: %s | 🔥 Best: %s", FormatReturn(1+sum.AvgNow), FormatReturn(sum.BestX)),
		fmt.Sprintf("🎯 Hit Rate %.1fx: %.1f%%", metrics.DefaultWinMultiple, winPct),
		fmt.Sprintf("🩸 Rug Calls: %.1f%% (%d/%d)", rug.RatePct, rug.Rugs, rug.Eligible),
		"🏅 Badges: " + badgeLine(sum.Badges),
		"",
		"📚 Recent 5 Calls",
		Divider,
	}
	for _, c := range recent {
		lines = append(lines,
			fmt.Sprintf("• %s (%s)\n   📈 ATH: %s | 💰 Now: %s\n   %s",
				TokenLabel(c.Symbol, c.Address),
				c.Date.Format("2006-01-02"),
				FormatReturn(c.PeakX),
				FormatReturn(c.NowX),
				c.Address),
			Divider,
		)
	}
	return strings.Join(lines, "\n")
}

// ScoreText renders the caller's own performance card.
func ScoreText(sum metrics.Summary, score float64) string {
	winPct := sum.WinRate * 100
	return strings.Join([]string{
		fmt.Sprintf("📈 Your Performance  %s", StarsFromPct(winPct)),
		Divider,
		fmt.Sprintf("📞 Calls: %d", sum.Calls),
		fmt.Sprintf("📈 Avg: %s | 🔥 Best: %s", FormatReturn(1+sum.AvgNow), FormatReturn(sum.BestX)),
		fmt.Sprintf("🎯 Hit Rate %.1fx: %.1f%%", metrics.DefaultWinMultiple, winPct),
		fmt.Sprintf("⭐ Score: %.1f/100", score),
		"🏅 Badges: " + badgeLine(sum.Badges),
	}, "\n")
}

// GroupStatsText renders the group performance card.
func GroupStatsText(windowLabel string, callers, calls int, sum metrics.Summary, best *ranking.BestWin) string {
	bestText := "N/A"
	bestBy := "   └ By N/A"
	if best != nil {
		bestText = FormatReturn(best.X)
		bestBy = fmt.Sprintf("   └ By %s (%s)\n   %s",
			best.Caller, TokenLabel(best.Symbol, best.Address), best.Address)
	}
	return strings.Join([]string{
		fmt.Sprintf("📊 Group Performance (%s)", strings.ToUpper(windowLabel)),
		Divider,
		fmt.Sprintf("👥 Callers: %d | 📞 Calls: %d", callers, calls),
		fmt.Sprintf("🎯 Hit Rate %.1fx: %.1f%%", metrics.DefaultWinMultiple, sum.WinRate*100),
		"📈 Group Avg: " + FormatReturn(1+sum.AvgNow),
		"🔥 Best Call: " + bestText,
		bestBy,
	}, "\n")
}

// GroupChartCaption renders the caption under the group mini chart.
func GroupChartCaption(windowLabel string, sum metrics.Summary) string {
	return strings.Join([]string{
		fmt.Sprintf("📊 GROUP MINI CHART (%s)", strings.ToUpper(windowLabel)),
		Divider,
		fmt.Sprintf("🎯 Win Rate: %.1f%%", sum.WinRate*100),
		fmt.Sprintf("💹 Profitable: %.1f%%", sum.ProfitableRate*100),
		"📈 Avg: " + FormatReturn(1+sum.AvgNow),
	}, "\n")
}

// CallerChartCaption renders the caption under a caller mini chart.
func CallerChartCaption(name string, sum metrics.Summary) string {
	return strings.Join([]string{
		"📊 CALLER MINI CHART",
		Divider,
		"👤 " + name,
		fmt.Sprintf("🎯 Win Rate: %.1f%%", sum.WinRate*100),
		fmt.Sprintf("💹 Profitable: %.1f%%", sum.ProfitableRate*100),
		fmt.Sprintf("📈 Avg: %s | 🔥 Best: %s", FormatReturn(1+sum.AvgNow), FormatReturn(sum.BestX)),
	}, "\n")
}

// AdminStatsData carries the aggregates behind the admin stats card.
type AdminStatsData struct {
	Accepted      int64
	Rejected      int64
	Delay         storage.DelayStats
	ReasonCounts  []ReasonCount
	Watchlist     []*domain.ClaimantProfile
	LowPerformers []ranking.Row
}

// ReasonCount is one row of the reject-reason histogram, most common first.
type ReasonCount struct {
	Reason domain.RejectReason
	Count  int64
}

// AdminStatsText renders the admin statistics card.
func AdminStatsText(d AdminStatsData) string {
	total := d.Accepted + d.Rejected
	acceptance := 0.0
	if total > 0 {
		acceptance = float64(d.Accepted) / float64(total) * 100
	}

	lines := []string{
		"🛡️ Admin Panel",
		Divider,
		fmt.Sprintf("✅ Accepted: %d | ❌ Rejected: %d", d.Accepted, d.Rejected),
		fmt.Sprintf("🎯 Acceptance: %.1f%%", acceptance),
		fmt.Sprintf("⏱ Delay avg/max: %.1fs / %ds", d.Delay.AvgSeconds, d.Delay.MaxSeconds),
		"",
		"🚫 Reject Reasons",
		Divider,
	}
	if len(d.ReasonCounts) == 0 {
		lines = append(lines, "- None")
	}
	for i, rc := range d.ReasonCounts {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %d", rc.Reason, rc.Count))
	}

	lines = append(lines, "", "🕵️ Spam Watchlist", Divider)
	listed := 0
	for _, p := range d.Watchlist {
		if p.RejectedCalls == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: rejected %d, accepted %d",
			p.DisplayName, p.RejectedCalls, p.AcceptedCalls))
		listed++
	}
	if listed == 0 {
		lines = append(lines, "- None")
	}

	lines = append(lines, "", "📉 Low Performers (>=3 calls)", Divider)
	if len(d.LowPerformers) == 0 {
		lines = append(lines, "- None")
	}
	for i, row := range d.LowPerformers {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: win %.1f%%, avg %s, calls %d",
			row.Name, row.WinRatePct, FormatReturn(row.AvgNowX), row.Calls))
	}

	return strings.Join(lines, "\n")
}

// AdminPanelText renders the admin test panel header.
func AdminPanelText() string {
	return "🛠️ ADMIN TEST PANEL\n" + Divider + "\nTrigger streaks, digest, and chart events safely."
}

func badgeLine(badges []string) string {
	if len(badges) == 0 {
		return "None"
	}
	return strings.Join(badges, ", ")
}
