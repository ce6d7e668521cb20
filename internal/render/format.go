// Package render turns derived data into chat-ready text, buttons and chart
// URLs. Everything here is pure formatting; no store or network access.
package render

import (
	"fmt"
	"math"
	"strings"
)

// FormatReturn renders a multiple as "2.31x" at or above 2x, otherwise as a
// signed percentage. Values within rounding distance of breakeven render as
// "0.0%" rather than "-0.0%".
func FormatReturn(x float64) string {
	if x >= 2.0 {
		return fmt.Sprintf("%.2fx", x)
	}
	pct := (x - 1.0) * 100.0
	if math.Abs(pct) < 0.05 {
		pct = 0.0
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// ShortAddress abbreviates a long identifier to its first six and last four
// characters.
func ShortAddress(addr string) string {
	if addr == "" {
		return "N/A"
	}
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// TokenLabel prefers the ticker symbol and falls back to the short identifier.
func TokenLabel(symbol, addr string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol != "" {
		return "$" + strings.ToUpper(symbol)
	}
	return ShortAddress(addr)
}

// RankBadge renders a rank as a medal for the podium, a keycap digit for
// ranks 4-10, and a plain ordinal beyond that.
func RankBadge(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	if rank >= 4 && rank <= 10 {
		return fmt.Sprintf("%d️⃣", rank)
	}
	return fmt.Sprintf("%d.", rank)
}

// StarsFromPct renders a 0-100 percentage as a five-star bar.
func StarsFromPct(pct float64) string {
	filled := int(math.Round(pct / 20.0))
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// StarsFromRank renders stars for podium-adjacent ranks, empty beyond rank 5.
func StarsFromRank(rank int) string {
	if rank <= 0 {
		return ""
	}
	filled := 6 - rank
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("★", filled)
}
