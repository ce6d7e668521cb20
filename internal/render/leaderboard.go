package render

import (
	"fmt"
	"strings"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
)

// Page sizes for leaderboard output. Photo captions have a hard length cap,
// so image mode shows fewer rows per page.
const (
	PageSizeText    = 10
	PageSizeCaption = 6

	captionLimit = 1020
)

// Divider separates sections in every rendered text block.
const Divider = "────────────────"

// Page is one rendered leaderboard page.
type Page struct {
	Text       string
	Buttons    [][]messaging.Button
	Number     int // zero-based, after clamping
	TotalPages int
}

// LeaderboardPage renders one page of ranked rows. An out-of-range page
// number clamps to the last page.
func LeaderboardPage(rows []ranking.Row, title, bestWin string, imageMode bool, page int) Page {
	perPage := PageSizeText
	if imageMode {
		perPage = PageSizeCaption
	}
	totalPages := (len(rows) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}

	start := page * perPage
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}

	if bestWin == "" {
		bestWin = "N/A"
	}
	lines := []string{
		"🏆 " + strings.ToUpper(title),
		fmt.Sprintf("📄 Page %d/%d", page+1, totalPages),
		"🔥 Best Win: " + bestWin,
		Divider,
	}
	for i, row := range rows[start:end] {
		rank := start + i + 1
		entry := RankBadge(rank) + " " + row.Name
		if stars := StarsFromRank(rank); stars != "" {
			entry += " " + stars
		}
		lines = append(lines,
			entry+"\n"+
				fmt.Sprintf("↳ 📈 Avg: %s | 🔥 Best: %s\n", FormatReturn(row.AvgNowX), FormatReturn(row.BestX))+
				fmt.Sprintf("↳ 🎯 Win: %.1f%% | 📞 Calls: %d", row.WinRatePct, row.Calls),
			Divider,
		)
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if imageMode && len(text) > captionLimit {
		text = text[:captionLimit-3] + "..."
	}

	var nav []messaging.Button
	if page > 0 {
		nav = append(nav, messaging.Button{
			Label: "Prev",
			Data:  domain.CallbackAction{Kind: domain.CallbackLeaderboardPage, Page: page - 1}.Encode(),
		})
	}
	if page < totalPages-1 {
		nav = append(nav, messaging.Button{
			Label: "Next",
			Data:  domain.CallbackAction{Kind: domain.CallbackLeaderboardPage, Page: page + 1}.Encode(),
		})
	}

	p := Page{Text: text, Number: page, TotalPages: totalPages}
	if len(nav) > 0 {
		p.Buttons = [][]messaging.Button{nav}
	}
	return p
}

// BestWinLine formats the best-win banner shown at the top of leaderboards.
func BestWinLine(w *ranking.BestWin) string {
	if w == nil {
		return "N/A"
	}
	return fmt.Sprintf("%s by %s (%s)", FormatReturn(w.X), w.Caller, TokenLabel(w.Symbol, w.Address))
}
