package bot

import (
	"context"
	"fmt"
	"sort"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
	"github.com/DeanCryptoo/YabaiBot/internal/render"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

const (
	lowPerformerMinCalls = 3
	topCallerMinCalls    = 2
	topCallerWindowArg   = "7d"
)

// AdminStats posts the moderation card: admission counters, ingest delay,
// reject reasons, the spam watchlist and the weakest performers. Admin only.
func (b *Bot) AdminStats(ctx context.Context, groupID, claimantID int64) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}

	accepted, rejected, err := b.calls.CountByStatus(ctx, groupID)
	if err != nil {
		return fmt.Errorf("count calls: %w", err)
	}
	reasons, err := b.calls.RejectReasonCounts(ctx, groupID)
	if err != nil {
		return fmt.Errorf("reject reasons: %w", err)
	}
	delay, err := b.calls.IngestDelayStats(ctx, groupID)
	if err != nil {
		return fmt.Errorf("delay stats: %w", err)
	}
	watchlist, err := b.profiles.TopRejected(ctx, groupID, 5)
	if err != nil {
		return fmt.Errorf("watchlist: %w", err)
	}
	low, err := b.lowPerformers(ctx, groupID)
	if err != nil {
		return err
	}

	reasonRows := make([]render.ReasonCount, 0, len(reasons))
	for reason, count := range reasons {
		reasonRows = append(reasonRows, render.ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(reasonRows, func(i, j int) bool {
		if reasonRows[i].Count != reasonRows[j].Count {
			return reasonRows[i].Count > reasonRows[j].Count
		}
		return reasonRows[i].Reason < reasonRows[j].Reason
	})

	return b.reply(ctx, groupID, render.AdminStatsText(render.AdminStatsData{
		Accepted:      accepted,
		Rejected:      rejected,
		Delay:         delay,
		ReasonCounts:  reasonRows,
		Watchlist:     watchlist,
		LowPerformers: low,
	}))
}

// lowPerformers ranks claimants with enough calls by ascending win rate,
// then ascending average multiple.
func (b *Bot) lowPerformers(ctx context.Context, groupID int64) ([]ranking.Row, error) {
	calls, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}

	byClaimant := map[string][]*domain.CallRecord{}
	var order []string
	for _, c := range calls {
		key := c.ClaimantKey()
		if _, seen := byClaimant[key]; !seen {
			order = append(order, key)
		}
		byClaimant[key] = append(byClaimant[key], c)
	}

	var rows []ranking.Row
	for _, key := range order {
		set := byClaimant[key]
		sum := metrics.Derive(set)
		if sum.Calls < lowPerformerMinCalls {
			continue
		}
		rows = append(rows, ranking.Row{
			Key:        key,
			Name:       set[0].ClaimantName,
			Calls:      sum.Calls,
			AvgNowX:    1 + sum.AvgNow,
			WinRatePct: sum.WinRate * 100,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WinRatePct != rows[j].WinRatePct {
			return rows[i].WinRatePct < rows[j].WinRatePct
		}
		return rows[i].AvgNowX < rows[j].AvgNowX
	})
	return rows, nil
}

// AdminPanel posts the manual-trigger panel. Admin only.
func (b *Bot) AdminPanel(ctx context.Context, groupID, claimantID int64) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}
	buttons := [][]messaging.Button{
		{
			{Label: "🔥 Test Streak Scan", Data: domain.CallbackAction{Kind: domain.CallbackAdminStreak}.Encode()},
			{Label: "📰 Test Daily Digest", Data: domain.CallbackAction{Kind: domain.CallbackAdminDigest}.Encode()},
		},
		{
			{Label: "📊 Group Mini Chart", Data: domain.CallbackAction{Kind: domain.CallbackAdminGroupChart}.Encode()},
			{Label: "🏆 Top Caller Chart", Data: domain.CallbackAction{Kind: domain.CallbackAdminTopCallerChart}.Encode()},
		},
	}
	_, err = b.sender.SendText(ctx, messaging.Message{
		GroupID: groupID,
		Text:    render.AdminPanelText(),
		Buttons: buttons,
	})
	return err
}

// TriggerStreakScan runs a manual streak scan and reports how many alerts
// it sent.
func (b *Bot) TriggerStreakScan(ctx context.Context, groupID int64) error {
	count, err := b.streaks.Scan(ctx, groupID, true)
	if err != nil {
		return fmt.Errorf("streak scan: %w", err)
	}
	return b.reply(ctx, groupID,
		fmt.Sprintf("🔥 STREAK TEST COMPLETE\n%s\nAlerts sent: %d", render.Divider, count))
}

// TriggerDigest sends the daily digest immediately, bypassing the hour and
// once-per-day gates.
func (b *Bot) TriggerDigest(ctx context.Context, groupID int64) error {
	if _, err := b.digests.Dispatch(ctx, groupID, true); err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	return b.reply(ctx, groupID,
		fmt.Sprintf("📰 DIGEST TEST COMPLETE\n%s\nDaily digest sent.", render.Divider))
}

// GroupMiniChart posts a chart of the group's recent performance.
func (b *Bot) GroupMiniChart(ctx context.Context, groupID int64, windowArg string) error {
	window := domain.ParseTimeWindow(windowArg)
	calls, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, Since: window.Cutoff})
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	if len(calls) == 0 {
		return b.reply(ctx, groupID, fmt.Sprintf("No data for %s to chart.", window.Label))
	}
	if err := b.refresher.Refresh(ctx, calls); err != nil {
		return fmt.Errorf("refresh calls: %w", err)
	}

	sum := metrics.Derive(calls)
	_, err = b.sender.SendPhoto(ctx, messaging.Message{
		GroupID: groupID,
		PhotoURL: render.PerformanceChartURL(
			fmt.Sprintf("Group Mini Chart (%s)", window.Label),
			sum.WinRate*100, sum.ProfitableRate*100, 1+sum.AvgNow),
		Text: render.GroupChartCaption(window.Label, sum),
	})
	return err
}

// CallerMiniChart posts a chart of one claimant's recent performance.
func (b *Bot) CallerMiniChart(ctx context.Context, groupID, callerID int64) error {
	calls, err := b.calls.RecentByClaimant(ctx, groupID, callerID, recentChartCalls)
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	if len(calls) == 0 {
		return b.reply(ctx, groupID, "No caller data found for chart.")
	}
	if err := b.refresher.Refresh(ctx, calls); err != nil {
		return fmt.Errorf("refresh calls: %w", err)
	}

	sum := metrics.Derive(calls)
	name := calls[0].ClaimantName
	if name == "" {
		name = fmt.Sprintf("User %d", callerID)
	}
	_, err = b.sender.SendPhoto(ctx, messaging.Message{
		GroupID: groupID,
		PhotoURL: render.PerformanceChartURL(
			name+" Mini Chart", sum.WinRate*100, sum.ProfitableRate*100, 1+sum.AvgNow),
		Text: render.CallerChartCaption(name, sum),
	})
	return err
}

// topCaller picks the strongest claimant of the last week by average current
// multiple plus half the win rate. Returns nil when nobody qualifies.
func (b *Bot) topCaller(ctx context.Context, groupID int64) (*int64, error) {
	window := domain.ParseTimeWindow(topCallerWindowArg)
	calls, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, Since: window.Cutoff})
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}

	byCaller := map[int64][]*domain.CallRecord{}
	for _, c := range calls {
		if c.ClaimantID == nil {
			continue
		}
		byCaller[*c.ClaimantID] = append(byCaller[*c.ClaimantID], c)
	}

	var (
		best      *int64
		bestScore float64
	)
	for id, set := range byCaller {
		sum := metrics.Derive(set)
		if sum.Calls < topCallerMinCalls {
			continue
		}
		score := (1 + sum.AvgNow) + sum.WinRate*0.5
		if best == nil || score > bestScore {
			id := id
			best, bestScore = &id, score
		}
	}
	return best, nil
}

// HandleCallback decodes a button press and dispatches it. Admin-gated
// actions check the pressing claimant's role before running.
func (b *Bot) HandleCallback(ctx context.Context, groupID, messageID, claimantID int64, data string) error {
	action, err := domain.DecodeCallback(data)
	if err != nil {
		b.logger.Printf("group %d: dropping callback %q: %v", groupID, data, err)
		return err
	}

	switch action.Kind {
	case domain.CallbackLeaderboardPage:
		return b.Paginate(ctx, groupID, messageID, action.Page)

	case domain.CallbackAdminStreak:
		ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only action")
		if err != nil || !ok {
			return err
		}
		return b.TriggerStreakScan(ctx, groupID)

	case domain.CallbackAdminDigest:
		ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only action")
		if err != nil || !ok {
			return err
		}
		return b.TriggerDigest(ctx, groupID)

	case domain.CallbackAdminGroupChart:
		ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only action")
		if err != nil || !ok {
			return err
		}
		return b.GroupMiniChart(ctx, groupID, topCallerWindowArg)

	case domain.CallbackAdminTopCallerChart:
		ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only action")
		if err != nil || !ok {
			return err
		}
		top, err := b.topCaller(ctx, groupID)
		if err != nil {
			return err
		}
		if top == nil {
			return b.reply(ctx, groupID, "No top caller found for chart.")
		}
		return b.CallerMiniChart(ctx, groupID, *top)

	case domain.CallbackGroupChart:
		return b.GroupMiniChart(ctx, groupID, topCallerWindowArg)

	case domain.CallbackCallerChart:
		return b.CallerMiniChart(ctx, groupID, action.CallerID)
	}
	return fmt.Errorf("unhandled callback kind %q", action.Kind)
}
