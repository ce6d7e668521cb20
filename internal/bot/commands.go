package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
	"github.com/DeanCryptoo/YabaiBot/internal/render"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

const profileCaptionLimit = 1000

// Leaderboard posts page zero of a ranking and opens a pagination session
// keyed by the posted message. Top rankings attempt a spotlight photo of the
// leading claimant; Bottom rankings are always plain text.
func (b *Bot) Leaderboard(ctx context.Context, groupID int64, windowArg string, dir ranking.Direction) error {
	window := domain.ParseTimeWindow(windowArg)
	board, err := b.rankings.Board(ctx, groupID, window, dir)
	if err != nil {
		return fmt.Errorf("rankings: %w", err)
	}
	if board.BestWin == nil {
		return b.reply(ctx, groupID, fmt.Sprintf("No data for %s in this group", window.Label))
	}
	if len(board.Rows) == 0 {
		return b.reply(ctx, groupID,
			fmt.Sprintf("No one has reached the minimum %d calls to be ranked", ranking.MinCalls))
	}

	title := fmt.Sprintf("Yabai Callers (%s)", window.Label)
	if dir == ranking.Bottom {
		title = fmt.Sprintf("Wall of Shame (%s)", window.Label)
	}
	bestWinLine := render.BestWinLine(board.BestWin)

	imageMode := false
	var messageID int64
	if dir == ranking.Top {
		top := board.Rows[0]
		page := render.LeaderboardPage(board.Rows, title, bestWinLine, true, 0)
		messageID, err = b.sender.SendPhoto(ctx, messaging.Message{
			GroupID:  groupID,
			PhotoURL: render.PerformanceChartURL(top.Name+" Spotlight", top.WinRatePct, top.ProfitableRatePct, top.AvgNowX),
			Text:     page.Text,
			Buttons:  page.Buttons,
		})
		if err == nil {
			imageMode = true
		}
	}
	if !imageMode {
		page := render.LeaderboardPage(board.Rows, title, bestWinLine, false, 0)
		messageID, err = b.sender.SendText(ctx, messaging.Message{
			GroupID: groupID,
			Text:    page.Text,
			Buttons: page.Buttons,
		})
		if err != nil {
			return fmt.Errorf("send leaderboard: %w", err)
		}
	}

	b.sessions.Put(ranking.Session{
		GroupID:   groupID,
		MessageID: messageID,
		Window:    window,
		Direction: dir,
		Title:     title,
		BestWin:   bestWinLine,
		ImageMode: imageMode,
	})
	observability.UpdateSessionsLive(b.sessions.Len())
	return nil
}

// Paginate re-renders the requested page of a posted leaderboard. Expired or
// evicted sessions get an in-place expiry notice instead of a new board.
func (b *Bot) Paginate(ctx context.Context, groupID, messageID int64, page int) error {
	sess, err := b.sessions.Get(groupID, messageID)
	if err != nil {
		if errors.Is(err, ranking.ErrSessionExpired) {
			observability.RecordSessionExpired()
			observability.UpdateSessionsLive(b.sessions.Len())
			return b.sender.EditText(ctx, groupID, messageID, "Data expired. Run the command again.", nil)
		}
		return err
	}

	board, err := b.rankings.Board(ctx, sess.GroupID, sess.Window, sess.Direction)
	if err != nil {
		return fmt.Errorf("rankings: %w", err)
	}
	rendered := render.LeaderboardPage(board.Rows, sess.Title, sess.BestWin, sess.ImageMode, page)
	if sess.ImageMode {
		return b.sender.EditCaption(ctx, groupID, messageID, rendered.Text, rendered.Buttons)
	}
	return b.sender.EditText(ctx, groupID, messageID, rendered.Text, rendered.Buttons)
}

// CallerProfile posts the profile card for a claimant matched by display
// name or handle, preferring a photo reply when a profile photo exists.
func (b *Bot) CallerProfile(ctx context.Context, groupID int64, target string) error {
	target = strings.TrimSpace(strings.ReplaceAll(target, "@", ""))
	if target == "" {
		return b.reply(ctx, groupID, "Provide a name or @username. Example: /caller John")
	}

	all, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID})
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	var calls []*domain.CallRecord
	for _, c := range all {
		if strings.EqualFold(c.ClaimantName, target) || strings.EqualFold(c.ClaimantHandle, target) {
			calls = append(calls, c)
		}
	}
	if len(calls) == 0 {
		return b.reply(ctx, groupID, fmt.Sprintf("No calls found for '%s' in this group", target))
	}

	if err := b.refresher.Refresh(ctx, calls); err != nil {
		return fmt.Errorf("refresh calls: %w", err)
	}
	sum := metrics.Derive(calls)
	rug := metrics.DeriveRugStats(calls, b.now())

	var recent []render.RecentCall
	for _, c := range calls {
		if len(recent) == 5 {
			break
		}
		if c.InitialVal <= 0 {
			continue
		}
		recent = append(recent, render.RecentCall{
			Symbol:  c.Symbol,
			Address: c.Address,
			Date:    c.SubmittedAt,
			PeakX:   c.PeakVal / c.InitialVal,
			NowX:    c.CurrentVal / c.InitialVal,
		})
	}

	name := calls[0].ClaimantName
	callerID := calls[0].ClaimantID
	text := render.ProfileText(name, sum, rug, recent)

	var buttons [][]messaging.Button
	if callerID != nil {
		buttons = [][]messaging.Button{{{
			Label: "📊 Mini Chart",
			Data:  domain.CallbackAction{Kind: domain.CallbackCallerChart, CallerID: *callerID}.Encode(),
		}}}
	}

	if callerID != nil && len(text) <= profileCaptionLimit {
		photo, err := b.sender.ProfilePhoto(ctx, *callerID)
		if err == nil && len(photo) > 0 {
			_, err = b.sender.SendPhoto(ctx, messaging.Message{
				GroupID: groupID,
				Photo:   photo,
				Text:    text,
				Buttons: buttons,
			})
			if err == nil {
				return nil
			}
		}
	}
	_, err = b.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: text, Buttons: buttons})
	return err
}

// MyScore posts the requesting claimant's own performance card.
func (b *Bot) MyScore(ctx context.Context, groupID, claimantID int64) error {
	calls, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, ClaimantID: &claimantID})
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	if len(calls) == 0 {
		return b.reply(ctx, groupID, "You do not have tracked calls yet.")
	}
	if err := b.refresher.Refresh(ctx, calls); err != nil {
		return fmt.Errorf("refresh calls: %w", err)
	}

	sum := metrics.Derive(calls)
	penalty := 0.0
	profile, err := b.profiles.Get(ctx, groupID, claimantID)
	switch {
	case err == nil:
		penalty = profile.ReputationPenalty()
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("load profile: %w", err)
	}
	score := max(0, sum.Reputation-penalty)
	return b.reply(ctx, groupID, render.ScoreText(sum, score))
}

// GroupStats posts the group performance card with a mini-chart button,
// preferring a chart photo and falling back to plain text.
func (b *Bot) GroupStats(ctx context.Context, groupID int64, windowArg string) error {
	window := domain.ParseTimeWindow(windowArg)
	calls, err := b.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, Since: window.Cutoff})
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	if len(calls) == 0 {
		return b.reply(ctx, groupID, fmt.Sprintf("No calls tracked in this group for %s", window.Label))
	}
	if err := b.refresher.Refresh(ctx, calls); err != nil {
		return fmt.Errorf("refresh calls: %w", err)
	}

	sum := metrics.Derive(calls)
	callers := map[string]struct{}{}
	for _, c := range calls {
		callers[c.ClaimantKey()] = struct{}{}
	}

	text := render.GroupStatsText(window.Label, len(callers), len(calls), sum, ranking.BestOf(calls))
	buttons := [][]messaging.Button{{{
		Label: "📊 Mini Chart",
		Data:  domain.CallbackAction{Kind: domain.CallbackGroupChart}.Encode(),
	}}}

	_, err = b.sender.SendPhoto(ctx, messaging.Message{
		GroupID: groupID,
		PhotoURL: render.PerformanceChartURL(
			fmt.Sprintf("Group Performance (%s)", window.Label),
			sum.WinRate*100, sum.ProfitableRate*100, 1+sum.AvgNow),
		Text:    text,
		Buttons: buttons,
	})
	if err != nil {
		_, err = b.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: text, Buttons: buttons})
	}
	return err
}
