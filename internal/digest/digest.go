// Package digest assembles and dispatches the daily group summary.
// Automatic dispatch is gated to once per UTC day after a configured hour;
// manual triggers bypass every gate.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/render"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// Default dispatch policy values.
const (
	DefaultHourUTC = 12
	DefaultWindow  = 24 * time.Hour

	topCount     = 3
	worstCount   = 3
	mentionCount = 5
)

// Dispatcher builds and sends daily digests.
type Dispatcher struct {
	calls     storage.CallStore
	settings  storage.SettingStore
	refresher *lifecycle.Refresher
	sender    messaging.Sender

	hourUTC int
	window  time.Duration
	logger  *log.Logger
	now     func() time.Time
}

// Options for creating a Dispatcher.
type Options struct {
	Calls     storage.CallStore
	Settings  storage.SettingStore
	Refresher *lifecycle.Refresher
	Sender    messaging.Sender

	HourUTC int           // 0 means DefaultHourUTC
	Window  time.Duration // 0 means DefaultWindow
	Logger  *log.Logger
	Now     func() time.Time
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		calls:     opts.Calls,
		settings:  opts.Settings,
		refresher: opts.Refresher,
		sender:    opts.Sender,
		hourUTC:   opts.HourUTC,
		window:    opts.Window,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if d.hourUTC == 0 {
		d.hourUTC = DefaultHourUTC
	}
	if d.window == 0 {
		d.window = DefaultWindow
	}
	if d.logger == nil {
		d.logger = log.New(os.Stdout, "[digest] ", log.LstdFlags)
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Dispatch sends the digest if the gates allow it, returning whether a
// message went out. Automatic dispatch requires alerts enabled, the UTC hour
// at or past the configured threshold, and no digest sent today. The
// last-digest date is persisted only after a successful send.
func (d *Dispatcher) Dispatch(ctx context.Context, groupID int64, manual bool) (bool, error) {
	now := d.now().UTC()
	today := now.Format("2006-01-02")

	if !manual {
		setting, err := d.settings.Get(ctx, groupID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load group %d settings: %w", groupID, err)
		}
		if !setting.AlertsEnabled {
			return false, nil
		}
		if now.Hour() < d.hourUTC {
			return false, nil
		}
		if setting.LastDigestDate == today {
			return false, nil
		}
	}

	text, err := d.Build(ctx, groupID)
	if err != nil {
		return false, err
	}
	if _, err := d.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: text}); err != nil {
		return false, fmt.Errorf("send digest: %w", err)
	}
	if err := d.settings.SetLastDigestDate(ctx, groupID, today); err != nil {
		return false, fmt.Errorf("persist digest date: %w", err)
	}
	observability.RecordDigestSent()
	d.logger.Printf("group %d: digest sent", groupID)
	return true, nil
}

// Build assembles the digest text over the trailing window.
func (d *Dispatcher) Build(ctx context.Context, groupID int64) (string, error) {
	since := d.now().UTC().Add(-d.window)
	calls, err := d.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, Since: since})
	if err != nil {
		return "", fmt.Errorf("load group %d calls: %w", groupID, err)
	}
	if len(calls) == 0 {
		return "📰 DAILY INTEL DIGEST • 24H\n" + render.Divider + "\nNo accepted calls.", nil
	}
	if err := d.refresher.Refresh(ctx, calls); err != nil {
		return "", err
	}
	return buildText(calls), nil
}

type callerRow struct {
	name    string
	calls   int
	avgNowX float64
	bestX   float64
	winPct  float64
}

func buildText(calls []*domain.CallRecord) string {
	byKey := make(map[string][]*domain.CallRecord)
	var order []string
	for _, c := range calls {
		key := c.ClaimantKey()
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], c)
	}

	var rows []callerRow
	for _, key := range order {
		set := byKey[key]
		sum := metrics.Derive(set)
		if sum.Calls == 0 {
			continue
		}
		rows = append(rows, callerRow{
			name:    set[0].ClaimantName,
			calls:   sum.Calls,
			avgNowX: 1.0 + sum.AvgNow,
			bestX:   sum.BestX,
			winPct:  sum.WinRate * 100,
		})
	}

	top := append([]callerRow(nil), rows...)
	sort.SliceStable(top, func(i, j int) bool { return lessRow(top[j], top[i]) })
	worst := append([]callerRow(nil), rows...)
	sort.SliceStable(worst, func(i, j int) bool { return lessRow(worst[i], worst[j]) })

	lines := []string{
		"📰 DAILY INTEL DIGEST • 24H",
		render.Divider,
		fmt.Sprintf("📞 Calls: %d | 👥 Callers: %d", len(calls), len(rows)),
		"",
		"🏆 TOP CALLERS",
		render.Divider,
	}
	if len(top) == 0 {
		lines = append(lines, "- None")
	}
	for i, row := range top {
		if i == topCount {
			break
		}
		lines = append(lines,
			fmt.Sprintf("%s %s %s\n↳ Avg %s | Win %.1f%% | Calls %d",
				render.RankBadge(i+1), row.name, render.StarsFromPct(row.winPct),
				render.FormatReturn(row.avgNowX), row.winPct, row.calls))
	}

	lines = append(lines, "", "🧯 WORST CALLERS", render.Divider)
	if len(worst) == 0 {
		lines = append(lines, "- None")
	}
	for i, row := range worst {
		if i == worstCount {
			break
		}
		lines = append(lines,
			fmt.Sprintf("%d. %s\n↳ Avg %s | Win %.1f%% | Calls %d",
				i+1, row.name, render.FormatReturn(row.avgNowX), row.winPct, row.calls))
	}

	lines = append(lines, "", "⚡ HIGHLIGHTS", render.Divider)
	lines = append(lines, highlightLines(calls)...)

	lines = append(lines, "", "📣 MOST MENTIONED CAs", render.Divider)
	lines = append(lines, mentionLines(calls)...)

	return strings.Join(lines, "\n")
}

// lessRow is the shared ranking order: average current multiple, then best
// multiple, then win rate, then call count.
func lessRow(a, b callerRow) bool {
	if a.avgNowX != b.avgNowX {
		return a.avgNowX < b.avgNowX
	}
	if a.bestX != b.bestX {
		return a.bestX < b.bestX
	}
	if a.winPct != b.winPct {
		return a.winPct < b.winPct
	}
	return a.calls < b.calls
}

func highlightLines(calls []*domain.CallRecord) []string {
	var best, rug *domain.CallRecord
	bestX, rugX := 0.0, 0.0
	for _, c := range calls {
		if c.InitialVal <= 0 {
			continue
		}
		peakX := c.PeakVal / c.InitialVal
		nowX := c.CurrentVal / c.InitialVal
		if best == nil || peakX > bestX {
			best, bestX = c, peakX
		}
		if rug == nil || nowX < rugX {
			rug, rugX = c, nowX
		}
	}

	lines := make([]string, 0, 2)
	if best != nil {
		lines = append(lines, fmt.Sprintf("🔥 Best Call: %s by %s", render.FormatReturn(bestX), best.ClaimantName))
	} else {
		lines = append(lines, "🔥 Best Call: N/A")
	}
	if rug != nil {
		lines = append(lines, fmt.Sprintf("🩸 Worst Rug: %s by %s", render.FormatReturn(rugX), rug.ClaimantName))
	} else {
		lines = append(lines, "🩸 Worst Rug: N/A")
	}
	return lines
}

func mentionLines(calls []*domain.CallRecord) []string {
	type mention struct {
		count   int
		symbol  string
		address string
	}
	counts := make(map[string]*mention)
	var order []string
	for _, c := range calls {
		if c.AddressNorm == "" {
			continue
		}
		m, ok := counts[c.AddressNorm]
		if !ok {
			m = &mention{symbol: c.Symbol, address: c.Address}
			counts[c.AddressNorm] = m
			order = append(order, c.AddressNorm)
		}
		m.count++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]].count > counts[order[j]].count
	})

	if len(order) == 0 {
		return []string{"- None"}
	}
	var lines []string
	for i, key := range order {
		if i == mentionCount {
			break
		}
		m := counts[key]
		lines = append(lines, fmt.Sprintf("%d. %s • %d mentions", i+1, render.TokenLabel(m.symbol, m.address), m.count))
	}
	return lines
}
