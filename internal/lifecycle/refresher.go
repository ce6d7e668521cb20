package lifecycle

import (
	"context"
	"fmt"
	"math"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/marketdata"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// Refresher re-resolves valuations for a batch of call records and persists
// the refreshed current/peak/symbol fields. Every read path that shows
// live multiples (rankings, profiles, streaks, digests) runs records
// through it first.
type Refresher struct {
	calls  storage.CallStore
	market *marketdata.Cache
}

// NewRefresher creates a Refresher.
func NewRefresher(calls storage.CallStore, market *marketdata.Cache) *Refresher {
	return &Refresher{calls: calls, market: market}
}

// Refresh updates the given records in place and persists the changes.
// Identifiers the market cannot resolve keep their stored values; peak only
// ever moves up.
func (r *Refresher) Refresh(ctx context.Context, records []*domain.CallRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	var ids []string
	for _, rec := range records {
		if rec.AddressNorm == "" {
			continue
		}
		if _, ok := seen[rec.AddressNorm]; !ok {
			seen[rec.AddressNorm] = struct{}{}
			ids = append(ids, rec.AddressNorm)
		}
	}

	quotes := r.market.Lookup(ctx, ids)

	var updates []storage.MarketUpdate
	for _, rec := range records {
		quote, ok := quotes[rec.AddressNorm]
		if !ok || quote.Valuation <= 0 {
			continue
		}
		rec.CurrentVal = quote.Valuation
		rec.PeakVal = math.Max(rec.PeakVal, quote.Valuation)
		rec.Volume24h = quote.Volume24h
		if quote.Symbol != "" {
			rec.Symbol = quote.Symbol
		}
		updates = append(updates, storage.MarketUpdate{
			CallID:    rec.CallID,
			Current:   rec.CurrentVal,
			Peak:      rec.PeakVal,
			Volume24h: rec.Volume24h,
			Symbol:    quote.Symbol,
		})
	}

	if len(updates) == 0 {
		return nil
	}
	if err := r.calls.UpdateMarket(ctx, updates); err != nil {
		return fmt.Errorf("persist refreshed valuations: %w", err)
	}
	return nil
}
