// Package ranking aggregates call records into leaderboard rows. Rows are
// recomputed from the store on every request; only lightweight pagination
// sessions are cached so button presses can re-run the same query.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// MinCalls is the minimum number of accepted calls required to be ranked.
const MinCalls = 1

// Direction selects which end of the board a query returns.
type Direction int

const (
	Top Direction = iota
	Bottom
)

// Row is one ranked claimant.
type Row struct {
	Key               string // claimant grouping key
	CallerID          *int64
	Name              string
	Calls             int
	AvgNowX           float64 // 1 + mean current return
	AvgPeakX          float64 // 1 + mean peak return
	BestX             float64
	WinRatePct        float64
	ProfitableRatePct float64
	Score             float64 // reputation minus penalty, floored at 0
}

// BestWin describes the single best call of the queried set.
type BestWin struct {
	X       float64
	Caller  string
	Symbol  string
	Address string
}

// Board is the result of one leaderboard query.
type Board struct {
	Rows    []Row
	BestWin *BestWin // nil when the set is empty
}

// Service runs leaderboard queries against the hot tier.
type Service struct {
	calls     storage.CallStore
	profiles  storage.ProfileStore
	refresher *lifecycle.Refresher
}

// NewService creates a Service.
func NewService(calls storage.CallStore, profiles storage.ProfileStore, refresher *lifecycle.Refresher) *Service {
	return &Service{calls: calls, profiles: profiles, refresher: refresher}
}

// Board computes ranked rows for the group within the window. Valuations are
// refreshed before aggregation so rankings always reflect live data.
func (s *Service) Board(ctx context.Context, groupID int64, window domain.TimeWindow, dir Direction) (*Board, error) {
	observability.RecordLeaderboardQuery()

	calls, err := s.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, Since: window.Cutoff})
	if err != nil {
		return nil, fmt.Errorf("load group %d calls: %w", groupID, err)
	}
	if len(calls) == 0 {
		return &Board{}, nil
	}
	if err := s.refresher.Refresh(ctx, calls); err != nil {
		return nil, err
	}

	board := &Board{BestWin: BestOf(calls)}

	byKey := make(map[string][]*domain.CallRecord)
	var order []string
	for _, c := range calls {
		key := c.ClaimantKey()
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], c)
	}

	for _, key := range order {
		set := byKey[key]
		sum := metrics.Derive(set)
		if sum.Calls < MinCalls {
			continue
		}

		penalty := 0.0
		first := set[0]
		if first.ClaimantID != nil {
			p, err := s.profiles.Get(ctx, groupID, *first.ClaimantID)
			switch {
			case err == nil:
				penalty = p.ReputationPenalty()
			case !errors.Is(err, storage.ErrNotFound):
				return nil, fmt.Errorf("load profile for %s: %w", key, err)
			}
		}

		board.Rows = append(board.Rows, Row{
			Key:               key,
			CallerID:          first.ClaimantID,
			Name:              first.ClaimantName,
			Calls:             sum.Calls,
			AvgNowX:           1.0 + sum.AvgNow,
			AvgPeakX:          1.0 + sum.AvgPeak,
			BestX:             sum.BestX,
			WinRatePct:        sum.WinRate * 100,
			ProfitableRatePct: sum.ProfitableRate * 100,
			Score:             max(0, sum.Reputation-penalty),
		})
	}

	sortRows(board.Rows, dir)
	return board, nil
}

// sortRows orders rows by the shared key: average current multiple, best
// multiple, win rate, call count. Top is descending, Bottom the exact
// ascending mirror, so the two boards always agree on relative order.
func sortRows(rows []Row, dir Direction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if dir == Bottom {
			a, b = b, a
		}
		if a.AvgNowX != b.AvgNowX {
			return a.AvgNowX > b.AvgNowX
		}
		if a.BestX != b.BestX {
			return a.BestX > b.BestX
		}
		if a.WinRatePct != b.WinRatePct {
			return a.WinRatePct > b.WinRatePct
		}
		return a.Calls > b.Calls
	})
}

// BestOf returns the single best call of the set by peak multiple, or nil
// when no call has a positive initial valuation.
func BestOf(calls []*domain.CallRecord) *BestWin {
	var best *domain.CallRecord
	bestX := 0.0
	for _, c := range calls {
		if c.InitialVal <= 0 {
			continue
		}
		x := max(c.PeakVal, c.CurrentVal) / c.InitialVal
		if best == nil || x > bestX {
			best, bestX = c, x
		}
	}
	if best == nil {
		return nil
	}
	return &BestWin{X: bestX, Caller: best.ClaimantName, Symbol: best.Symbol, Address: best.Address}
}
