// Package admission validates and records incoming claims. The pipeline is
// strictly ordered and stops at the first matching rejection; a claim whose
// valuation cannot be resolved is dropped without a record, which is distinct
// from an explicit rejection.
package admission

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/marketdata"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// Default admission policy values.
const (
	DefaultMaxDelay  = 120 * time.Second
	DefaultMinVolume = 1000.0
)

// Controller runs the admission pipeline for inbound claim batches.
type Controller struct {
	calls    storage.CallStore
	archive  storage.ArchiveStore
	profiles storage.ProfileStore
	market   *marketdata.Cache

	maxDelay  time.Duration
	minVolume float64
	logger    *log.Logger
	now       func() time.Time
}

// Options for creating a Controller.
type Options struct {
	Calls    storage.CallStore
	Archive  storage.ArchiveStore
	Profiles storage.ProfileStore
	Market   *marketdata.Cache

	MaxDelay  time.Duration // 0 means DefaultMaxDelay
	MinVolume float64       // 0 means DefaultMinVolume
	Logger    *log.Logger
	Now       func() time.Time
}

// New creates a Controller.
func New(opts Options) *Controller {
	c := &Controller{
		calls:     opts.Calls,
		archive:   opts.Archive,
		profiles:  opts.Profiles,
		market:    opts.Market,
		maxDelay:  opts.MaxDelay,
		minVolume: opts.MinVolume,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if c.maxDelay == 0 {
		c.maxDelay = DefaultMaxDelay
	}
	if c.minVolume == 0 {
		c.minVolume = DefaultMinVolume
	}
	if c.logger == nil {
		c.logger = log.New(os.Stdout, "[admission] ", log.LstdFlags)
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Submission is one inbound message batch to admit.
type Submission struct {
	GroupID        int64
	Text           string
	ClaimantID     int64
	ClaimantName   string
	ClaimantHandle string
	MessageID      int64
	MessageTime    time.Time
	Edited         bool
}

// Result reports what the pipeline did with each extracted identifier.
type Result struct {
	Accepted []*domain.CallRecord
	Rejected []*domain.CallRecord
	Dropped  []string // unresolved identifiers, no record written
	Bumped   int      // existing records whose peak was bumped or flag cleared
}

// Submit extracts identifiers from the message and runs each through the
// validation pipeline. Before any per-identifier validation, existing records
// that share a mentioned identifier get their peak bumped and, if stashed,
// are reactivated, regardless of how the mention itself is judged.
func (c *Controller) Submit(ctx context.Context, sub Submission) (*Result, error) {
	result := &Result{}

	addrs := ExtractAddresses(sub.Text)
	if len(addrs) == 0 {
		return result, nil
	}

	now := c.now()
	quotes := c.market.Lookup(ctx, addrs)

	bumped, err := c.bumpExisting(ctx, sub.GroupID, addrs, quotes)
	if err != nil {
		return nil, fmt.Errorf("bump existing records: %w", err)
	}
	result.Bumped = bumped

	delay := int64(0)
	if d := now.Sub(sub.MessageTime); d > 0 {
		delay = int64(d.Seconds())
	}

	for _, addr := range addrs {
		reason, err := c.judge(ctx, sub, addr, now.Sub(sub.MessageTime))
		if err != nil {
			return nil, err
		}

		if reason != "" {
			rec, err := c.recordRejection(ctx, sub, addr, reason, now, delay)
			if err != nil {
				return nil, err
			}
			result.Rejected = append(result.Rejected, rec)
			continue
		}

		quote, ok := quotes[addr]
		if !ok || quote.Valuation <= 0 {
			result.Dropped = append(result.Dropped, addr)
			continue
		}

		rec, err := c.recordAcceptance(ctx, sub, addr, quote, now, delay)
		if err != nil {
			return nil, err
		}
		result.Accepted = append(result.Accepted, rec)
	}

	rejectedByReason := make(map[string]int, len(result.Rejected))
	for _, rec := range result.Rejected {
		rejectedByReason[rec.RejectReason.String()]++
	}
	observability.RecordAdmission(len(result.Accepted), len(result.Dropped), result.Bumped, rejectedByReason)
	for range result.Accepted {
		observability.RecordIngestDelay(float64(delay))
	}

	return result, nil
}

// judge runs the ordered rejection checks; empty reason means pass.
func (c *Controller) judge(ctx context.Context, sub Submission, addr string, delay time.Duration) (domain.RejectReason, error) {
	if sub.Edited {
		return domain.RejectEditedMessage, nil
	}
	if delay > c.maxDelay {
		return domain.RejectLateSubmission, nil
	}

	exists, err := c.calls.AcceptedExists(ctx, sub.GroupID, addr)
	if err != nil {
		return "", fmt.Errorf("duplicate check (hot): %w", err)
	}
	if !exists {
		exists, err = c.archive.Exists(ctx, sub.GroupID, addr)
		if err != nil {
			return "", fmt.Errorf("duplicate check (archive): %w", err)
		}
	}
	if exists {
		return domain.RejectDuplicateCA, nil
	}
	return "", nil
}

func (c *Controller) recordAcceptance(ctx context.Context, sub Submission, addr string, quote domain.MarketQuote, now time.Time, delay int64) (*domain.CallRecord, error) {
	claimantID := sub.ClaimantID
	rec := &domain.CallRecord{
		CallID:         uuid.NewString(),
		GroupID:        sub.GroupID,
		Address:        addr,
		AddressNorm:    addr,
		Status:         domain.CallAccepted,
		ClaimantID:     &claimantID,
		ClaimantName:   sub.ClaimantName,
		ClaimantHandle: sub.ClaimantHandle,
		MessageID:      sub.MessageID,
		MessageTime:    sub.MessageTime,
		SubmittedAt:    now,
		IngestDelaySec: delay,
		InitialVal:     quote.Valuation,
		CurrentVal:     quote.Valuation,
		PeakVal:        quote.Valuation,
		Volume24h:      quote.Volume24h,
		Symbol:         quote.Symbol,
	}

	// Immediate low-liquidity policy: thin tokens start cold.
	if quote.Volume24h < c.minVolume {
		rec.Stashed = true
		rec.StashReason = domain.StashLowVolume
		rec.StashedAt = now
	}

	if err := c.calls.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert accepted call: %w", err)
	}

	err := c.profiles.ApplyAdmission(ctx, storage.AdmissionEvent{
		GroupID:     sub.GroupID,
		ClaimantID:  sub.ClaimantID,
		DisplayName: sub.ClaimantName,
		Handle:      sub.ClaimantHandle,
		Status:      domain.CallAccepted,
		At:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return rec, nil
}

func (c *Controller) recordRejection(ctx context.Context, sub Submission, addr string, reason domain.RejectReason, now time.Time, delay int64) (*domain.CallRecord, error) {
	claimantID := sub.ClaimantID
	rec := &domain.CallRecord{
		CallID:         uuid.NewString(),
		GroupID:        sub.GroupID,
		Address:        addr,
		AddressNorm:    addr,
		Status:         domain.CallRejected,
		RejectReason:   reason,
		ClaimantID:     &claimantID,
		ClaimantName:   sub.ClaimantName,
		ClaimantHandle: sub.ClaimantHandle,
		MessageID:      sub.MessageID,
		MessageTime:    sub.MessageTime,
		SubmittedAt:    now,
		IngestDelaySec: delay,
	}

	if err := c.calls.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert rejected call: %w", err)
	}

	err := c.profiles.ApplyAdmission(ctx, storage.AdmissionEvent{
		GroupID:     sub.GroupID,
		ClaimantID:  sub.ClaimantID,
		DisplayName: sub.ClaimantName,
		Handle:      sub.ClaimantHandle,
		Status:      domain.CallRejected,
		Reason:      reason,
		At:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return rec, nil
}

// bumpExisting applies the proactive lifecycle hook: for every mentioned
// identifier with a fresh quote, existing accepted records get
// peak = max(peak, fresh valuation) and stashed ones come back hot.
func (c *Controller) bumpExisting(ctx context.Context, groupID int64, addrs []string, quotes map[string]domain.MarketQuote) (int, error) {
	var updates []storage.MarketUpdate
	var reactivate []string

	for _, addr := range addrs {
		quote, ok := quotes[addr]
		if !ok || quote.Valuation <= 0 {
			continue
		}

		existing, err := c.calls.GetByAddress(ctx, groupID, addr)
		if err != nil {
			return 0, err
		}
		for _, rec := range existing {
			if rec.Status != domain.CallAccepted {
				continue
			}
			updates = append(updates, storage.MarketUpdate{
				CallID:    rec.CallID,
				Current:   quote.Valuation,
				Peak:      math.Max(rec.PeakVal, quote.Valuation),
				Volume24h: quote.Volume24h,
				Symbol:    quote.Symbol,
			})
			if rec.Stashed {
				reactivate = append(reactivate, rec.CallID)
			}
		}
	}

	if len(updates) > 0 {
		if err := c.calls.UpdateMarket(ctx, updates); err != nil {
			return 0, err
		}
	}
	if len(reactivate) > 0 {
		if err := c.calls.ClearStashed(ctx, reactivate); err != nil {
			return 0, err
		}
		c.logger.Printf("reactivated %d stashed records in group %d", len(reactivate), groupID)
	}
	return len(updates), nil
}
