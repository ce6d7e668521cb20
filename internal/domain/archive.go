package domain

import "time"

// ArchivedCall is the reduced field set kept for a call after it leaves the
// hot tier. Corresponds to the archived_calls table in ClickHouse. Archived
// records still participate in duplicate checks but are never refreshed.
type ArchivedCall struct {
	CallID       string
	GroupID      int64
	AddressNorm  string
	ClaimantID   *int64
	ClaimantName string
	Symbol       string
	InitialVal   float64
	CurrentVal   float64 // last refreshed value before archiving
	PeakVal      float64
	SubmittedAt  time.Time
	StashedAt    time.Time
	ArchivedAt   time.Time
}

// Archive produces the archival projection of a hot call record.
func (c *CallRecord) Archive(now time.Time) *ArchivedCall {
	return &ArchivedCall{
		CallID:       c.CallID,
		GroupID:      c.GroupID,
		AddressNorm:  c.AddressNorm,
		ClaimantID:   c.ClaimantID,
		ClaimantName: c.ClaimantName,
		Symbol:       c.Symbol,
		InitialVal:   c.InitialVal,
		CurrentVal:   c.CurrentVal,
		PeakVal:      c.PeakVal,
		SubmittedAt:  c.SubmittedAt,
		StashedAt:    c.StashedAt,
		ArchivedAt:   now,
	}
}
