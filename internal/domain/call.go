package domain

import (
	"strconv"
	"strings"
	"time"
)

// CallStatus represents the admission outcome recorded on a call.
type CallStatus string

const (
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
)

// String returns the string representation of CallStatus.
func (s CallStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s CallStatus) IsValid() bool {
	return s == CallAccepted || s == CallRejected
}

// RejectReason classifies why a call was rejected at admission.
type RejectReason string

const (
	RejectEditedMessage  RejectReason = "edited_message"
	RejectLateSubmission RejectReason = "late_submission"
	RejectDuplicateCA    RejectReason = "duplicate_ca"
)

// String returns the string representation of RejectReason.
func (r RejectReason) String() string {
	return string(r)
}

// IsValid checks if the reason is a valid value.
func (r RejectReason) IsValid() bool {
	return r == RejectEditedMessage || r == RejectLateSubmission || r == RejectDuplicateCA
}

// StashReason classifies why a call was moved to the cold tier.
type StashReason string

const (
	StashOlderCall StashReason = "older_call"
	StashLowVolume StashReason = "low_volume"
)

// String returns the string representation of StashReason.
func (r StashReason) String() string {
	return string(r)
}

// IsValid checks if the reason is a valid value.
func (r StashReason) IsValid() bool {
	return r == StashOlderCall || r == StashLowVolume
}

// CallRecord represents one admitted or rejected claim about an asset
// identifier. Corresponds to the calls table in PostgreSQL; stashed
// records with reason older_call eventually migrate to the archive.
type CallRecord struct {
	CallID         string       // PRIMARY KEY, uuid
	GroupID        int64        // owning chat group
	Address        string       // asset identifier as submitted
	AddressNorm    string       // case-folded identifier, dedup key
	Status         CallStatus   // accepted | rejected
	RejectReason   RejectReason // set only when Status == rejected
	ClaimantID     *int64       // stable claimant identity (nullable for legacy rows)
	ClaimantName   string       // display name at submission time
	ClaimantHandle string       // username without @ (may be empty)
	MessageID      int64        // chat message that carried the claim
	MessageTime    time.Time    // when the message was sent
	SubmittedAt    time.Time    // when admission processed it
	IngestDelaySec int64        // max(0, SubmittedAt - MessageTime) in seconds
	InitialVal     float64      // valuation at acceptance (> 0 for accepted)
	CurrentVal     float64      // latest refreshed valuation
	PeakVal        float64      // highest valuation ever observed
	Volume24h      float64      // 24h volume at last refresh
	Symbol         string       // token symbol at last refresh (may be empty)
	Stashed        bool         // cold-tier flag
	StashReason    StashReason  // set only when Stashed
	StashedAt      time.Time    // when the flag was last set (zero if never)
}

// ClaimantKey returns the stable grouping key for the record's author:
// the claimant id when present, else a normalized display-name fallback.
func (c *CallRecord) ClaimantKey() string {
	if c.ClaimantID != nil {
		return "id:" + strconv.FormatInt(*c.ClaimantID, 10)
	}
	name := strings.TrimSpace(c.ClaimantName)
	if name == "" {
		name = "unknown"
	}
	return "legacy:" + strings.ToLower(name)
}
