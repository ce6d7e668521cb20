package domain

import "time"

// AlertState tracks the last streak notification of one kind for a claimant.
// StreakLen is the streak length at notification time; a longer streak later
// re-arms the alert even inside the cooldown window.
type AlertState struct {
	NotifiedAt time.Time // zero value means never notified
	StreakLen  int
}

// ClaimantProfile is the per (group, claimant) aggregate updated on every
// admission decision and every alert emission. Corresponds to the
// claimant_profiles table in PostgreSQL.
type ClaimantProfile struct {
	GroupID       int64  // part of composite key
	ClaimantID    int64  // part of composite key
	DisplayName   string // refreshed on every claim
	Handle        string // username without @ (may be empty)
	AcceptedCalls int64
	RejectedCalls int64
	RejectReasons map[RejectReason]int64 // histogram, nil means empty
	FirstSeen     time.Time
	UpdatedAt     time.Time
	HotAlert      AlertState
	ColdAlert     AlertState
}

// ReputationPenalty returns the displayed-score penalty accumulated from
// rejected submissions: 0.5 per rejection, capped at 15.
func (p *ClaimantProfile) ReputationPenalty() float64 {
	penalty := float64(p.RejectedCalls) * 0.5
	if penalty > 15 {
		return 15
	}
	return penalty
}
