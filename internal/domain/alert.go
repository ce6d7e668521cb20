package domain

// AlertKind distinguishes the two streak alert channels, each with its own
// cooldown state on the claimant profile.
type AlertKind string

const (
	AlertHot  AlertKind = "hot"
	AlertCold AlertKind = "cold"
)

// IsValid checks if the kind is a valid value.
func (k AlertKind) IsValid() bool {
	return k == AlertHot || k == AlertCold
}
