package domain

// GroupSetting is the per-group configuration row. Created on first
// interaction with a group, mutated by toggle and link commands.
// Corresponds to the group_settings table in PostgreSQL.
type GroupSetting struct {
	GroupID        int64  // PRIMARY KEY
	AlertsEnabled  bool   // gates streak alerts and the daily digest
	LastDigestDate string // "YYYY-MM-DD" in UTC of the last digest sent
	GroupKey       string // canonical key set by link-group (empty when unlinked)
}
