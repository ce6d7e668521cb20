package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow restricts a query to calls submitted after Cutoff.
// The zero value means all time.
type TimeWindow struct {
	Cutoff time.Time // zero means unbounded
	Label  string    // human text, e.g. "Last 7 Days"
}

// AllTime is the unbounded window.
func AllTime() TimeWindow {
	return TimeWindow{Label: "All Time"}
}

// Window returns a window reaching back d from now.
func Window(d time.Duration, label string) TimeWindow {
	return TimeWindow{Cutoff: time.Now().UTC().Add(-d), Label: label}
}

// ParseTimeWindow parses a user argument of the form "7d" or "24h".
// Unparseable or empty input yields the all-time window, matching the
// forgiving behavior users expect from a chat command.
func ParseTimeWindow(arg string) TimeWindow {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if len(arg) < 2 {
		return AllTime()
	}

	n, err := strconv.Atoi(arg[:len(arg)-1])
	if err != nil || n <= 0 {
		return AllTime()
	}

	switch arg[len(arg)-1] {
	case 'd':
		return Window(time.Duration(n)*24*time.Hour, fmt.Sprintf("Last %d Days", n))
	case 'h':
		return Window(time.Duration(n)*time.Hour, fmt.Sprintf("Last %d Hours", n))
	}
	return AllTime()
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return w.Cutoff.IsZero() || !t.Before(w.Cutoff)
}
