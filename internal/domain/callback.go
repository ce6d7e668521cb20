package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackKind enumerates every interactive button action the core handles.
// The set is closed: Decode rejects anything outside it, and dispatch sites
// switch exhaustively on the kind instead of sniffing string prefixes.
type CallbackKind string

const (
	CallbackLeaderboardPage     CallbackKind = "lb_page"
	CallbackAdminStreak         CallbackKind = "admin_streak"
	CallbackAdminDigest         CallbackKind = "admin_digest"
	CallbackAdminGroupChart     CallbackKind = "admin_group_chart"
	CallbackAdminTopCallerChart CallbackKind = "admin_top_caller"
	CallbackGroupChart          CallbackKind = "chart_group"
	CallbackCallerChart         CallbackKind = "chart_caller"
)

// IsValid checks if the kind is a valid value.
func (k CallbackKind) IsValid() bool {
	switch k {
	case CallbackLeaderboardPage, CallbackAdminStreak, CallbackAdminDigest,
		CallbackAdminGroupChart, CallbackAdminTopCallerChart,
		CallbackGroupChart, CallbackCallerChart:
		return true
	}
	return false
}

// CallbackAction is a decoded button press. Page is meaningful only for
// CallbackLeaderboardPage, CallerID only for CallbackCallerChart.
type CallbackAction struct {
	Kind     CallbackKind
	Page     int
	CallerID int64
}

// Encode serializes the action into callback data carried on a button.
func (a CallbackAction) Encode() string {
	switch a.Kind {
	case CallbackLeaderboardPage:
		return string(a.Kind) + ":" + strconv.Itoa(a.Page)
	case CallbackCallerChart:
		return string(a.Kind) + ":" + strconv.FormatInt(a.CallerID, 10)
	default:
		return string(a.Kind)
	}
}

// DecodeCallback parses callback data into a CallbackAction. Unknown kinds
// and malformed arguments are rejected.
func DecodeCallback(data string) (CallbackAction, error) {
	kind, arg, hasArg := strings.Cut(data, ":")
	k := CallbackKind(kind)
	if !k.IsValid() {
		return CallbackAction{}, fmt.Errorf("unknown callback kind %q", kind)
	}

	switch k {
	case CallbackLeaderboardPage:
		page, err := strconv.Atoi(arg)
		if err != nil || page < 0 {
			return CallbackAction{}, fmt.Errorf("bad page in callback %q", data)
		}
		return CallbackAction{Kind: k, Page: page}, nil
	case CallbackCallerChart:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return CallbackAction{}, fmt.Errorf("bad caller id in callback %q", data)
		}
		return CallbackAction{Kind: k, CallerID: id}, nil
	default:
		if hasArg {
			return CallbackAction{}, fmt.Errorf("unexpected argument in callback %q", data)
		}
		return CallbackAction{Kind: k}, nil
	}
}
