package render

import "testing"

func TestFormatReturn(t *testing.T) {
	tests := []struct {
		x    float64
		want string
	}{
		{2.314, "2.31x"},
		{2.0, "2.00x"},
		{1.31, "31.0%"},
		{1.0, "0.0%"},
		{0.9996, "0.0%"}, // rounding distance of breakeven, not "-0.0%"
		{0.5, "-50.0%"},
		{0.0, "-100.0%"},
	}
	for _, tt := range tests {
		if got := FormatReturn(tt.x); got != tt.want {
			t.Errorf("FormatReturn(%v) = %q, want %q", tt.x, got, tt.want)
		}
	}
}

func TestShortAddress(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"", "N/A"},
		{"abc123def456", "abc123def456"},
		{"So11111111111111111111111111111111111111112", "So1111...1112"},
	}
	for _, tt := range tests {
		if got := ShortAddress(tt.addr); got != tt.want {
			t.Errorf("ShortAddress(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestTokenLabel(t *testing.T) {
	if got := TokenLabel("ybi", "whatever"); got != "$YBI" {
		t.Errorf("TokenLabel with symbol = %q, want $YBI", got)
	}
	if got := TokenLabel("  ", "short"); got != "short" {
		t.Errorf("TokenLabel without symbol = %q, want short", got)
	}
}

func TestRankBadge(t *testing.T) {
	tests := []struct {
		rank int
		want string
	}{
		{1, "🥇"},
		{2, "🥈"},
		{3, "🥉"},
		{4, "4️⃣"},
		{10, "10️⃣"},
		{11, "11."},
	}
	for _, tt := range tests {
		if got := RankBadge(tt.rank); got != tt.want {
			t.Errorf("RankBadge(%d) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

func TestStars(t *testing.T) {
	if got := StarsFromPct(100); got != "★★★★★" {
		t.Errorf("StarsFromPct(100) = %q", got)
	}
	if got := StarsFromPct(50); got != "★★★☆☆" {
		t.Errorf("StarsFromPct(50) = %q", got)
	}
	if got := StarsFromPct(-5); got != "☆☆☆☆☆" {
		t.Errorf("StarsFromPct(-5) = %q", got)
	}
	if got := StarsFromRank(1); got != "★★★★★" {
		t.Errorf("StarsFromRank(1) = %q", got)
	}
	if got := StarsFromRank(6); got != "" {
		t.Errorf("StarsFromRank(6) = %q, want empty", got)
	}
	if got := StarsFromRank(0); got != "" {
		t.Errorf("StarsFromRank(0) = %q, want empty", got)
	}
}
