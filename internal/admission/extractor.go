package admission

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
)

// addressPattern matches the two identifier shapes tracked by the bot:
// 0x-prefixed 40-hex-digit addresses and base58 addresses of 32-44 chars.
var addressPattern = regexp.MustCompile(`\b(0x[a-fA-F0-9]{40}|[1-9A-HJ-NP-Za-km-z]{32,44})\b`)

// ExtractAddresses returns the deduplicated, normalized asset identifiers
// found in the text, in sorted order. Base58-shaped candidates must decode
// cleanly or they are discarded.
func ExtractAddresses(text string) []string {
	matches := addressPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if !strings.HasPrefix(m, "0x") {
			if _, err := base58.Decode(m); err != nil {
				continue
			}
		}
		seen[Normalize(m)] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Normalize case-folds an identifier into its dedup key.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
