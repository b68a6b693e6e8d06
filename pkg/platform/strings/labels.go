// Package strings normalizes free-form label lists such as incident data
// categories.
package strings

import (
	"strings"
)

// NormalizeLabels trims and lower-cases each value, drops empties and
// duplicates, and keeps first-seen order. The result is never nil.
func NormalizeLabels(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		label := strings.ToLower(strings.TrimSpace(v))
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
