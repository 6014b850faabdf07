// Package strings provides string slice utilities used by grant and scope
// handling.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved, so scope strings keep the
// order the client requested them in.
//
// Example:
//
//	DedupeAndTrim([]string{" openid ", "profile", "openid", ""})
//	// Returns: []string{"openid", "profile"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// MergeFields splits each space-separated value, then dedupes the union.
// Used to fold repeated AddOIDCScope calls into one canonical scope string.
func MergeFields(existing []string, incoming string) []string {
	merged := make([]string, 0, len(existing)+4)
	merged = append(merged, existing...)
	merged = append(merged, strings.Fields(incoming)...)
	return DedupeAndTrim(merged)
}
