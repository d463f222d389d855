// Package strings provides list helpers for config and header values.
package strings

import (
	"strings"
)

// Dedupe applies norm to each value, dropping empty results and repeats.
// Order of first appearance is preserved. A nil norm only trims whitespace.
func Dedupe(values []string, norm func(string) string) []string {
	if norm == nil {
		norm = strings.TrimSpace
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// SplitList splits a comma-separated value such as "a:9092, b:9092" into its
// trimmed, de-duplicated items.
//
//	SplitList(" a, b,,a ") // []string{"a", "b"}
func SplitList(s string) []string {
	return Dedupe(strings.Split(s, ","), nil)
}
