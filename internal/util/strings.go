package util

import "strings"

// JoinOrNone joins strings with ", " or returns "(none)" for empty slices.
func JoinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Dedupe drops empty and repeated entries, keeping the first occurrence.
// The dropped repeats are returned in the order they were seen.
func Dedupe(items []string) (unique, repeated []string) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			repeated = append(repeated, item)
			continue
		}
		seen[item] = struct{}{}
		unique = append(unique, item)
	}
	return unique, repeated
}
