// Package pattern implements the wildcard matching used by every name filter.
//
// A pattern is a literal string in which '*' stands for zero or more
// characters. The matching rules are deliberately simpler than shell globs:
// fragments between wildcards are located left to right at their first
// occurrence, with no backtracking.
package pattern

import "strings"

// Wildcard is the character matching any run of characters.
const Wildcard = "*"

// MatchAny reports whether name matches at least one of patterns.
func MatchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if Match(name, p) {
			return true
		}
	}
	return false
}

// Match reports whether name matches pattern.
func Match(name, pattern string) bool {
	if !strings.Contains(pattern, Wildcard) {
		return name == pattern
	}

	parts := strings.Split(pattern, Wildcard)
	if len(parts) == 2 {
		prefix, suffix := parts[0], parts[1]
		return strings.HasPrefix(name, prefix) &&
			strings.HasSuffix(name, suffix) &&
			len(name) >= len(prefix)+len(suffix)
	}

	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		found := strings.Index(name[pos:], part)
		if found < 0 {
			return false
		}
		// parts[0] is only non-empty when the pattern does not start with '*'.
		if i == 0 && found != 0 {
			return false
		}
		pos += found + len(part)
	}

	return strings.HasSuffix(pattern, Wildcard) || pos == len(name)
}

// Sanitize rewrites name into an identifier safe for graph languages by
// replacing '-' and '.' with '_'.
func Sanitize(name string) string {
	return sanitizer.Replace(name)
}

var sanitizer = strings.NewReplacer("-", "_", ".", "_")
