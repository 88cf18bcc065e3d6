package util

import (
	"regexp"
)

var (
	uuidRegex      = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	scopeSeparator = regexp.MustCompile(`[,\s]+`)
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

// SplitScopes turns "a, b,,c" into [a b c].
func SplitScopes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := scopeSeparator.Split(raw, -1)
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
