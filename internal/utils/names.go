package utils

import "strings"

// NormalizeHandle trims whitespace and a leading "@" from a Telegram handle.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// MatchesParticipant reports whether ref (a display name or @handle taken
// from configuration) identifies a participant. Display names are compared
// exactly; handles are compared case-insensitively as Telegram does.
func MatchesParticipant(ref, displayName, handle string) bool {
	ref = NormalizeHandle(ref)
	if ref == "" {
		return false
	}
	if ref == strings.TrimSpace(displayName) {
		return true
	}
	return handle != "" && strings.EqualFold(ref, NormalizeHandle(handle))
}
