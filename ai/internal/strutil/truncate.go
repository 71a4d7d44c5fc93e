// Package strutil holds small string helpers shared across the ai packages.
package strutil

// Truncate caps a string at maxLen runes, appending an ellipsis when it
// cuts. Rune-level so multi-byte text (Chinese, emoji) never splits.
// A maxLen <= 0 yields an empty string.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
