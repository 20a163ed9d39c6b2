package session

import "strings"

const maxTitleLen = 50

// deriveTitle builds the conversation title from the opening message,
// cut at a word boundary when one falls close enough to the limit.
func deriveTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if len(title) <= maxTitleLen {
		return title
	}
	cut := title[:maxTitleLen]
	if idx := strings.LastIndex(cut, " "); idx > maxTitleLen/2 {
		cut = cut[:idx]
	}
	return cut
}
