// Package privacy removes private spans from note text before it leaves the service.
package privacy

import (
	"regexp"
	"strings"
)

var (
	privateTagRegex = regexp.MustCompile(`(?is)<private>.*?</private>`)
	spaceRunRegex   = regexp.MustCompile(`[ \t]{2,}`)
)

// StripPrivateTags removes all <private>...</private> spans from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// HasPrivate reports whether text contains a private span.
func HasPrivate(text string) bool {
	return privateTagRegex.MatchString(text)
}

// Clean prepares note text for an embedding or language-model provider:
// private spans are removed and the gaps they leave are collapsed.
// The stored note keeps its original text.
func Clean(text string) string {
	if !HasPrivate(text) {
		return strings.TrimSpace(text)
	}
	text = StripPrivateTags(text)
	text = spaceRunRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
