// Package similarity provides text filtering, keyword and vector similarity utilities.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinMeaningfulLength is the shortest trimmed text worth embedding or enriching.
const MinMeaningfulLength = 3

// stopWords is the English stop-word set.
var stopWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true, "ours": true,
	"ourselves": true, "you": true, "your": true, "yours": true, "yourself": true,
	"yourselves": true, "he": true, "him": true, "his": true, "himself": true, "she": true,
	"her": true, "hers": true, "herself": true, "it": true, "its": true, "itself": true,
	"they": true, "them": true, "their": true, "theirs": true, "themselves": true,
	"what": true, "which": true, "who": true, "whom": true, "this": true, "that": true,
	"these": true, "those": true, "am": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "having": true, "do": true, "does": true, "did": true, "doing": true,
	"a": true, "an": true, "the": true, "and": true, "but": true, "if": true, "or": true,
	"because": true, "as": true, "until": true, "while": true, "of": true, "at": true,
	"by": true, "for": true, "with": true, "about": true, "against": true, "between": true,
	"into": true, "through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true, "down": true,
	"in": true, "out": true, "on": true, "off": true, "over": true, "under": true,
	"again": true, "further": true, "then": true, "once": true, "here": true, "there": true,
	"when": true, "where": true, "why": true, "how": true, "all": true, "any": true,
	"both": true, "each": true, "few": true, "more": true, "most": true, "other": true,
	"some": true, "such": true, "no": true, "nor": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true, "very": true,
	"s": true, "t": true, "can": true, "will": true, "just": true, "don": true,
	"should": true, "now": true, "d": true, "ll": true, "m": true, "o": true, "re": true,
	"ve": true, "y": true, "ain": true, "aren": true, "couldn": true, "didn": true,
	"doesn": true, "hadn": true, "hasn": true, "haven": true, "isn": true, "ma": true,
	"mightn": true, "mustn": true, "needn": true, "shan": true, "shouldn": true,
	"wasn": true, "weren": true, "won": true, "wouldn": true,
}

// Tokenize splits text into lowercase alphabetic runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// ContentTokens returns the tokens of text that are not stop words.
func ContentTokens(text string) []string {
	words := Tokenize(text)
	out := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// IsMeaningful reports whether text is substantive enough to embed, cluster or enrich.
func IsMeaningful(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinMeaningfulLength {
		return false
	}
	if isRepeatedRune(strings.ToLower(trimmed)) {
		return false
	}
	return len(ContentTokens(trimmed)) > 0
}

// isRepeatedRune reports whether s is a single character repeated at least three times.
func isRepeatedRune(s string) bool {
	first, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return false
	}
	count := 0
	for _, r := range s {
		if r != first {
			return false
		}
		count++
	}
	return count >= MinMeaningfulLength
}
