package similarity

import (
	"sort"
	"unicode/utf8"
)

const (
	// MinThemeWordLength is the shortest word considered as a theme.
	MinThemeWordLength = 4
	// MinThemeFrequency is how often a word must occur to count as a theme.
	MinThemeFrequency = 2
	// MaxThemes caps the number of themes returned.
	MaxThemes = 5
)

// ExtractThemes returns the most frequent shared keywords across texts.
// Words shorter than four letters and stop words are ignored; only words seen at least
// twice are kept. Ties are broken by first appearance.
func ExtractThemes(texts []string) []string {
	type term struct {
		word  string
		count int
		first int
	}

	terms := make(map[string]*term)
	pos := 0
	for _, text := range texts {
		for _, w := range Tokenize(text) {
			pos++
			if utf8.RuneCountInString(w) < MinThemeWordLength || stopWords[w] {
				continue
			}
			if t, ok := terms[w]; ok {
				t.count++
				continue
			}
			terms[w] = &term{word: w, count: 1, first: pos}
		}
	}

	ranked := make([]*term, 0, len(terms))
	for _, t := range terms {
		if t.count >= MinThemeFrequency {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > MaxThemes {
		ranked = ranked[:MaxThemes]
	}
	themes := make([]string, 0, len(ranked))
	for _, t := range ranked {
		themes = append(themes, t.word)
	}
	return themes
}
