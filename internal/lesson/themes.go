package lesson

import "github.com/knutdrand/language-app/internal/wordindex"

// ThemePair is an unordered pair of class ids around which a lesson's
// drills are constructed.
type ThemePair [2]int

// Theme is one entry of the fixed theme table.
type Theme struct {
	ID    int
	Pairs []ThemePair
}

// defaultThemes is the fixed theme table. The tone family gets eight
// curated pair-pair themes; the vowel family carries a single starter
// theme, with adaptive selection covering the rest.
var defaultThemes = map[wordindex.Family][]Theme{
	wordindex.FamilyTone: {
		{ID: 0, Pairs: []ThemePair{{1, 2}, {1, 3}}},
		{ID: 1, Pairs: []ThemePair{{2, 3}, {4, 5}}},
		{ID: 2, Pairs: []ThemePair{{1, 6}, {2, 4}}},
		{ID: 3, Pairs: []ThemePair{{3, 5}, {1, 4}}},
		{ID: 4, Pairs: []ThemePair{{2, 6}, {3, 4}}},
		{ID: 5, Pairs: []ThemePair{{1, 5}, {4, 6}}},
		{ID: 6, Pairs: []ThemePair{{2, 5}, {3, 6}}},
		{ID: 7, Pairs: []ThemePair{{1, 2}, {5, 6}}},
	},
	wordindex.FamilyVowel: {
		{ID: 0, Pairs: []ThemePair{{1, 2}, {3, 4}}},
	},
}

// Themes returns the fixed theme table for a drill family.
func Themes(family wordindex.Family) []Theme {
	return defaultThemes[family]
}
