package wordindex

import "strings"

// toneMarks maps every precomposed Vietnamese vowel character (base letter
// plus one of the five tone diacritics, or none) to its tone class in
// [1, 6]. Absence of any diacritic-bearing vowel in a syllable means tone
// class 1 (level/"ngang"). Tone identity is read off the first matching
// character in scan order.
var toneMarks = buildToneMarks()

// Tone class ids: 1 ngang (level), 2 huyền (falling), 3 sắc (rising),
// 4 hỏi (dipping-rising), 5 ngã (creaky-rising), 6 nặng (heavy).
const (
	toneNgang = 1
	toneHuyen = 2
	toneSac   = 3
	toneHoi   = 4
	toneNga   = 5
	toneNang  = 6
)

func buildToneMarks() map[rune]int {
	// Each row: ngang, huyền, sắc, hỏi, ngã, nặng for one base vowel.
	rows := [][6]rune{
		{'a', 'à', 'á', 'ả', 'ã', 'ạ'},
		{'ă', 'ằ', 'ắ', 'ẳ', 'ẵ', 'ặ'},
		{'â', 'ầ', 'ấ', 'ẩ', 'ẫ', 'ậ'},
		{'e', 'è', 'é', 'ẻ', 'ẽ', 'ẹ'},
		{'ê', 'ề', 'ế', 'ể', 'ễ', 'ệ'},
		{'i', 'ì', 'í', 'ỉ', 'ĩ', 'ị'},
		{'o', 'ò', 'ó', 'ỏ', 'õ', 'ọ'},
		{'ô', 'ồ', 'ố', 'ổ', 'ỗ', 'ộ'},
		{'ơ', 'ờ', 'ớ', 'ở', 'ỡ', 'ợ'},
		{'u', 'ù', 'ú', 'ủ', 'ũ', 'ụ'},
		{'ư', 'ừ', 'ứ', 'ử', 'ữ', 'ự'},
		{'y', 'ỳ', 'ý', 'ỷ', 'ỹ', 'ỵ'},
	}
	classes := [6]int{toneNgang, toneHuyen, toneSac, toneHoi, toneNga, toneNang}

	m := make(map[rune]int, 72)
	for _, row := range rows {
		for i, r := range row {
			m[r] = classes[i]
		}
	}
	return m
}

// baseVowelClass maps every precomposed vowel character (any tone mark) to
// one of the twelve base-vowel classes, independent of tone. Vietnamese has
// exactly twelve vowel letters: a ă â e ê i o ô ơ u ư y.
var baseVowelClass = buildBaseVowelClass()

// isDiacritic tracks which of those characters carry a non-level tone
// mark, used by the vowel-family nucleus-extraction fallback rule to
// prefer the tone-carrying vowel when a syllable has more than one.
var isDiacritic = buildDiacriticSet()

// opennessRank orders the twelve base vowels from most to least open, used
// as the vowel-family nucleus-extraction's fallback rule when no candidate
// vowel bears a tone diacritic.
var opennessRank = map[int]int{
	1:  1,  // a
	2:  2,  // ă
	3:  3,  // â
	4:  4,  // e
	5:  5,  // ê
	7:  6,  // o
	8:  7,  // ô
	9:  8,  // ơ
	10: 9,  // u
	11: 10, // ư
	6:  11, // i
	12: 11, // y
}

func buildBaseVowelClass() map[rune]int {
	rows := [][6]rune{
		{'a', 'à', 'á', 'ả', 'ã', 'ạ'},
		{'ă', 'ằ', 'ắ', 'ẳ', 'ẵ', 'ặ'},
		{'â', 'ầ', 'ấ', 'ẩ', 'ẫ', 'ậ'},
		{'e', 'è', 'é', 'ẻ', 'ẽ', 'ẹ'},
		{'ê', 'ề', 'ế', 'ể', 'ễ', 'ệ'},
		{'i', 'ì', 'í', 'ỉ', 'ĩ', 'ị'},
		{'o', 'ò', 'ó', 'ỏ', 'õ', 'ọ'},
		{'ô', 'ồ', 'ố', 'ổ', 'ỗ', 'ộ'},
		{'ơ', 'ờ', 'ớ', 'ở', 'ỡ', 'ợ'},
		{'u', 'ù', 'ú', 'ủ', 'ũ', 'ụ'},
		{'ư', 'ừ', 'ứ', 'ử', 'ữ', 'ự'},
		{'y', 'ỳ', 'ý', 'ỷ', 'ỹ', 'ỵ'},
	}
	m := make(map[rune]int, 72)
	for classID, row := range rows {
		for _, r := range row {
			m[r] = classID + 1
		}
	}
	return m
}

func buildDiacriticSet() map[rune]bool {
	m := make(map[rune]bool, 72)
	for r, class := range toneMarks {
		m[r] = class != toneNgang
	}
	return m
}

// detectTone returns the first matching tone class found scanning the
// syllable left to right, or toneNgang if no diacritic-bearing vowel
// appears.
func detectTone(syllable string) int {
	for _, r := range strings.ToLower(syllable) {
		if class, ok := toneMarks[r]; ok && class != toneNgang {
			return class
		}
	}
	return toneNgang
}

// toneSequence maps each whitespace-separated syllable of word to its tone
// class.
func toneSequence(word string) []int {
	syllables := strings.Fields(word)
	seq := make([]int, len(syllables))
	for i, syl := range syllables {
		seq[i] = detectTone(syl)
	}
	return seq
}

// vowelPosition is one candidate nucleus vowel found while scanning a
// syllable.
type vowelPosition struct {
	index     int
	class     int
	diacritic bool
}

// extractVowelNucleus picks the syllable's nucleus vowel class. If exactly
// one recognized vowel character is present, it is the nucleus. Otherwise
// the tone-carrying (diacritic-bearing) vowel is preferred; if none bears
// a diacritic, fall back to the fixed openness ranking (most open wins).
func extractVowelNucleus(syllable string) int {
	var candidates []vowelPosition
	for i, r := range strings.ToLower(syllable) {
		if class, ok := baseVowelClass[r]; ok {
			candidates = append(candidates, vowelPosition{index: i, class: class, diacritic: isDiacritic[r]})
		}
	}

	if len(candidates) == 0 {
		return 1
	}
	if len(candidates) == 1 {
		return candidates[0].class
	}

	for _, c := range candidates {
		if c.diacritic {
			return c.class
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if opennessRank[c.class] < opennessRank[best.class] {
			best = c
		}
	}
	return best.class
}

// vowelSequence maps each whitespace-separated syllable of word to its
// nucleus vowel class.
func vowelSequence(word string) []int {
	syllables := strings.Fields(word)
	seq := make([]int, len(syllables))
	for i, syl := range syllables {
		seq[i] = extractVowelNucleus(syl)
	}
	return seq
}
