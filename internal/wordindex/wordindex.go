// Package wordindex loads the vocabulary catalog and indexes each word by
// the sequence-key derived from its phonetic classes (e.g. "3-2" for a
// two-syllable word whose syllables fall in classes 3 and 2).
package wordindex

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed data/*.json
var catalogFS embed.FS

// Word is one vocabulary entry.
type Word struct {
	ID         int    `json:"id"`
	Vietnamese string `json:"vietnamese"`
	English    string `json:"english"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Family names a drill family's phonetic indexing rule.
type Family string

const (
	FamilyTone  Family = "tone"
	FamilyVowel Family = "vowel"
)

// Sequence derives the class sequence for word under the given family.
func Sequence(family Family, vietnamese string) []int {
	switch family {
	case FamilyVowel:
		return vowelSequence(vietnamese)
	case FamilyTone:
		fallthrough
	default:
		return toneSequence(vietnamese)
	}
}

// SequenceKey is the dash-joined string of class ids identifying a word's
// phonetic signature.
func SequenceKey(seq []int) string {
	parts := make([]string, len(seq))
	for i, c := range seq {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "-")
}

// Index indexes a word catalog by sequence key for one drill family.
type Index struct {
	family     Family
	wordsByKey map[string][]Word
	allKeys    []string
}

// New builds an Index for family from the given word list.
func New(family Family, words []Word) *Index {
	idx := &Index{
		family:     family,
		wordsByKey: make(map[string][]Word),
	}
	for _, w := range words {
		key := SequenceKey(Sequence(family, w.Vietnamese))
		if _, ok := idx.wordsByKey[key]; !ok {
			idx.allKeys = append(idx.allKeys, key)
		}
		idx.wordsByKey[key] = append(idx.wordsByKey[key], w)
	}
	return idx
}

// WordsForKey lists all words filed under the given sequence key.
func (idx *Index) WordsForKey(key string) []Word {
	return idx.wordsByKey[key]
}

// AllKeys lists every sequence key present in the catalog.
func (idx *Index) AllKeys() []string {
	out := make([]string, len(idx.allKeys))
	copy(out, idx.allKeys)
	return out
}

// KeysOfLength lists every sequence key whose syllable count equals n.
func (idx *Index) KeysOfLength(n int) []string {
	var out []string
	for _, k := range idx.allKeys {
		if strings.Count(k, "-")+1 == n {
			out = append(out, k)
		}
	}
	return out
}

// IsEmpty reports whether the catalog holds no words at all -- the
// EmptyCatalog condition the sampler falls back from.
func (idx *Index) IsEmpty() bool {
	return len(idx.allKeys) == 0
}

// LoadEmbeddedCatalog reads the bundled JSON word table for the given file
// name (relative to internal/wordindex/data).
func LoadEmbeddedCatalog(filename string) ([]Word, error) {
	raw, err := catalogFS.ReadFile("data/" + filename)
	if err != nil {
		return nil, fmt.Errorf("wordindex: reading embedded catalog %q: %w", filename, err)
	}
	var words []Word
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("wordindex: parsing embedded catalog %q: %w", filename, err)
	}
	return words, nil
}
