package wordindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneSequence_LevelAndMarkedSyllables(t *testing.T) {
	assert.Equal(t, []int{1}, toneSequence("xin"))
	assert.Equal(t, []int{2}, toneSequence("mà"))
	assert.Equal(t, []int{3}, toneSequence("má"))
	assert.Equal(t, []int{4}, toneSequence("mả"))
	assert.Equal(t, []int{5}, toneSequence("mã"))
	assert.Equal(t, []int{6}, toneSequence("mạ"))
	assert.Equal(t, []int{1, 2}, toneSequence("xin chào"))
}

func TestVowelNucleus_SingleCandidate(t *testing.T) {
	assert.Equal(t, 1, extractVowelNucleus("ba"))
	assert.Equal(t, 2, extractVowelNucleus("ăn"))
	assert.Equal(t, 3, extractVowelNucleus("ấm"))
}

func TestVowelNucleus_PrefersDiacriticBearingCandidate(t *testing.T) {
	// "mùa" has ù (huyền on u) and a bare a. The openness fallback alone
	// would pick a; the tone-carrying ù must win instead.
	assert.Equal(t, baseVowelClass['ù'], extractVowelNucleus("mùa"))
}

func TestVowelNucleus_OpennessFallbackPrefersOverOo(t *testing.T) {
	// Neither ô nor ơ carries a tone mark here, so the no-diacritic openness
	// fallback decides; ô (class 8) must win over ơ (class 9).
	assert.Equal(t, baseVowelClass['ô'], extractVowelNucleus("ôơ"))
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	words, err := LoadEmbeddedCatalog("words.json")
	require.NoError(t, err)
	require.NotEmpty(t, words)

	idx := New(FamilyTone, words)
	assert.False(t, idx.IsEmpty())
	assert.NotEmpty(t, idx.WordsForKey("1"))
	assert.NotEmpty(t, idx.KeysOfLength(1))
}

func TestSequenceKey_DashJoined(t *testing.T) {
	assert.Equal(t, "3-2", SequenceKey([]int{3, 2}))
	assert.Equal(t, "1", SequenceKey([]int{1}))
}
