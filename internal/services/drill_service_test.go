package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/wordindex"
)

func TestFamilyFromProblemTypeID(t *testing.T) {
	tone, err := familyFromProblemTypeID("tone_1")
	require.NoError(t, err)
	assert.Equal(t, wordindex.FamilyTone, tone)

	vowel, err := familyFromProblemTypeID("vowel_2")
	require.NoError(t, err)
	assert.Equal(t, wordindex.FamilyVowel, vowel)

	_, err = familyFromProblemTypeID("unknown_1")
	assert.Error(t, err)
}

func TestEventFromPreviousAnswer_MarksCorrectness(t *testing.T) {
	prev := &models.PreviousAnswer{
		ProblemTypeID:    "tone_1",
		WordID:           7,
		CorrectSequence:  models.Sequence{2},
		SelectedSequence: models.Sequence{2},
		Alternatives:     []models.Sequence{{2}, {5}},
	}
	event := eventFromPreviousAnswer(prev)
	assert.True(t, event.IsCorrect)
	assert.Equal(t, "tone_1", event.ProblemTypeID)
	assert.Equal(t, 7, event.WordID)

	prev.SelectedSequence = models.Sequence{5}
	event = eventFromPreviousAnswer(prev)
	assert.False(t, event.IsCorrect)
}
