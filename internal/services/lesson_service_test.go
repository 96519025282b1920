package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knutdrand/language-app/internal/wordindex"
)

func TestProblemTypeID1(t *testing.T) {
	assert.Equal(t, "tone_1", problemTypeID1(wordindex.FamilyTone))
	assert.Equal(t, "vowel_1", problemTypeID1(wordindex.FamilyVowel))
}

func TestLessonService_Next_UnknownSessionErrors(t *testing.T) {
	svc := NewLessonService(nil, nil, nil)
	_, err := svc.Next(nil, "does-not-exist", nil)
	assert.Error(t, err)
}
