package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
	"github.com/knutdrand/language-app/internal/xrand"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	words, err := wordindex.LoadEmbeddedCatalog("words.json")
	require.NoError(t, err)
	idx := wordindex.New(wordindex.FamilyTone, words)
	return NewController(taxonomy.Default(), xrand.New(11), idx, wordindex.FamilyTone, 10)
}

// wrongAnswerFor returns a selected sequence guaranteed to differ from the
// drill's correct sequence, picked from its own presented alternatives.
func wrongAnswerFor(problem models.Problem) models.Sequence {
	for _, alt := range problem.Alternatives {
		if !alt.Equal(problem.CorrectSequence) {
			return alt
		}
	}
	return problem.CorrectSequence
}

func TestLesson_MistakeReview_ExactlyThreeMistakesReplayedInOrder(t *testing.T) {
	c := newTestController(t)
	themeID := 0
	state := c.Start(1, &themeID, nil)
	require.Len(t, state.DrillPlan, 10)

	var mistakeProblems []models.Problem
	learningDrills := 0
	for {
		outcome, err := c.NextDrill(state)
		require.NoError(t, err)
		if outcome.Complete {
			t.Fatal("lesson completed before all ten learning drills were answered")
		}
		learningDrills++

		var answer models.Answer
		if learningDrills <= 3 {
			answer = models.Answer{SelectedSequence: wrongAnswerFor(*outcome.Drill)}
			mistakeProblems = append(mistakeProblems, *outcome.Drill)
		} else {
			answer = models.Answer{SelectedSequence: outcome.Drill.CorrectSequence}
		}
		c.RecordAnswer(state, *outcome.Drill, outcome.Mode, answer)

		if learningDrills == 10 {
			break
		}
	}
	require.Equal(t, PhaseLearning, state.Phase)
	require.Len(t, state.Mistakes, 3)

	// One more NextDrill call transitions LEARNING -> REVIEW and serves the
	// first mistake.
	var reviewDrills []models.Problem
	for i := 0; i < 3; i++ {
		outcome, err := c.NextDrill(state)
		require.NoError(t, err)
		require.False(t, outcome.Complete, "review drill %d", i)
		assert.Equal(t, PhaseReview, state.Phase)
		reviewDrills = append(reviewDrills, *outcome.Drill)
		c.RecordAnswer(state, *outcome.Drill, outcome.Mode, models.Answer{SelectedSequence: outcome.Drill.CorrectSequence})
	}

	for i, mp := range mistakeProblems {
		assert.Equal(t, mp.WordID, reviewDrills[i].WordID, "review drill %d should replay mistake %d in order", i, i)
		assert.True(t, mp.CorrectSequence.Equal(reviewDrills[i].CorrectSequence))
	}

	outcome, err := c.NextDrill(state)
	require.NoError(t, err)
	require.True(t, outcome.Complete)
	require.NotNil(t, outcome.Summary)
	assert.Equal(t, 3, outcome.Summary.MistakesCount)
	assert.Equal(t, 10, outcome.Summary.TotalDrills)
	assert.Equal(t, PhaseComplete, state.Phase)
}

func TestLesson_NoMistakes_SkipsReviewPhase(t *testing.T) {
	c := newTestController(t)
	themeID := 0
	state := c.Start(2, &themeID, nil)

	for i := 0; i < 10; i++ {
		outcome, err := c.NextDrill(state)
		require.NoError(t, err)
		require.False(t, outcome.Complete)
		c.RecordAnswer(state, *outcome.Drill, outcome.Mode, models.Answer{SelectedSequence: outcome.Drill.CorrectSequence})
	}

	outcome, err := c.NextDrill(state)
	require.NoError(t, err)
	require.True(t, outcome.Complete)
	assert.Equal(t, 0, outcome.Summary.MistakesCount)
	assert.Equal(t, 100.0, outcome.Summary.AccuracyPct)
}

func TestNextLessonID_IsMaxPlusOne(t *testing.T) {
	assert.Equal(t, 1, NextLessonID(0))
	assert.Equal(t, 43, NextLessonID(42))
}

func TestStart_ExplicitThemeWrapsByModulo(t *testing.T) {
	c := newTestController(t)
	themes := Themes(wordindex.FamilyTone)
	require.NotEmpty(t, themes)

	wrapped := len(themes) + 2
	id := wrapped
	state := c.Start(1, &id, nil)
	assert.Equal(t, themes[2].Pairs, state.ThemePairs)
}

func TestGenerateDrillPlan_SixTwoTwoMix(t *testing.T) {
	c := newTestController(t)
	plan := c.generateDrillPlan()
	require.Len(t, plan, 10)

	counts := map[DrillMode]int{}
	for _, m := range plan {
		counts[m]++
	}
	assert.Equal(t, 6, counts[ModeTwoChoice1Syl])
	assert.Equal(t, 2, counts[ModeFourChoice1Syl])
	assert.Equal(t, 2, counts[ModeTwoChoice2Syl])
}
