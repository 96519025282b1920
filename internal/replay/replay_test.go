package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
)

func event(correct, selected int) models.Event {
	return models.Event{
		ProblemTypeID:    "tone_1",
		CorrectSequence:  models.Sequence{correct},
		Alternatives:     []models.Sequence{{1}, {2}, {3}},
		SelectedSequence: models.Sequence{selected},
		IsCorrect:        correct == selected,
	}
}

func TestReconstruct_MatchesDirectUpdateSequence(t *testing.T) {
	m := confusion.NewModel(confusion.KindLuce, 100, 1e-6, 1e-8)
	events := []models.Event{event(1, 1), event(1, 2), event(1, 1), event(2, 2)}

	reconstructed, err := Reconstruct(m, events, "tone_1", 6, 1.0, confusion.PolicyUniform)
	require.NoError(t, err)

	direct := m.InitialState("tone_1", 6, 1.0, confusion.PolicyUniform)
	for _, e := range events {
		next, _, err := m.Update(direct, confusion.Problem{
			CorrectClass:     e.CorrectSequence[0],
			PresentedClasses: []int{1, 2, 3},
		}, confusion.Answer{SelectedClass: e.SelectedSequence[0]})
		require.NoError(t, err)
		direct = next
	}

	diff, err := Verify(reconstructed, direct)
	require.NoError(t, err)
	assert.Equal(t, 0.0, diff)
}

func TestReconstruct_EmptyEventListYieldsInitialState(t *testing.T) {
	m := confusion.NewModel(confusion.KindLuce, 100, 1e-6, 1e-8)
	reconstructed, err := Reconstruct(m, nil, "tone_1", 6, 1.0, confusion.PolicyDiagonalBiased)
	require.NoError(t, err)

	initial := m.InitialState("tone_1", 6, 1.0, confusion.PolicyDiagonalBiased)
	diff, err := Verify(reconstructed, initial)
	require.NoError(t, err)
	assert.Equal(t, 0.0, diff)
}

func TestVerify_ShapeMismatchErrors(t *testing.T) {
	m := confusion.NewModel(confusion.KindLuce, 100, 1e-6, 1e-8)
	a := m.InitialState("tone_1", 6, 1.0, confusion.PolicyUniform)
	b := m.InitialState("vowel_1", 12, 5.0, confusion.PolicyUniform)

	_, err := Verify(a, b)
	require.Error(t, err)
}
