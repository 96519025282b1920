package confusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState_DiagonalBiased_UniformTonePrior(t *testing.T) {
	prior := 1.0
	s := InitialState("tone_1", KindLuce, 6, prior, PolicyDiagonalBiased)

	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if i == j {
				assert.Equal(t, prior*3, s.get(i, j))
			} else {
				assert.Equal(t, prior, s.get(i, j))
			}
		}
	}

	m := NewModel(KindLuce, 100, 1e-6, 1e-8)
	b := m.SuccessDistribution(s, Problem{CorrectClass: 1, PresentedClasses: []int{1, 2}})
	assert.InDelta(t, 0.75, b.Mean(), 1e-9)
}

func TestUpdate_SingleObservation_UniformPrior(t *testing.T) {
	prior := 1.0
	s := InitialState("tone_1", KindLuce, 6, prior, PolicyUniform)
	m := NewModel(KindLuce, 100, 1e-6, 1e-8)

	next, updates, err := m.Update(s, Problem{CorrectClass: 1, PresentedClasses: []int{1, 2, 3, 4, 5, 6}}, Answer{SelectedClass: 1})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, prior, updates[0].OldValue)
	assert.Equal(t, prior+1, updates[0].NewValue)

	b := m.SuccessDistribution(next, Problem{CorrectClass: 1, PresentedClasses: []int{1, 2}})
	assert.InDelta(t, 2.0/3.0, b.Mean(), 1e-9)

	// Original state is untouched -- copy-on-update.
	assert.Equal(t, prior, s.get(0, 0))
}

func TestUpdate_RejectsAnswerOutsidePresentedChoices(t *testing.T) {
	s := InitialState("tone_1", KindLuce, 6, 1.0, PolicyUniform)
	m := NewModel(KindLuce, 100, 1e-6, 1e-8)

	_, _, err := m.Update(s, Problem{CorrectClass: 1, PresentedClasses: []int{1, 2}}, Answer{SelectedClass: 3})
	require.Error(t, err)
	var invalid ErrInvalidAnswer
	require.ErrorAs(t, err, &invalid)
}

func TestBradleyTerry_MMConvergence_TwoItemWinsMatrix(t *testing.T) {
	counts := []float64{0, 80, 20, 0}
	res := computeBTStrengthsLinear(counts, 2, 0, 100, 1e-6)
	require.True(t, res.converged)

	ratio := res.strengths[0] / (res.strengths[0] + res.strengths[1])
	assert.InDelta(t, 0.80, ratio, 0.01)
}

func TestBradleyTerry_LogSpaceMatchesLinear_WellConditioned(t *testing.T) {
	counts := []float64{0, 40, 60, 0}
	linear := computeBTStrengthsLinear(counts, 2, 1, 100, 1e-6)
	logspace := computeBTStrengthsLogSpace(counts, 2, 1, 100, 1e-8)

	ratioLinear := linear.strengths[0] / (linear.strengths[0] + linear.strengths[1])
	ratioLog := logspace.strengths[0] / (logspace.strengths[0] + logspace.strengths[1])
	assert.InDelta(t, ratioLinear, ratioLog, 1e-3)
}

func TestAllPairStats_Symmetry(t *testing.T) {
	s := InitialState("tone_1", KindLuce, 6, 1.0, PolicyDiagonalBiased)
	m := NewModel(KindLuce, 100, 1e-6, 1e-8)

	stats := m.AllPairStats(s)
	expectedPairs := 6 * 5 / 2
	assert.Len(t, stats, expectedPairs)

	for pair, b := range stats {
		assert.Less(t, pair.A, pair.B)
		assert.GreaterOrEqual(t, b.Alpha, 0.1)
		assert.GreaterOrEqual(t, b.Beta, 0.1)
	}
}

func TestBetaMixtureApprox_DegenerateFallsBackToUniform(t *testing.T) {
	b := BetaMixtureApprox(Beta{Alpha: 0, Beta: 0}, Beta{Alpha: 0, Beta: 0})
	assert.Equal(t, 1.0, b.Alpha)
	assert.Equal(t, 1.0, b.Beta)
}

func TestMonotoneConfidence_RepeatedCorrectObservation(t *testing.T) {
	s := InitialState("tone_1", KindLuce, 6, 1.0, PolicyUniform)
	m := NewModel(KindLuce, 100, 1e-6, 1e-8)
	problem := Problem{CorrectClass: 1, PresentedClasses: []int{1, 2}}

	prevMean, prevTotal := -1.0, -1.0
	for k := 0; k < 5; k++ {
		next, _, err := m.Update(s, problem, Answer{SelectedClass: 1})
		require.NoError(t, err)
		b := m.SuccessDistribution(next, problem)
		if prevMean >= 0 {
			assert.Greater(t, b.Mean(), prevMean)
			assert.Greater(t, b.Alpha+b.Beta, prevTotal)
		}
		prevMean, prevTotal = b.Mean(), b.Alpha+b.Beta
		s = next
	}
}

func TestRepair_ReinitializesOnShapeMismatch(t *testing.T) {
	s := InitialState("tone_1", KindLuce, 6, 1.0, PolicyUniform)
	s.Counts = s.Counts[:10] // corrupt: wrong length for n_classes=6

	repaired := Repair(s, 6, 1.0, PolicyUniform)
	assert.True(t, repaired)
	assert.Len(t, s.Counts, 36)
}
