package confusion

import "fmt"

// PairKey identifies an unordered pair of classes a < b.
type PairKey struct {
	A, B int
}

// String renders the pair as "a-b", matching the word index's sequence-key
// dash-join convention.
func (k PairKey) String() string {
	return fmt.Sprintf("%d-%d", k.A, k.B)
}

// AllPairStats computes, for every unordered pair (a, b) with a < b, a Beta
// distribution summarizing the two-alternative success rate: form the two
// synthetic two-choice problems (a correct vs b, and b correct vs a),
// compute each variant's success Beta, then combine with an equal-weight
// moment-matched Beta mixture. Shared verbatim across all three model
// variants -- only the underlying successDistribution call differs.
func (m Model) AllPairStats(s *State) map[PairKey]Beta {
	out := make(map[PairKey]Beta)
	for a := 1; a <= s.NClasses; a++ {
		for b := a + 1; b <= s.NClasses; b++ {
			aCorrect := Problem{CorrectClass: a, PresentedClasses: []int{a, b}}
			bCorrect := Problem{CorrectClass: b, PresentedClasses: []int{a, b}}

			betaA := m.SuccessDistribution(s, aCorrect)
			betaB := m.SuccessDistribution(s, bCorrect)

			out[PairKey{A: a, B: b}] = BetaMixtureApprox(betaA, betaB)
		}
	}
	return out
}
