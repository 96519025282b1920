// Package replay reconstructs a posterior from an ordered event log by
// feeding each record through the confusion model's Update starting from
// InitialState. Replaying the events for a given (user, problem_type) in
// order deterministically reproduces the posterior, bit-for-bit for the
// reference Luce-pseudocount variant.
package replay

import (
	"fmt"
	"math"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
)

// Reconstruct replays events in order through model.Update, starting from
// InitialState(problemTypeID, nClasses, prior, policy). Events are
// expected to already be filtered to one (user, problem_type) and sorted
// by created_at, as EventsForUserProblemType returns them.
//
// Only the first syllable's class of each event is ever observed,
// mirroring Update's own reduction of multi-syllable problems.
func Reconstruct(model confusion.Model, events []models.Event, problemTypeID string, nClasses int, prior float64, policy confusion.InitialPolicy) (*confusion.State, error) {
	state := model.InitialState(problemTypeID, nClasses, prior, policy)

	for i, e := range events {
		if len(e.CorrectSequence) == 0 || len(e.SelectedSequence) == 0 {
			return nil, fmt.Errorf("replay: event %d has an empty sequence", i)
		}

		problem := confusion.Problem{
			CorrectClass:     e.CorrectSequence[0],
			PresentedClasses: firstClasses(e.Alternatives),
		}
		answer := confusion.Answer{SelectedClass: e.SelectedSequence[0]}

		next, _, err := model.Update(state, problem, answer)
		if err != nil {
			return nil, fmt.Errorf("replay: event %d: %w", i, err)
		}
		state = next
	}

	return state, nil
}

func firstClasses(seqs []models.Sequence) []int {
	out := make([]int, len(seqs))
	for i, s := range seqs {
		out[i] = s[0]
	}
	return out
}

// Verify compares a reconstructed posterior's matrix entries against a
// stored posterior's, reporting the total absolute difference. A
// non-zero result past floating-point
// tolerance indicates the stored posterior was not produced by replaying
// exactly this event sequence (e.g. it predates a policy change, or
// events are missing).
func Verify(reconstructed, stored *confusion.State) (float64, error) {
	if reconstructed.NClasses != stored.NClasses || len(reconstructed.Counts) != len(stored.Counts) {
		return 0, fmt.Errorf("replay: shape mismatch comparing reconstructed (%d) to stored (%d) posteriors",
			reconstructed.NClasses, stored.NClasses)
	}

	total := 0.0
	for i := range reconstructed.Counts {
		total += math.Abs(reconstructed.Counts[i] - stored.Counts[i])
	}
	return total, nil
}
