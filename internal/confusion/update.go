package confusion

import "fmt"

// Update applies one observation. All three variants share storage and this
// same update rule: increment Counts[correct][selected] by 1. Copy-on-
// update: the input state is untouched, a new state is returned alongside
// the tracker-id/old/new triples the observability design calls for.
//
// Only the selected class's membership in PresentedClasses is validated
// here (ErrInvalidAnswer); the caller is responsible for validating full
// multi-syllable sequence equality before reducing down to this per-class
// view. Multi-syllable problems are reduced to a single (correct,
// selected) class pair one layer up, in the sampler, leaving later
// syllables unobserved. That reduction is a deliberate simplification and
// an extension point, not something to generalize here.
func Update(s *State, p Problem, a Answer) (*State, []StateUpdate, error) {
	if !contains(p.PresentedClasses, a.SelectedClass) {
		return nil, nil, ErrInvalidAnswer{SelectedClass: a.SelectedClass, PresentedClasses: p.PresentedClasses}
	}

	next := s.clone()
	i := p.CorrectClass - 1
	j := a.SelectedClass - 1
	idx := i*next.NClasses + j

	old := next.Counts[idx]
	next.Counts[idx] = old + 1

	update := StateUpdate{
		TrackerID: trackerID(s.ProblemTypeID, p.CorrectClass, a.SelectedClass),
		OldValue:  old,
		NewValue:  old + 1,
	}

	return next, []StateUpdate{update}, nil
}

func trackerID(problemTypeID string, correct, selected int) string {
	return fmt.Sprintf("%s:%d:%d", problemTypeID, correct, selected)
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
