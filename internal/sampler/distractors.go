package sampler

import "github.com/knutdrand/language-app/internal/xrand"

const (
	distractorReplaceProbability = 0.7
	distractorMaxAttempts        = 50
)

func sequenceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsSequence(seqs [][]int, candidate []int) bool {
	for _, s := range seqs {
		if sequenceEqual(s, candidate) {
			return true
		}
	}
	return false
}

// generateDistractors produces `count` sequences of the same length as
// correct, each distinct from correct and from one another, by
// independently perturbing each syllable's class with probability 0.7 (else
// keeping it), retrying up to 50 times. Any shortfall is filled with
// deterministic perturbations of the correct sequence so the call never
// fails to produce the required count.
func generateDistractors(rng *xrand.Source, correct []int, nClasses, count int) [][]int {
	var out [][]int

	for attempt := 0; attempt < distractorMaxAttempts && len(out) < count; attempt++ {
		candidate := make([]int, len(correct))
		for i, c := range correct {
			if rng.Float64() < distractorReplaceProbability {
				candidate[i] = differentClass(rng, c, nClasses)
			} else {
				candidate[i] = c
			}
		}
		if sequenceEqual(candidate, correct) {
			continue
		}
		if containsSequence(out, candidate) {
			continue
		}
		out = append(out, candidate)
	}

	// Deterministic fallback: modulo-perturb the last syllable's class by
	// increasing offsets until the required count is reached.
	offset := 1
	for len(out) < count {
		candidate := make([]int, len(correct))
		copy(candidate, correct)
		last := len(candidate) - 1
		candidate[last] = ((candidate[last]-1+offset)%nClasses+nClasses)%nClasses + 1
		offset++
		if sequenceEqual(candidate, correct) || containsSequence(out, candidate) {
			continue
		}
		out = append(out, candidate)
	}

	return out
}

// GenerateDistractors exposes generateDistractors for reuse by themed
// lesson sampling, which needs the identical perturbation rule so mistake
// drills and adaptive drills never diverge on distractor quality.
func GenerateDistractors(rng *xrand.Source, correct []int, nClasses, count int) [][]int {
	return generateDistractors(rng, correct, nClasses, count)
}

func differentClass(rng *xrand.Source, current, nClasses int) int {
	if nClasses <= 1 {
		return current
	}
	for {
		c := rng.Intn(nClasses) + 1
		if c != current {
			return c
		}
	}
}
