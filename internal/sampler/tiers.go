package sampler

import (
	"sort"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/xrand"
)

// tractableSubsetThreshold is the largest class count for which every
// canonical C(n_classes, 4) subset is enumerated exhaustively (fifteen for the
// six-class tone family). Above it -- the twelve-class vowel family -- a
// heuristic subset stands in.
const tractableSubsetThreshold = 6

// combinationsOfFour enumerates every 4-element subset of {1..n}, 1-indexed.
func combinationsOfFour(n int) [][]int {
	var out [][]int
	var combo []int
	var rec func(start int)
	rec = func(start int) {
		if len(combo) == 4 {
			subset := make([]int, 4)
			copy(subset, combo)
			out = append(out, subset)
			return
		}
		for v := start; v <= n; v++ {
			combo = append(combo, v)
			rec(v + 1)
			combo = combo[:len(combo)-1]
		}
	}
	rec(1)
	return out
}

// heuristicFourClassSubset greedily collects classes from the most-confused
// pairs (lowest pair-stat mean first) until four distinct classes are
// gathered, padding with random classes if the comparison graph is too
// sparse. Used in place of exhaustive enumeration when n_classes is large.
func heuristicFourClassSubset(pairStats map[confusion.PairKey]confusion.Beta, nClasses int, rng *xrand.Source) []int {
	type ranked struct {
		pair confusion.PairKey
		mean float64
	}
	ranked_ := make([]ranked, 0, len(pairStats))
	for p, b := range pairStats {
		ranked_ = append(ranked_, ranked{pair: p, mean: b.Mean()})
	}
	sort.Slice(ranked_, func(i, j int) bool { return ranked_[i].mean < ranked_[j].mean })

	seen := make(map[int]bool, 4)
	var order []int
	for _, r := range ranked_ {
		for _, c := range []int{r.pair.A, r.pair.B} {
			if !seen[c] {
				seen[c] = true
				order = append(order, c)
			}
		}
		if len(order) >= 4 {
			break
		}
	}
	for len(order) < 4 {
		c := rng.Intn(nClasses) + 1
		if !seen[c] {
			seen[c] = true
			order = append(order, c)
		}
	}
	return order[:4]
}

// fourClassSubsets returns the canonical four-class subsets used for
// tiering and four-choice sampling: exhaustive when tractable, else a
// single heuristic subset.
func fourClassSubsets(nClasses int, pairStats map[confusion.PairKey]confusion.Beta, rng *xrand.Source) [][]int {
	if nClasses <= tractableSubsetThreshold {
		return combinationsOfFour(nClasses)
	}
	return [][]int{heuristicFourClassSubset(pairStats, nClasses, rng)}
}

// subsetMean averages the pair-stat means of every unordered pair within a
// four-class subset, used both as the four-choice set's predicted mastery
// mean and as its sampling weight basis.
func subsetMean(subset []int, pairStats map[confusion.PairKey]confusion.Beta) float64 {
	total, count := 0.0, 0
	for i := 0; i < len(subset); i++ {
		for j := i + 1; j < len(subset); j++ {
			a, b := subset[i], subset[j]
			if a > b {
				a, b = b, a
			}
			if beta, ok := pairStats[confusion.PairKey{A: a, B: b}]; ok {
				total += beta.Mean()
				count++
			}
		}
	}
	if count == 0 {
		return 0.5
	}
	return total / float64(count)
}

// computeTier assigns one of the three difficulty tiers from the
// single-syllable posterior's pair and four-choice statistics. Tiering
// uses the canonical-subset check; no minimum-attempts gate is applied.
func computeTier(pairStats map[confusion.PairKey]confusion.Beta, subsets [][]int, pairMastery, fourChoiceMastery float64) models.DifficultyLevel {
	for _, b := range pairStats {
		if b.Mean() < pairMastery {
			return models.DifficultyTwoChoice
		}
	}
	for _, subset := range subsets {
		if subsetMean(subset, pairStats) < fourChoiceMastery {
			return models.DifficultyMixed
		}
	}
	return models.DifficultyFourChoiceMulti
}

// bumpTier returns the next tier up, capped at the top -- the preview
// probability's effect.
func bumpTier(tier models.DifficultyLevel) models.DifficultyLevel {
	switch tier {
	case models.DifficultyTwoChoice:
		return models.DifficultyMixed
	default:
		return models.DifficultyFourChoiceMulti
	}
}
