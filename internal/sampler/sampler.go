// Package sampler implements the adaptive drill sampler: it consumes
// confusion-model queries and the word index to choose a difficulty tier
// and sample the next problem weighted toward high-error regions. The
// sampler does no I/O and keeps no process-wide state: every call reads a
// caller-owned posterior map and writes fresh states back into it.
package sampler

import (
	"math"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
	"github.com/knutdrand/language-app/internal/xrand"
)

// CanonicalFallbackWordID is the sentinel word id of the last-resort
// fallback problem returned when every sampling strategy comes up empty.
const CanonicalFallbackWordID = 0

// PosteriorStore is the caller-owned snapshot of per-problem-type
// posteriors the sampler reads and (functionally) updates.
type PosteriorStore map[string]*confusion.State

// Config bundles the sampler's recognized tunables.
type Config struct {
	PairMastery            float64
	FourChoiceMastery      float64
	PreviewProbability     float64
	SamplingAggressiveness float64
	InitialStatePolicy     confusion.InitialPolicy
}

// Sampler ties together the taxonomy registry, a chosen confusion-model
// variant, a seeded PRNG, and one word index per drill family.
type Sampler struct {
	Registry *taxonomy.Registry
	Model    confusion.Model
	RNG      *xrand.Source
	Indexes  map[wordindex.Family]*wordindex.Index
	Config   Config
}

// New builds a Sampler.
func New(registry *taxonomy.Registry, model confusion.Model, rng *xrand.Source, indexes map[wordindex.Family]*wordindex.Index, cfg Config) *Sampler {
	return &Sampler{Registry: registry, Model: model, RNG: rng, Indexes: indexes, Config: cfg}
}

func firstClasses(seqs []models.Sequence) []int {
	out := make([]int, len(seqs))
	for i, s := range seqs {
		out[i] = s[0]
	}
	return out
}

func (s *Sampler) stateFor(store PosteriorStore, problemTypeID string) (*confusion.State, taxonomy.Descriptor, error) {
	desc, err := s.Registry.Get(problemTypeID)
	if err != nil {
		return nil, taxonomy.Descriptor{}, err
	}
	st, ok := store[problemTypeID]
	if !ok {
		st = s.Model.InitialState(problemTypeID, desc.NClasses, desc.PriorStrength, s.Config.InitialStatePolicy)
	} else if confusion.Repair(st, desc.NClasses, desc.PriorStrength, s.Config.InitialStatePolicy) {
		// ShapeMismatch: corrupt posterior re-initialized from priors in
		// place by Repair; caller's persistence layer logs the warning.
	}
	return st, desc, nil
}

// ApplyAnswer exposes the update stage standalone, for callers that own
// their own drill-selection strategy (the themed lesson controller) but
// still need the sampler/model to record the observation -- the lesson
// controller never touches posterior state itself.
func (s *Sampler) ApplyAnswer(store PosteriorStore, prev *models.PreviousAnswer) ([]models.StateUpdate, error) {
	return s.applyPreviousAnswer(store, prev)
}

// applyPreviousAnswer performs the update stage: if a previous answer is
// supplied, updates the posterior for its problem type only. Returns the
// state-update trace (empty if no previous answer).
func (s *Sampler) applyPreviousAnswer(store PosteriorStore, prev *models.PreviousAnswer) ([]models.StateUpdate, error) {
	if prev == nil {
		return nil, nil
	}
	if !prev.SelectedSequence.Equal(prev.CorrectSequence) {
		matched := false
		for _, alt := range prev.Alternatives {
			if prev.SelectedSequence.Equal(alt) {
				matched = true
				break
			}
		}
		if !matched {
			return nil, confusion.ErrInvalidAnswer{}
		}
	}

	st, _, err := s.stateFor(store, prev.ProblemTypeID)
	if err != nil {
		return nil, err
	}

	problem := confusion.Problem{
		CorrectClass:     prev.CorrectSequence[0],
		PresentedClasses: firstClasses(prev.Alternatives),
	}
	answer := confusion.Answer{SelectedClass: prev.SelectedSequence[0]}

	next, updates, err := s.Model.Update(st, problem, answer)
	if err != nil {
		return nil, err
	}
	store[prev.ProblemTypeID] = next

	out := make([]models.StateUpdate, len(updates))
	for i, u := range updates {
		out[i] = models.StateUpdate{TrackerID: u.TrackerID, OldValue: u.OldValue, NewValue: u.NewValue}
	}
	return out, nil
}

// NextDrill runs the full three-stage sampling pipeline (update,
// tiering, selection) for one
// drill family and returns the next problem and the difficulty/stat trace;
// the updated posteriors are written into store. Never returns an error other
// than UnknownProblemType or InvalidAnswer; every other degeneracy is
// locally clamped and the fallback chain guarantees a drill is returned.
func (s *Sampler) NextDrill(family wordindex.Family, store PosteriorStore, prev *models.PreviousAnswer) (models.NextDrillResult, error) {
	updates, err := s.applyPreviousAnswer(store, prev)
	if err != nil {
		return models.NextDrillResult{}, err
	}

	singleTypeID := taxonomy.MakeID(string(family), 1)
	singleState, singleDesc, err := s.stateFor(store, singleTypeID)
	if err != nil {
		return models.NextDrillResult{}, err
	}
	store[singleTypeID] = singleState

	pairStats := s.Model.AllPairStats(singleState)
	subsets := fourClassSubsets(singleDesc.NClasses, pairStats, s.RNG)

	tier := computeTier(pairStats, subsets, s.Config.PairMastery, s.Config.FourChoiceMastery)
	if s.RNG.Float64() < s.Config.PreviewProbability {
		tier = bumpTier(tier)
	}

	idx := s.Indexes[family]
	problem, err := s.sampleForTier(family, idx, singleDesc.NClasses, tier, pairStats, subsets, store)
	if err != nil {
		return models.NextDrillResult{}, err
	}

	return models.NextDrillResult{
		Drill:           problem,
		DifficultyLevel: tier,
		StateUpdates:    updates,
		PairStats:       pairStatsToModel(pairStats),
		FourChoiceStats: fourChoiceStatsToModel(subsets, pairStats),
	}, nil
}

// Stats implements the stats operation: difficulty level plus pair
// and four-choice statistics, without sampling a new drill.
func (s *Sampler) Stats(family wordindex.Family, store PosteriorStore) (models.StatsResult, error) {
	singleTypeID := taxonomy.MakeID(string(family), 1)
	singleState, singleDesc, err := s.stateFor(store, singleTypeID)
	if err != nil {
		return models.StatsResult{}, err
	}
	store[singleTypeID] = singleState

	pairStats := s.Model.AllPairStats(singleState)
	subsets := fourClassSubsets(singleDesc.NClasses, pairStats, s.RNG)
	tier := computeTier(pairStats, subsets, s.Config.PairMastery, s.Config.FourChoiceMastery)

	return models.StatsResult{
		DifficultyLevel: tier,
		PairStats:       pairStatsToModel(pairStats),
		FourChoiceStats: fourChoiceStatsToModel(subsets, pairStats),
	}, nil
}

func pairStatsToModel(pairStats map[confusion.PairKey]confusion.Beta) []models.PairStat {
	out := make([]models.PairStat, 0, len(pairStats))
	for p, b := range pairStats {
		out = append(out, models.PairStat{Pair: [2]int{p.A, p.B}, Alpha: b.Alpha, Beta: b.Beta, Mean: b.Mean()})
	}
	return out
}

func fourChoiceStatsToModel(subsets [][]int, pairStats map[confusion.PairKey]confusion.Beta) []models.FourChoiceStat {
	out := make([]models.FourChoiceStat, 0, len(subsets))
	for _, subset := range subsets {
		mean := subsetMean(subset, pairStats)
		out = append(out, models.FourChoiceStat{
			Set:   append([]int(nil), subset...),
			Alpha: mean * 10,
			Beta:  (1 - mean) * 10,
			Mean:  mean,
		})
	}
	return out
}

func defaultAudioVoice() string { return "banmai" }
func defaultAudioSpeed() int    { return 0 }

// canonicalFallbackProblem is the fixed last-resort problem guaranteed
// never to fail: word_id=0, "xin chào", correct=[1], alternatives=[[1],[2]].
func canonicalFallbackProblem(problemTypeID string) models.Problem {
	return models.Problem{
		ProblemTypeID:   problemTypeID,
		WordID:          CanonicalFallbackWordID,
		SurfaceForm:     "xin chào",
		CorrectSequence: models.Sequence{1},
		Alternatives:    []models.Sequence{{1}, {2}},
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}
}

// sampleWordForPair looks up a single-syllable word of class correct; if
// none exists, retries with the pair's other class before falling through
// to the generic any-word fallback. matchedOther reports
// whether the word actually returned belongs to other rather than correct,
// so the caller can swap which class it treats as correct.
func (s *Sampler) sampleWordForPair(idx *wordindex.Index, correct, other int) (word wordindex.Word, seq []int, matchedOther, ok bool) {
	if idx == nil || idx.IsEmpty() {
		return wordindex.Word{}, nil, false, false
	}

	if words := idx.WordsForKey(wordindex.SequenceKey([]int{correct})); len(words) > 0 {
		return words[s.RNG.Intn(len(words))], []int{correct}, false, true
	}
	if words := idx.WordsForKey(wordindex.SequenceKey([]int{other})); len(words) > 0 {
		return words[s.RNG.Intn(len(words))], []int{other}, true, true
	}

	word, seq, ok = s.sampleFallbackWord(idx)
	return word, seq, false, ok
}

// sampleWordForClassSet tries each class in classes, in the order given by
// the caller (e.g. already shuffled), looking up a single-syllable word of
// that class, before falling through to the generic any-word fallback.
func (s *Sampler) sampleWordForClassSet(idx *wordindex.Index, classes []int) (word wordindex.Word, correct int, seq []int, ok bool) {
	if idx == nil || idx.IsEmpty() {
		return wordindex.Word{}, 0, nil, false
	}

	for _, c := range classes {
		if words := idx.WordsForKey(wordindex.SequenceKey([]int{c})); len(words) > 0 {
			return words[s.RNG.Intn(len(words))], c, []int{c}, true
		}
	}

	word, seq, ok = s.sampleFallbackWord(idx)
	if !ok || len(seq) == 0 {
		return wordindex.Word{}, 0, nil, false
	}
	return word, seq[len(seq)-1], seq, true
}

// sampleFallbackWord is the generic word fallback: any word from any key in
// the index.
func (s *Sampler) sampleFallbackWord(idx *wordindex.Index) (wordindex.Word, []int, bool) {
	keys := idx.AllKeys()
	if len(keys) == 0 {
		return wordindex.Word{}, nil, false
	}
	key := keys[s.RNG.Intn(len(keys))]
	words := idx.WordsForKey(key)
	if len(words) == 0 {
		return wordindex.Word{}, nil, false
	}
	seq := parseSequenceKey(key)
	return words[s.RNG.Intn(len(words))], seq, true
}

func parseSequenceKey(key string) []int {
	var seq []int
	cur := 0
	has := false
	for _, r := range key {
		if r == '-' {
			if has {
				seq = append(seq, cur)
			}
			cur, has = 0, false
			continue
		}
		cur = cur*10 + int(r-'0')
		has = true
	}
	if has {
		seq = append(seq, cur)
	}
	return seq
}

func (s *Sampler) sampleForTier(family wordindex.Family, idx *wordindex.Index, nClasses int, tier models.DifficultyLevel, pairStats map[confusion.PairKey]confusion.Beta, subsets [][]int, store PosteriorStore) (models.Problem, error) {
	if idx == nil || idx.IsEmpty() {
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}

	switch tier {
	case models.DifficultyTwoChoice:
		return s.sampleTwoChoice(family, idx, nClasses, pairStats)
	case models.DifficultyMixed:
		if s.RNG.Bool() {
			return s.sampleFourChoiceSingleSyllable(family, idx, nClasses, subsets, pairStats)
		}
		return s.sampleTwoChoiceTwoSyllable(family, idx, nClasses)
	case models.DifficultyFourChoiceMulti:
		return s.sampleFourChoiceMultiSyllable(family, idx, nClasses)
	default:
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}
}

// sampleTwoChoice weights each pair by (1-mean)^gamma, samples one pair,
// flips a fair coin for which class is correct, and looks up a word.
func (s *Sampler) sampleTwoChoice(family wordindex.Family, idx *wordindex.Index, nClasses int, pairStats map[confusion.PairKey]confusion.Beta) (models.Problem, error) {
	pairs := make([]confusion.PairKey, 0, len(pairStats))
	weights := make([]float64, 0, len(pairStats))
	for p, b := range pairStats {
		pairs = append(pairs, p)
		weights = append(weights, errorWeight(b.Mean(), s.Config.SamplingAggressiveness))
	}
	if len(pairs) == 0 {
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}

	chosen := pairs[s.RNG.WeightedIndex(weights)]
	correct, other := chosen.A, chosen.B
	if s.RNG.Bool() {
		correct, other = other, correct
	}

	word, seq, matchedOther, ok := s.sampleWordForPair(idx, correct, other)
	if !ok {
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}
	if matchedOther {
		correct, other = other, correct
	}

	altSeq := make([]int, len(seq))
	copy(altSeq, seq)
	altSeq[len(altSeq)-1] = other

	return models.Problem{
		ProblemTypeID:   taxonomy.MakeID(string(family), 1),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: toSeq(seq),
		Alternatives:    []models.Sequence{toSeq(seq), toSeq(altSeq)},
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

func errorWeight(mean, gamma float64) float64 {
	err := 1 - mean
	if err < 0 {
		err = 0
	}
	return math.Pow(err, gamma)
}

func (s *Sampler) sampleFourChoiceSingleSyllable(family wordindex.Family, idx *wordindex.Index, nClasses int, subsets [][]int, pairStats map[confusion.PairKey]confusion.Beta) (models.Problem, error) {
	if len(subsets) == 0 {
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}
	weights := make([]float64, len(subsets))
	for i, subset := range subsets {
		weights[i] = 1 - subsetMean(subset, pairStats)
	}
	subset := append([]int(nil), subsets[s.RNG.WeightedIndex(weights)]...)
	s.RNG.Shuffle(len(subset), func(i, j int) { subset[i], subset[j] = subset[j], subset[i] })

	word, correct, seq, ok := s.sampleWordForClassSet(idx, subset)
	if !ok {
		return canonicalFallbackProblem(taxonomy.MakeID(string(family), 1)), nil
	}
	// The generic fallback word's class may lie outside the subset; swap it
	// in so the correct sequence is always among the alternatives.
	inSubset := false
	for _, c := range subset {
		if c == correct {
			inSubset = true
		}
	}
	if !inSubset {
		subset[0] = correct
	}

	alternatives := make([]models.Sequence, 0, len(subset))
	for _, c := range subset {
		alt := make([]int, len(seq))
		copy(alt, seq)
		alt[len(alt)-1] = c
		alternatives = append(alternatives, toSeq(alt))
	}

	correctSeq := make([]int, len(seq))
	copy(correctSeq, seq)
	correctSeq[len(correctSeq)-1] = correct

	return models.Problem{
		ProblemTypeID:   taxonomy.MakeID(string(family), 1),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: toSeq(correctSeq),
		Alternatives:    alternatives,
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

func (s *Sampler) sampleTwoChoiceTwoSyllable(family wordindex.Family, idx *wordindex.Index, nClasses int) (models.Problem, error) {
	keys := idx.KeysOfLength(2)
	if len(keys) == 0 {
		return s.sampleTwoChoice(family, idx, nClasses, nil)
	}
	key := keys[s.RNG.Intn(len(keys))]
	words := idx.WordsForKey(key)
	word := words[s.RNG.Intn(len(words))]
	seq := parseSequenceKey(key)

	distractors := generateDistractors(s.RNG, seq, nClasses, 1)

	alternatives := []models.Sequence{toSeq(seq), toSeq(distractors[0])}
	s.RNG.Shuffle(len(alternatives), func(i, j int) { alternatives[i], alternatives[j] = alternatives[j], alternatives[i] })

	return models.Problem{
		ProblemTypeID:   taxonomy.MakeID(string(family), 2),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: toSeq(seq),
		Alternatives:    alternatives,
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

func (s *Sampler) sampleFourChoiceMultiSyllable(family wordindex.Family, idx *wordindex.Index, nClasses int) (models.Problem, error) {
	keys := idx.KeysOfLength(2)
	if len(keys) == 0 {
		return s.sampleFourChoiceSingleSyllable(family, idx, nClasses, nil, nil)
	}
	key := keys[s.RNG.Intn(len(keys))]
	words := idx.WordsForKey(key)
	word := words[s.RNG.Intn(len(words))]
	seq := parseSequenceKey(key)

	distractors := generateDistractors(s.RNG, seq, nClasses, 3)

	alternatives := []models.Sequence{toSeq(seq)}
	for _, d := range distractors {
		alternatives = append(alternatives, toSeq(d))
	}
	s.RNG.Shuffle(len(alternatives), func(i, j int) { alternatives[i], alternatives[j] = alternatives[j], alternatives[i] })

	return models.Problem{
		ProblemTypeID:   taxonomy.MakeID(string(family), 2),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: toSeq(seq),
		Alternatives:    alternatives,
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

func toSeq(ints []int) models.Sequence {
	out := make(models.Sequence, len(ints))
	copy(out, ints)
	return out
}
