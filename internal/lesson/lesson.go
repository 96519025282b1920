// Package lesson implements the themed-lesson state machine: a
// fixed-length learning phase followed by a single-pass mistake-review
// phase. Lesson state is ephemeral, in-process, and owned by this package
// for the lifetime of a session; the permanent record is the event log the
// caller writes, not this state.
package lesson

import (
	"fmt"
	"sort"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/sampler"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
	"github.com/knutdrand/language-app/internal/xrand"
)

// Phase is one of the three lesson states.
type Phase string

const (
	PhaseLearning Phase = "LEARNING"
	PhaseReview   Phase = "REVIEW"
	PhaseComplete Phase = "COMPLETE"
)

// DrillMode names one entry of the ten-drill learning-phase plan.
type DrillMode string

const (
	ModeTwoChoice1Syl  DrillMode = "TWO_CHOICE_1SYL"
	ModeFourChoice1Syl DrillMode = "FOUR_CHOICE_1SYL"
	ModeTwoChoice2Syl  DrillMode = "TWO_CHOICE_2SYL"
)

// MistakeRecord is one incorrectly-answered learning-phase drill, replayed
// in order during the review phase.
type MistakeRecord struct {
	Problem  models.Problem
	Mode     DrillMode
	Selected models.Sequence
}

// State is the ephemeral per-session lesson state.
type State struct {
	LessonID      int
	Family        wordindex.Family
	ThemeID       int
	ThemePairs    []ThemePair
	DrillPlan     []DrillMode
	CurrentIndex  int
	Phase         Phase
	Mistakes      []MistakeRecord
	ReviewIndex   int
	totalAnswered int
}

// IsComplete reports whether the lesson has reached the COMPLETE phase.
func (s *State) IsComplete() bool {
	return s.Phase == PhaseComplete
}

// Progress is the fraction of the lesson's total drills (learning plus
// review) completed so far.
func (s *State) Progress() float64 {
	total := len(s.DrillPlan) + len(s.Mistakes)
	if total == 0 {
		return 1.0
	}
	return float64(s.totalAnswered) / float64(total)
}

// Summary is the lesson-completion output shape.
type Summary struct {
	LessonID      int
	ThemeID       int
	ThemePairs    []ThemePair
	TotalDrills   int
	MistakesCount int
	AccuracyPct   float64
}

// Controller drives lessons for one drill family. It shares the registry,
// PRNG and word index with the adaptive, non-themed sampler and reuses its
// distractor rule; only the word-selection strategy differs (themed rather
// than globally weighted).
type Controller struct {
	Registry        *taxonomy.Registry
	RNG             *xrand.Source
	Index           *wordindex.Index
	Family          wordindex.Family
	DrillsPerLesson int
}

// NewController builds a lesson Controller.
func NewController(registry *taxonomy.Registry, rng *xrand.Source, index *wordindex.Index, family wordindex.Family, drillsPerLesson int) *Controller {
	return &Controller{Registry: registry, RNG: rng, Index: index, Family: family, DrillsPerLesson: drillsPerLesson}
}

// NextLessonID computes a fresh lesson id: the max id seen in the event log
// plus one. The caller supplies that max (persistence is out of this
// package's scope).
func NextLessonID(maxExisting int) int {
	return maxExisting + 1
}

// Start begins a new lesson. themeID selects an explicit theme index,
// wrapping by modulo; if nil, the theme is chosen adaptively from the two
// pairs with the lowest pair-stat means in pairStats.
func (c *Controller) Start(lessonID int, themeID *int, pairStats map[confusion.PairKey]confusion.Beta) *State {
	themes := Themes(c.Family)
	var theme Theme
	if themeID != nil && len(themes) > 0 {
		theme = themes[((*themeID)%len(themes)+len(themes))%len(themes)]
	} else if len(themes) > 0 {
		theme = Theme{ID: -1, Pairs: c.selectAdaptiveThemePairs(pairStats)}
	}

	return &State{
		LessonID:   lessonID,
		Family:     c.Family,
		ThemeID:    theme.ID,
		ThemePairs: theme.Pairs,
		DrillPlan:  c.generateDrillPlan(),
		Phase:      PhaseLearning,
	}
}

// selectAdaptiveThemePairs picks the two pairs with the lowest pair-stat
// means as the adaptive theme.
func (c *Controller) selectAdaptiveThemePairs(pairStats map[confusion.PairKey]confusion.Beta) []ThemePair {
	type ranked struct {
		pair confusion.PairKey
		mean float64
	}
	ranked_ := make([]ranked, 0, len(pairStats))
	for p, b := range pairStats {
		ranked_ = append(ranked_, ranked{pair: p, mean: b.Mean()})
	}
	sort.Slice(ranked_, func(i, j int) bool { return ranked_[i].mean < ranked_[j].mean })

	var out []ThemePair
	for i := 0; i < len(ranked_) && i < 2; i++ {
		out = append(out, ThemePair{ranked_[i].pair.A, ranked_[i].pair.B})
	}
	if len(out) == 0 {
		out = []ThemePair{{1, 2}}
	}
	return out
}

// generateDrillPlan builds the shuffled 6/2/2 drill-mode plan.
func (c *Controller) generateDrillPlan() []DrillMode {
	n := c.DrillsPerLesson
	if n <= 0 {
		n = 10
	}
	// Scale the canonical 6/2/2 mix proportionally for non-default lesson
	// lengths, defaulting back to the exact mix at n=10.
	twoChoice1 := n * 6 / 10
	fourChoice1 := n * 2 / 10
	twoChoice2 := n - twoChoice1 - fourChoice1

	plan := make([]DrillMode, 0, n)
	for i := 0; i < twoChoice1; i++ {
		plan = append(plan, ModeTwoChoice1Syl)
	}
	for i := 0; i < fourChoice1; i++ {
		plan = append(plan, ModeFourChoice1Syl)
	}
	for i := 0; i < twoChoice2; i++ {
		plan = append(plan, ModeTwoChoice2Syl)
	}

	c.RNG.Shuffle(len(plan), func(i, j int) { plan[i], plan[j] = plan[j], plan[i] })
	return plan
}

// NextDrillOutcome is NextDrill's result: either a drill to present, or a
// completed-lesson summary.
type NextDrillOutcome struct {
	Drill    *models.Problem
	Mode     DrillMode
	Complete bool
	Summary  *Summary
}

// NextDrill returns the next drill for the current phase, or the lesson
// summary if the lesson just completed.
func (c *Controller) NextDrill(state *State) (NextDrillOutcome, error) {
	switch state.Phase {
	case PhaseLearning:
		if state.CurrentIndex >= len(state.DrillPlan) {
			return c.transitionAfterLearning(state)
		}
		mode := state.DrillPlan[state.CurrentIndex]
		problem, err := c.sampleForMode(state, mode)
		if err != nil {
			return NextDrillOutcome{}, err
		}
		return NextDrillOutcome{Drill: &problem, Mode: mode}, nil

	case PhaseReview:
		if state.ReviewIndex >= len(state.Mistakes) {
			state.Phase = PhaseComplete
			s := c.summarize(state)
			return NextDrillOutcome{Complete: true, Summary: &s}, nil
		}
		mistake := state.Mistakes[state.ReviewIndex]
		problem := mistake.Problem
		return NextDrillOutcome{Drill: &problem, Mode: mistake.Mode}, nil

	default: // PhaseComplete
		s := c.summarize(state)
		return NextDrillOutcome{Complete: true, Summary: &s}, nil
	}
}

func (c *Controller) transitionAfterLearning(state *State) (NextDrillOutcome, error) {
	if len(state.Mistakes) > 0 {
		state.Phase = PhaseReview
		mistake := state.Mistakes[0]
		problem := mistake.Problem
		return NextDrillOutcome{Drill: &problem, Mode: mistake.Mode}, nil
	}
	state.Phase = PhaseComplete
	s := c.summarize(state)
	return NextDrillOutcome{Complete: true, Summary: &s}, nil
}

// RecordAnswer records one learning- or review-phase answer. In the
// learning phase, an incorrect answer is appended to the mistake list
// before the cursor advances; in the review phase the cursor advances
// regardless of correctness. The controller never touches posterior
// state -- that is the sampler/model's job; this only advances the state
// machine and the mistake list.
func (c *Controller) RecordAnswer(state *State, problem models.Problem, mode DrillMode, answer models.Answer) {
	state.totalAnswered++
	switch state.Phase {
	case PhaseLearning:
		if !answer.IsCorrect(problem) {
			state.Mistakes = append(state.Mistakes, MistakeRecord{Problem: problem, Mode: mode, Selected: answer.SelectedSequence})
		}
		state.CurrentIndex++
	case PhaseReview:
		state.ReviewIndex++
	}
}

func (c *Controller) summarize(state *State) Summary {
	total := len(state.DrillPlan)
	correct := total - len(state.Mistakes)
	accuracy := 100.0
	if total > 0 {
		accuracy = 100.0 * float64(correct) / float64(total)
	}
	return Summary{
		LessonID:      state.LessonID,
		ThemeID:       state.ThemeID,
		ThemePairs:    state.ThemePairs,
		TotalDrills:   total,
		MistakesCount: len(state.Mistakes),
		AccuracyPct:   accuracy,
	}
}

func (c *Controller) sampleForMode(state *State, mode DrillMode) (models.Problem, error) {
	switch mode {
	case ModeTwoChoice1Syl:
		return c.sampleTwoChoiceThemed(state)
	case ModeFourChoice1Syl:
		return c.sampleFourChoiceThemed(state)
	case ModeTwoChoice2Syl:
		return c.sampleTwoChoiceTwoSylThemed(state)
	default:
		return models.Problem{}, fmt.Errorf("lesson: unknown drill mode %q", mode)
	}
}

func (c *Controller) problemTypeID1() string { return taxonomy.MakeID(string(c.Family), 1) }
func (c *Controller) problemTypeID2() string { return taxonomy.MakeID(string(c.Family), 2) }

// sampleTwoChoiceThemed picks one of the lesson's theme pairs uniformly,
// presents both classes, and selects a word of one of them.
func (c *Controller) sampleTwoChoiceThemed(state *State) (models.Problem, error) {
	if len(state.ThemePairs) == 0 {
		return c.fallback1Syl(), nil
	}
	pair := state.ThemePairs[c.RNG.Intn(len(state.ThemePairs))]
	correct, other := pair[0], pair[1]
	if c.RNG.Bool() {
		correct, other = other, correct
	}

	word, ok := c.lookupSingleSyllable(correct)
	if !ok {
		return c.fallback1Syl(), nil
	}

	return models.Problem{
		ProblemTypeID:   c.problemTypeID1(),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: models.Sequence{correct},
		Alternatives:    []models.Sequence{{correct}, {other}},
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

// sampleFourChoiceThemed takes one theme pair and extends it with two
// random other classes, picking any one as correct.
func (c *Controller) sampleFourChoiceThemed(state *State) (models.Problem, error) {
	if len(state.ThemePairs) == 0 {
		return c.fallback1Syl(), nil
	}
	pair := state.ThemePairs[c.RNG.Intn(len(state.ThemePairs))]
	classSet := map[int]bool{pair[0]: true, pair[1]: true}
	set := []int{pair[0], pair[1]}

	descr, err := c.Registry.Get(c.problemTypeID1())
	if err != nil {
		return models.Problem{}, err
	}

	for len(set) < 4 {
		c2 := c.RNG.Intn(descr.NClasses) + 1
		if !classSet[c2] {
			classSet[c2] = true
			set = append(set, c2)
		}
	}

	correct := set[c.RNG.Intn(len(set))]
	word, ok := c.lookupSingleSyllable(correct)
	if !ok {
		return c.fallback1Syl(), nil
	}

	alternatives := make([]models.Sequence, 0, 4)
	for _, cls := range set {
		alternatives = append(alternatives, models.Sequence{cls})
	}

	return models.Problem{
		ProblemTypeID:   c.problemTypeID1(),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: models.Sequence{correct},
		Alternatives:    alternatives,
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

// sampleTwoChoiceTwoSylThemed picks any two-syllable word whose sequence
// contains at least one theme class, with one generated distractor.
func (c *Controller) sampleTwoChoiceTwoSylThemed(state *State) (models.Problem, error) {
	if c.Index == nil {
		return c.fallback1Syl(), nil
	}
	themeClasses := map[int]bool{}
	for _, p := range state.ThemePairs {
		themeClasses[p[0]] = true
		themeClasses[p[1]] = true
	}

	var candidates []string
	for _, key := range c.Index.KeysOfLength(2) {
		seq := parseKey(key)
		for _, cls := range seq {
			if themeClasses[cls] {
				candidates = append(candidates, key)
				break
			}
		}
	}
	if len(candidates) == 0 {
		candidates = c.Index.KeysOfLength(2)
	}
	if len(candidates) == 0 {
		return c.fallback1Syl(), nil
	}

	key := candidates[c.RNG.Intn(len(candidates))]
	words := c.Index.WordsForKey(key)
	word := words[c.RNG.Intn(len(words))]
	seq := parseKey(key)

	descr, err := c.Registry.Get(c.problemTypeID1())
	if err != nil {
		return models.Problem{}, err
	}
	distractor := generateOneDistractor(c.RNG, seq, descr.NClasses)

	alternatives := []models.Sequence{toSeq(seq), toSeq(distractor)}
	c.RNG.Shuffle(len(alternatives), func(i, j int) { alternatives[i], alternatives[j] = alternatives[j], alternatives[i] })

	return models.Problem{
		ProblemTypeID:   c.problemTypeID2(),
		WordID:          word.ID,
		SurfaceForm:     word.Vietnamese,
		Gloss:           word.English,
		CorrectSequence: toSeq(seq),
		Alternatives:    alternatives,
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}, nil
}

func (c *Controller) lookupSingleSyllable(class int) (wordindex.Word, bool) {
	if c.Index == nil {
		return wordindex.Word{}, false
	}
	words := c.Index.WordsForKey(wordindex.SequenceKey([]int{class}))
	if len(words) == 0 {
		return wordindex.Word{}, false
	}
	return words[c.RNG.Intn(len(words))], true
}

func (c *Controller) fallback1Syl() models.Problem {
	return models.Problem{
		ProblemTypeID:   c.problemTypeID1(),
		WordID:          0,
		SurfaceForm:     "xin chào",
		CorrectSequence: models.Sequence{1},
		Alternatives:    []models.Sequence{{1}, {2}},
		AudioVoice:      defaultAudioVoice(),
		AudioSpeed:      defaultAudioSpeed(),
	}
}

func defaultAudioVoice() string { return "banmai" }
func defaultAudioSpeed() int    { return 0 }

func parseKey(key string) []int {
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

func toSeq(ints []int) models.Sequence {
	out := make(models.Sequence, len(ints))
	copy(out, ints)
	return out
}

// generateOneDistractor reuses the sampler's distractor-generation rule
// (70% per-syllable class replacement, bounded retries, deterministic
// fallback) via the shared sampler package so the lesson controller and
// the adaptive sampler never diverge on this algorithm.
func generateOneDistractor(rng *xrand.Source, correct []int, nClasses int) []int {
	return sampler.GenerateDistractors(rng, correct, nClasses, 1)[0]
}
