// Package models holds the wire/domain data shapes shared across the core:
// problems, answers, event records, and the derived statistics the sampler
// and HTTP surface exchange. These are plain data types; the behavior that
// produces and consumes them lives in taxonomy, confusion, wordindex,
// sampler, and lesson.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sequence is an ordered list of class ids, one per syllable.
type Sequence []int

// Equal reports whether two sequences have the same length and classes in
// the same order.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Problem is a drill instance: the word under test, its correct sequence,
// and the unordered set of alternative sequences. The correct sequence is
// always one of the presented choices; all alternatives share its length.
type Problem struct {
	ProblemTypeID   string     `json:"problem_type_id"`
	WordID          int        `json:"word_id"`
	SurfaceForm     string     `json:"surface_form"`
	Gloss           string     `json:"gloss,omitempty"`
	CorrectSequence Sequence   `json:"correct_sequence"`
	Alternatives    []Sequence `json:"alternatives"`
	AudioVoice      string     `json:"audio_voice"`
	AudioSpeed      int        `json:"audio_speed"`
}

// Choices returns all presented choices, correct sequence included.
func (p Problem) Choices() []Sequence {
	return p.Alternatives
}

// Answer is the learner's chosen sequence and an elapsed-time measurement.
type Answer struct {
	SelectedSequence Sequence `json:"selected_sequence"`
	ResponseTimeMs   int      `json:"response_time_ms,omitempty"`
}

// IsValidChoice reports whether the selected sequence is one of the
// problem's presented choices. A false result is the InvalidAnswer
// condition the update routine rejects.
func (a Answer) IsValidChoice(p Problem) bool {
	for _, choice := range p.Alternatives {
		if a.SelectedSequence.Equal(choice) {
			return true
		}
	}
	return false
}

// IsCorrect reports whether the selected sequence matches the problem's
// correct sequence.
func (a Answer) IsCorrect(p Problem) bool {
	return a.SelectedSequence.Equal(p.CorrectSequence)
}

// PreviousAnswer is the optional previous-answer input to the next-drill
// operation: the problem that was served plus what the learner selected.
type PreviousAnswer struct {
	ProblemTypeID    string     `json:"problem_type_id"`
	WordID           int        `json:"word_id"`
	CorrectSequence  Sequence   `json:"correct_sequence"`
	SelectedSequence Sequence   `json:"selected_sequence"`
	Alternatives     []Sequence `json:"alternatives"`
	ResponseTimeMs   int        `json:"response_time_ms,omitempty"`
	AudioVoice       string     `json:"audio_voice,omitempty"`
	AudioSpeed       int        `json:"audio_speed,omitempty"`
}

// Event is the immutable, append-only log entry recording one answered
// drill. Replaying the events for a given (user, problem_type) in order
// through the same model deterministically reproduces the posterior.
type Event struct {
	ID               int64      `json:"id,omitempty"`
	UserID           uuid.UUID  `json:"user_id"`
	CreatedAt        time.Time  `json:"created_at"`
	ProblemTypeID    string     `json:"problem_type_id"`
	WordID           int        `json:"word_id"`
	CorrectSequence  Sequence   `json:"correct_sequence"`
	Alternatives     []Sequence `json:"alternatives"`
	SelectedSequence Sequence   `json:"selected_sequence"`
	IsCorrect        bool       `json:"is_correct"`
	ResponseTimeMs   int        `json:"response_time_ms"`
	AudioVoice       string     `json:"audio_voice"`
	AudioSpeed       int        `json:"audio_speed"`
	LessonID         *int       `json:"lesson_id,omitempty"`
}

// DifficultyLevel is the sampler's current tier.
type DifficultyLevel string

const (
	DifficultyTwoChoice       DifficultyLevel = "2-choice"
	DifficultyMixed           DifficultyLevel = "mixed"
	DifficultyFourChoiceMulti DifficultyLevel = "four-choice-multi"
)

// StateUpdate is the observability record surfaced across the wire for
// every mutated tracker cell.
type StateUpdate struct {
	TrackerID string  `json:"tracker_id"`
	OldValue  float64 `json:"old_value"`
	NewValue  float64 `json:"new_value"`
}

// PairStat summarizes one unordered class pair's two-alternative success
// rate.
type PairStat struct {
	Pair  [2]int  `json:"pair"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Mean  float64 `json:"mean"`
}

// FourChoiceStat summarizes one canonical four-class subset's predicted
// four-choice success rate.
type FourChoiceStat struct {
	Set   []int   `json:"set"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Mean  float64 `json:"mean"`
}

// NextDrillResult is the next-drill operation's output shape.
type NextDrillResult struct {
	Drill           Problem          `json:"drill"`
	DifficultyLevel DifficultyLevel  `json:"difficulty_level"`
	StateUpdates    []StateUpdate    `json:"state_updates"`
	PairStats       []PairStat       `json:"pair_stats"`
	FourChoiceStats []FourChoiceStat `json:"four_choice_stats"`
}

// StatsResult is the stats operation's output shape.
type StatsResult struct {
	DifficultyLevel DifficultyLevel  `json:"difficulty_level"`
	PairStats       []PairStat       `json:"pair_stats"`
	FourChoiceStats []FourChoiceStat `json:"four_choice_stats"`
}
