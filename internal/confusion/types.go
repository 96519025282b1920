// Package confusion implements the confusion-model family: a set of
// Bayesian estimators over class-confusion that share one interface but
// differ in update/prediction rules (Dirichlet-Categorical, Luce choice
// with pseudocounts, Bradley-Terry via an MM iteration). All three share
// storage (an n_classes x n_classes confusion-count matrix) and the same
// pseudocount-increment update rule; they differ only in how they turn
// that matrix into a predicted success probability.
//
// Every exported function here is free of I/O and process-wide state.
// Update is copy-on-update: a fresh State in, a fresh State out. Repair is
// the exception and re-initializes a corrupt State in place.
package confusion

import "fmt"

// Kind names one of the three tagged model variants. Dispatch is by match
// on Kind, not by virtual call, per the systems port's tagged-variant
// design.
type Kind string

const (
	KindDirichlet    Kind = "dirichlet"
	KindLuce         Kind = "luce_pseudocount"
	KindBradleyTerry Kind = "bradley_terry_mm"
)

// ModelVersion tags the on-disk semantics of a posterior's Counts matrix.
// Versions 1 and 3 denote confusion-matrix semantics (Dirichlet/Luce and
// Bradley-Terry respectively, both sharing the count-matrix shape);
// additional versions are reserved for future variants such as raw
// pairwise-wins storage.
type ModelVersion int

const (
	ModelVersionConfusionMatrix ModelVersion = 1
	ModelVersionBradleyTerryMM  ModelVersion = 3
)

// State is the per-(user, problem_type) posterior. Counts is a row-major
// n_classes x n_classes matrix: Counts[i*NClasses+j] is the observed count
// (plus prior) of the learner selecting class j+1 when class i+1 was
// correct. rowSums and btStrength are derived caches, invalidated on every
// update and recomputed lazily on first query.
type State struct {
	ProblemTypeID string
	Kind          Kind
	NClasses      int
	Prior         float64
	ModelVersion  ModelVersion
	Counts        []float64

	rowSums     []float64
	btStrength  []float64
	btIters     int
	btConverged bool
}

// Problem is the confusion model's view of a drill: the correct class and
// the full set of classes presented as choices (including the correct
// one). This is the reduction of a multi-syllable Problem down to the
// class the model actually observes; only the first syllable's class is
// ever modeled.
type Problem struct {
	CorrectClass     int
	PresentedClasses []int
}

// Answer is the learner's selected class, reduced the same way as Problem.
type Answer struct {
	SelectedClass int
}

// StateUpdate is an observability record of one mutated tracker cell.
type StateUpdate struct {
	TrackerID string
	OldValue  float64
	NewValue  float64
}

// Beta is a Beta(alpha, beta) distribution summarizing a success rate.
type Beta struct {
	Alpha float64
	Beta  float64
}

// Mean is the distribution's mean, alpha / (alpha + beta).
func (b Beta) Mean() float64 {
	if b.Alpha+b.Beta <= 0 {
		return 0.5
	}
	return b.Alpha / (b.Alpha + b.Beta)
}

// ErrInvalidAnswer is returned when the selected class is not one of the
// presented choices. Non-retryable; the caller must reject the request.
type ErrInvalidAnswer struct {
	SelectedClass    int
	PresentedClasses []int
}

func (e ErrInvalidAnswer) Error() string {
	return fmt.Sprintf("selected class %d not among presented classes %v", e.SelectedClass, e.PresentedClasses)
}

// ErrShapeMismatch describes a persisted matrix whose dimensions disagree
// with the problem type's n_classes. Nothing in this package returns it:
// Repair reports the condition as a bool and re-initializes from priors.
type ErrShapeMismatch struct {
	Expected int
	Got      int
}

func (e ErrShapeMismatch) Error() string {
	return fmt.Sprintf("confusion matrix shape mismatch: expected %d x %d, got %d entries", e.Expected, e.Expected, e.Got)
}

func (s *State) get(i, j int) float64 {
	return s.Counts[i*s.NClasses+j]
}

func (s *State) rowSum(i int) float64 {
	if s.rowSums != nil {
		return s.rowSums[i]
	}
	s.rowSums = make([]float64, s.NClasses)
	for r := 0; r < s.NClasses; r++ {
		sum := 0.0
		for c := 0; c < s.NClasses; c++ {
			sum += s.get(r, c)
		}
		s.rowSums[r] = sum
	}
	return s.rowSums[i]
}

// clone makes a deep, cache-cleared copy of the state, used by Update for
// copy-on-update semantics.
func (s *State) clone() *State {
	counts := make([]float64, len(s.Counts))
	copy(counts, s.Counts)
	return &State{
		ProblemTypeID: s.ProblemTypeID,
		Kind:          s.Kind,
		NClasses:      s.NClasses,
		Prior:         s.Prior,
		ModelVersion:  s.ModelVersion,
		Counts:        counts,
	}
}

// Repair checks the posterior's matrix dimensions against the expected
// class count. A mismatch is treated as a corrupt posterior: the state is
// re-initialized from priors in place and true is returned so the caller
// can log the warning the error-handling design calls for.
func Repair(s *State, nClasses int, prior float64, policy InitialPolicy) bool {
	if s.NClasses == nClasses && len(s.Counts) == nClasses*nClasses {
		return false
	}
	fresh := InitialState(s.ProblemTypeID, s.Kind, nClasses, prior, policy)
	*s = *fresh
	return true
}
