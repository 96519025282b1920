package confusion

// InitialPolicy selects how a fresh confusion matrix is seeded. The
// policy is explicit configuration rather than a baked-in default:
// replay determinism depends on matching whichever policy was in force
// when the events being replayed were originally recorded.
type InitialPolicy string

const (
	PolicyUniform        InitialPolicy = "uniform"
	PolicyDiagonalBiased InitialPolicy = "diagonal_biased"
)

// InitialState seeds a fresh posterior. Under PolicyUniform every cell
// equals prior. Under PolicyDiagonalBiased off-diagonal cells equal prior
// and diagonal cells equal 3*prior, encoding "slightly better than chance".
func InitialState(problemTypeID string, kind Kind, nClasses int, prior float64, policy InitialPolicy) *State {
	counts := make([]float64, nClasses*nClasses)
	for i := 0; i < nClasses; i++ {
		for j := 0; j < nClasses; j++ {
			v := prior
			if policy == PolicyDiagonalBiased && i == j {
				v = prior * 3
			}
			counts[i*nClasses+j] = v
		}
	}

	version := ModelVersionConfusionMatrix
	if kind == KindBradleyTerry {
		version = ModelVersionBradleyTerryMM
	}

	return &State{
		ProblemTypeID: problemTypeID,
		Kind:          kind,
		NClasses:      nClasses,
		Prior:         prior,
		ModelVersion:  version,
		Counts:        counts,
	}
}
