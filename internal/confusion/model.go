package confusion

// Model is the tagged-variant dispatcher: shared state fields plus
// variant-specific derived caches, dispatching on Kind by match rather
// than by virtual call, per the systems port's design note. It carries no
// state of its own beyond the fixed-point tunables -- every method takes
// an explicit *State and returns a fresh one where applicable.
type Model struct {
	Kind      Kind
	BTMaxIter int
	BTTol     float64
	BTLogTol  float64
}

// NewModel builds a dispatcher for one variant. BT tunables are ignored by
// the Dirichlet and Luce variants.
func NewModel(kind Kind, btMaxIter int, btTol, btLogTol float64) Model {
	return Model{Kind: kind, BTMaxIter: btMaxIter, BTTol: btTol, BTLogTol: btLogTol}
}

// InitialState seeds a fresh posterior for this variant.
func (m Model) InitialState(problemTypeID string, nClasses int, prior float64, policy InitialPolicy) *State {
	return InitialState(problemTypeID, m.Kind, nClasses, prior, policy)
}

// SuccessDistribution predicts the success probability for this problem
// under the state's accumulated observations, dispatching on the model's
// Kind. Luce-pseudocount is the reference/default variant.
func (m Model) SuccessDistribution(s *State, p Problem) Beta {
	switch m.Kind {
	case KindDirichlet:
		return successDistributionDirichlet(s, p)
	case KindBradleyTerry:
		return successDistributionBradleyTerry(s, p, m.BTMaxIter, m.BTTol, m.BTLogTol)
	case KindLuce:
		fallthrough
	default:
		return successDistributionLuce(s, p)
	}
}

// Update applies one observation; identical across all three variants.
func (m Model) Update(s *State, p Problem, a Answer) (*State, []StateUpdate, error) {
	return Update(s, p, a)
}
