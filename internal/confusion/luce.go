package confusion

// successCategorical is the restricted-categorical success computation
// shared by the Luce-pseudocount and Dirichlet-Categorical variants: both
// store confusion counts identically and, when asked about a specific
// presented-choice set A, reduce to the same normalized-row formula
// (Dirichlet's distinguishing behavior is the *unrestricted* full-row
// posterior mean, which success_distribution never surfaces since it is
// always asked about a concrete problem with a concrete choice set).
func successCategorical(s *State, p Problem) Beta {
	i := p.CorrectClass - 1

	denom := 0.0
	for _, k := range p.PresentedClasses {
		denom += s.get(i, k-1)
	}

	pCorrect := 0.5
	if denom > 0 {
		pCorrect = s.get(i, i) / denom
	}

	nEff := s.rowSum(i) + float64(len(p.PresentedClasses))*s.Prior

	return floorBeta(Beta{
		Alpha: pCorrect * nEff,
		Beta:  (1 - pCorrect) * nEff,
	})
}

func successDistributionLuce(s *State, p Problem) Beta {
	return successCategorical(s, p)
}

func successDistributionDirichlet(s *State, p Problem) Beta {
	return successCategorical(s, p)
}
