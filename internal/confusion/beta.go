package confusion

import "math"

// floorBeta clamps both Beta parameters at 0.1, the error-handling design's
// guard against downstream divide-by-zero from floating degeneracy.
func floorBeta(b Beta) Beta {
	if math.IsNaN(b.Alpha) || b.Alpha < 0.1 {
		b.Alpha = 0.1
	}
	if math.IsNaN(b.Beta) || b.Beta < 0.1 {
		b.Beta = 0.1
	}
	return b
}

// variance is the Beta distribution's variance.
func (b Beta) variance() float64 {
	total := b.Alpha + b.Beta
	if total <= 0 {
		return 0.25
	}
	return (b.Alpha * b.Beta) / (total * total * (total + 1))
}

// BetaMixtureApprox combines two Beta components with equal weight into a
// single moment-matched Beta via mixture mean/variance, solving for the
// effective sample size nu = mu(1-mu)/sigma^2 - 1. If nu <= 0 the mixture
// has no well-defined Beta approximation and the uniform Beta(1,1) is
// returned. The result is always floored at 0.1 on both parameters.
func BetaMixtureApprox(b1, b2 Beta) Beta {
	mu1, mu2 := b1.Mean(), b2.Mean()
	v1, v2 := b1.variance(), b2.variance()

	mu := 0.5*mu1 + 0.5*mu2
	diff := mu1 - mu2
	sigma2 := 0.5*v1 + 0.5*v2 + 0.25*diff*diff

	if sigma2 <= 0 {
		return floorBeta(Beta{Alpha: 1, Beta: 1})
	}

	nu := mu*(1-mu)/sigma2 - 1
	if nu <= 0 {
		return floorBeta(Beta{Alpha: 1, Beta: 1})
	}

	return floorBeta(Beta{Alpha: mu * nu, Beta: (1 - mu) * nu})
}
