package confusion

import "math"

// btResult carries the outcome of one MM run, including whether it
// converged within max_iter -- the error-handling design's "Nonconvergent
// BT" condition is never fatal: the last iterate is returned and the
// caller increments a counter.
type btResult struct {
	strengths []float64
	iters     int
	converged bool
}

// computeBTStrengths runs Hunter's MM iteration on counts (an n x n
// row-major win matrix) with Laplace smoothing prior, initializing theta
// uniform and renormalizing to sum n each pass. It falls back to the
// log-space variant automatically if the linear iteration produces a
// non-finite or degenerate strength vector.
func computeBTStrengths(counts []float64, n int, prior float64, maxIter int, tol, logTol float64) btResult {
	res := computeBTStrengthsLinear(counts, n, prior, maxIter, tol)
	if strengthsUsable(res.strengths) {
		return res
	}
	return computeBTStrengthsLogSpace(counts, n, prior, maxIter, logTol)
}

func strengthsUsable(theta []float64) bool {
	for _, t := range theta {
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return false
		}
	}
	return true
}

func get2(counts []float64, n, i, j int) float64 {
	return counts[i*n+j]
}

func computeBTStrengthsLinear(counts []float64, n int, prior float64, maxIter int, tol float64) btResult {
	theta := make([]float64, n)
	for i := range theta {
		theta[i] = 1.0
	}

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += get2(counts, n, i, j) + prior
		}
		w[i] = sum
	}

	converged := false
	iters := 0
	for iters = 0; iters < maxIter; iters++ {
		next := make([]float64, n)
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			denom := 0.0
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				nij := get2(counts, n, i, j) + prior + get2(counts, n, j, i) + prior
				if theta[i]+theta[j] > 0 {
					denom += nij / (theta[i] + theta[j])
				}
			}
			if denom > 0 {
				next[i] = w[i] / denom
			} else {
				next[i] = theta[i]
			}
			if d := math.Abs(next[i] - theta[i]); d > maxDelta {
				maxDelta = d
			}
		}

		total := 0.0
		for _, t := range next {
			total += t
		}
		if total > 0 {
			scale := float64(n) / total
			for i := range next {
				next[i] *= scale
			}
		}

		theta = next
		if maxDelta < tol {
			converged = true
			iters++
			break
		}
	}

	return btResult{strengths: theta, iters: iters, converged: converged}
}

// logSumExpPair computes log(exp(a) + exp(b)) in a numerically stable way.
func logSumExpPair(a, b float64) float64 {
	if a > b {
		return a + math.Log1p(math.Exp(b-a))
	}
	return b + math.Log1p(math.Exp(a-b))
}

func computeBTStrengthsLogSpace(counts []float64, n int, prior float64, maxIter int, tol float64) btResult {
	logTheta := make([]float64, n)

	w := make([]float64, n)
	logW := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += get2(counts, n, i, j) + prior
		}
		w[i] = sum
		if sum > 0 {
			logW[i] = math.Log(sum)
		} else {
			logW[i] = math.Inf(-1)
		}
	}

	converged := false
	iters := 0
	for iters = 0; iters < maxIter; iters++ {
		next := make([]float64, n)
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			logDenomTerms := make([]float64, 0, n-1)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				nij := get2(counts, n, i, j) + prior + get2(counts, n, j, i) + prior
				if nij <= 0 {
					continue
				}
				logSumTheta := logSumExpPair(logTheta[i], logTheta[j])
				logDenomTerms = append(logDenomTerms, math.Log(nij)-logSumTheta)
			}
			if len(logDenomTerms) == 0 {
				next[i] = logTheta[i]
				continue
			}
			logDenom := logDenomTerms[0]
			for _, v := range logDenomTerms[1:] {
				logDenom = logSumExpPair(logDenom, v)
			}
			next[i] = logW[i] - logDenom
			if d := math.Abs(next[i] - logTheta[i]); d > maxDelta {
				maxDelta = d
			}
		}

		// Renormalize in log-space so sum(exp(logTheta)) == n.
		logTotal := next[0]
		for _, v := range next[1:] {
			logTotal = logSumExpPair(logTotal, v)
		}
		logScale := math.Log(float64(n)) - logTotal
		for i := range next {
			next[i] += logScale
		}

		logTheta = next
		if maxDelta < tol {
			converged = true
			iters++
			break
		}
	}

	theta := make([]float64, n)
	for i, lt := range logTheta {
		theta[i] = math.Exp(lt)
	}

	return btResult{strengths: theta, iters: iters, converged: converged}
}

// ensureBTStrength lazily computes and caches the derived strength vector,
// invalidated whenever Update produces a new State (clone never copies the
// cache fields).
func ensureBTStrength(s *State, maxIter int, tol, logTol float64) []float64 {
	if s.btStrength != nil {
		return s.btStrength
	}
	res := computeBTStrengths(s.Counts, s.NClasses, s.Prior, maxIter, tol, logTol)
	s.btStrength = res.strengths
	s.btIters = res.iters
	s.btConverged = res.converged
	return s.btStrength
}

// BTConverged reports whether the most recent strength computation for
// this state converged within max_iter. Only meaningful after a call that
// exercises the Bradley-Terry path (SuccessDistribution or AllPairStats).
func BTConverged(s *State) bool {
	return s.btConverged
}

func successDistributionBradleyTerry(s *State, p Problem, maxIter int, tol, logTol float64) Beta {
	theta := ensureBTStrength(s, maxIter, tol, logTol)

	i := p.CorrectClass - 1
	denom := 0.0
	for _, k := range p.PresentedClasses {
		denom += theta[k-1]
	}

	pCorrect := 0.5
	if denom > 0 {
		pCorrect = theta[i] / denom
	}

	nEff := s.rowSum(i) + float64(len(p.PresentedClasses))*s.Prior

	return floorBeta(Beta{
		Alpha: pCorrect * nEff,
		Beta:  (1 - pCorrect) * nEff,
	})
}
