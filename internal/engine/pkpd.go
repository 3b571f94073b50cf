package engine

import (
	"math"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
)

// Bateman excursion model: delta(t) = A*ka/(ka-ke) * (exp(-ke*t) - exp(-ka*t))
// with absorption rate ka, elimination rate ke (both per hour) and dose
// scale A. The fit is a deterministic grid search with coordinate
// refinement; no randomness, so identical inputs always produce identical
// parameters.

const (
	fitMinPoints  = 4
	fitMaxIter    = 2000
	fitGridSteps  = 12
	fitRefines    = 6
	fitKaLow      = 0.2
	fitKaHigh     = 12.0
	fitKeLow      = 0.05
	fitKeHigh     = 6.0
	fitPeakFactor = 0.5
)

// FitResponse fits the excursion curve of a response window. The window's
// lookahead values are converted to deltas above the supplied baseline;
// the fit needs at least four points and a positive excursion somewhere.
// A poor but converged fit returns with a low FitQuality rather than an
// error; FitNonConvergenceError is reserved for windows the optimizer
// cannot evaluate at all.
func FitResponse(win models.ResponseWindow, baseline float64) (models.PKPDFit, error) {
	n := win.Lookahead.Len()
	if n < fitMinPoints {
		return models.PKPDFit{}, &models.SparseDataError{Window: "fit", Samples: n, Need: fitMinPoints}
	}

	hours := make([]float64, n)
	deltas := make([]float64, n)
	anyPositive := false
	for i := 0; i < n; i++ {
		s := win.Lookahead.At(i)
		hours[i] = s.Timestamp.Sub(win.Event.Timestamp).Hours()
		deltas[i] = s.Value - baseline
		if deltas[i] > 0 {
			anyPositive = true
		}
	}
	if !anyPositive {
		return models.PKPDFit{}, &models.FitNonConvergenceError{Iterations: 0}
	}

	best, iterations, ok := gridFit(hours, deltas)
	if !ok {
		return models.PKPDFit{}, &models.FitNonConvergenceError{Iterations: iterations}
	}

	quality := rSquared(hours, deltas, best)

	// Cross-check: a fitted peak far from the observed one means the curve
	// shape is unreliable even when the residuals look acceptable.
	fittedPeak := math.Log(best.ka/best.ke) / (best.ka - best.ke)
	observedPeak := hours[argMax(deltas)]
	if observedPeak > 0 {
		drift := math.Abs(fittedPeak-observedPeak) / observedPeak
		if drift > fitPeakFactor {
			quality *= 0.5
		}
	}

	return models.PKPDFit{
		AbsorptionRate:  best.ka,
		EliminationRate: best.ke,
		PeakEffect:      bateman(best, fittedPeak),
		TimeToPeak:      time.Duration(fittedPeak * float64(time.Hour)),
		FitQuality:      quality,
		Iterations:      iterations,
	}, nil
}

type batemanParams struct {
	ka, ke, amp float64
}

func bateman(p batemanParams, t float64) float64 {
	if t < 0 {
		return 0
	}
	return p.amp * p.ka / (p.ka - p.ke) * (math.Exp(-p.ke*t) - math.Exp(-p.ka*t))
}

// gridFit searches log-spaced (ka, ke) candidates, solving the amplitude in
// closed form at each pair, then refines around the winner by shrinking the
// grid. Iterations count candidate evaluations and are capped hard.
func gridFit(hours, deltas []float64) (batemanParams, int, bool) {
	kaLo, kaHi := fitKaLow, fitKaHigh
	keLo, keHi := fitKeLow, fitKeHigh

	var best batemanParams
	bestSSE := math.Inf(1)
	iterations := 0

	for round := 0; round <= fitRefines; round++ {
		for _, ka := range logSpace(kaLo, kaHi, fitGridSteps) {
			for _, ke := range logSpace(keLo, keHi, fitGridSteps) {
				if ka <= ke*1.01 {
					continue
				}
				if iterations >= fitMaxIter {
					return best, iterations, bestSSE < math.Inf(1)
				}
				iterations++
				p, sse, ok := solveAmplitude(hours, deltas, ka, ke)
				if ok && sse < bestSSE {
					best, bestSSE = p, sse
				}
			}
		}
		if math.IsInf(bestSSE, 1) {
			return best, iterations, false
		}
		kaLo, kaHi = shrink(best.ka, kaLo, kaHi)
		keLo, keHi = shrink(best.ke, keLo, keHi)
	}
	return best, iterations, true
}

// solveAmplitude finds the least-squares amplitude for a fixed rate pair.
// The model is linear in A, so A* = sum(f*y)/sum(f*f) over the shape f.
func solveAmplitude(hours, deltas []float64, ka, ke float64) (batemanParams, float64, bool) {
	shape := batemanParams{ka: ka, ke: ke, amp: 1}
	num, den := 0.0, 0.0
	for i, t := range hours {
		f := bateman(shape, t)
		num += f * deltas[i]
		den += f * f
	}
	if den == 0 || num <= 0 {
		return batemanParams{}, 0, false
	}
	p := batemanParams{ka: ka, ke: ke, amp: num / den}
	sse := 0.0
	for i, t := range hours {
		r := deltas[i] - bateman(p, t)
		sse += r * r
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return batemanParams{}, 0, false
	}
	return p, sse, true
}

func rSquared(hours, deltas []float64, p batemanParams) float64 {
	mean := 0.0
	for _, d := range deltas {
		mean += d
	}
	mean /= float64(len(deltas))

	ssTot, ssRes := 0.0, 0.0
	for i, t := range hours {
		ssTot += (deltas[i] - mean) * (deltas[i] - mean)
		r := deltas[i] - bateman(p, t)
		ssRes += r * r
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	return r2
}

func logSpace(lo, hi float64, steps int) []float64 {
	out := make([]float64, steps)
	ratio := math.Pow(hi/lo, 1/float64(steps-1))
	v := lo
	for i := 0; i < steps; i++ {
		out[i] = v
		v *= ratio
	}
	return out
}

// shrink halves the search interval around center, clamped to the previous
// bounds so refinement never escapes the physiologic range.
func shrink(center, lo, hi float64) (float64, float64) {
	span := (hi - lo) / 4
	newLo := math.Max(lo, center-span)
	newHi := math.Min(hi, center+span)
	if newLo >= newHi {
		return lo, hi
	}
	return newLo, newHi
}

func argMax(vals []float64) int {
	idx := 0
	for i, v := range vals {
		if v > vals[idx] {
			idx = i
		}
	}
	return idx
}
