// Package flexsurv fits flexible parametric models for right censored,
// optionally left truncated survival data.  The models are the spline-based
// proportional hazards and proportional odds families of Royston and Parmar
// (Statistics in Medicine, 2002), together with an alternative Weibull
// parameterization that serves as a no-spline baseline.  The baseline log
// cumulative hazard (or log cumulative odds) is a restricted cubic spline
// in log time; covariates shift it additively on the linear predictor
// scale.
package flexsurv

import (
	"fmt"
	"math"
)

// Knots is an ordered triple (lower boundary, interior, upper boundary) of
// knot locations on the natural time scale.  All knots must be strictly
// positive since the spline operates on log time.  A Knots value is fixed
// for the lifetime of the model constructed from it.
type Knots [3]float64

// DefaultKnots holds the knot locations, in years, published for the
// German Breast Cancer Study Group analysis of Royston and Parmar.
var DefaultKnots = Knots{0.1972, 1.769, 6.728}

func (k Knots) validate() error {
	for _, v := range k {
		if v <= 0 {
			return fmt.Errorf("%w: knots must be strictly positive, got %v", ErrInvalidKnots, k)
		}
	}
	if k[0] >= k[1] || k[1] >= k[2] {
		return fmt.Errorf("%w: knots must be strictly increasing, got %v", ErrInvalidKnots, k)
	}
	return nil
}

// logs returns the knots transformed to the log time scale.
func (k Knots) logs() (float64, float64, float64) {
	return math.Log(k[0]), math.Log(k[1]), math.Log(k[2])
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// Basis returns the restricted cubic spline basis term at x, for an
// interior knot and two boundary knots.  The term is cubic between the
// boundary knots and linear outside them: the boundary relu terms are
// weighted so that the cubic curvature cancels beyond [minKnot, maxKnot].
// It is identically zero for x <= minKnot, and is continuous with
// continuous first derivative for all real x.
func Basis(x, knot, minKnot, maxKnot float64) float64 {
	lam := (maxKnot - knot) / (maxKnot - minKnot)
	u := relu(x - knot)
	v := relu(x - minKnot)
	w := relu(x - maxKnot)
	return u*u*u - lam*v*v*v - (1-lam)*w*w*w
}

// BasisDeriv returns the derivative of Basis with respect to x.  The
// hazard function of the spline models depends on it through the time
// derivative of the cumulative hazard.
func BasisDeriv(x, knot, minKnot, maxKnot float64) float64 {
	lam := (maxKnot - knot) / (maxKnot - minKnot)
	u := relu(x - knot)
	v := relu(x - minKnot)
	w := relu(x - maxKnot)
	return 3 * (u*u - lam*v*v - (1-lam)*w*w)
}
