package harmonic

import (
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// modelTerms is the number of regression coefficients (a0, a1, b1, a2, b2).
const modelTerms = 5

// FitSeries fits the second-order harmonic model to the given angle/value
// pairs by linear least squares. The model is linear in its coefficients, so
// a single QR solve of the trigonometric design matrix gives the same
// minimum the iterative curve fitters converge to.
//
// At least as many points as coefficients are required; the usual input is
// the 24-angle grid of per-angle means.
func FitSeries(archID int, method string, anglesDeg, values []float64) (Fit, error) {
	n := len(anglesDeg)
	if n != len(values) {
		return Fit{}, apperrors.NewConfigError("fit: %d angles vs %d values", n, len(values))
	}
	if n < modelTerms {
		return Fit{}, apperrors.NewConfigError("fit: need at least %d points, got %d", modelTerms, n)
	}

	design := mat.NewDense(n, modelTerms, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		theta := anglesDeg[i] * math.Pi / 180
		design.Set(i, 0, 1)
		design.Set(i, 1, math.Cos(theta))
		design.Set(i, 2, math.Sin(theta))
		design.Set(i, 3, math.Cos(2*theta))
		design.Set(i, 4, math.Sin(2*theta))
		rhs.SetVec(i, values[i])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, rhs); err != nil {
		return Fit{}, apperrors.WrapError(err, "fit: least squares solve")
	}

	fit := Fit{
		ArchID: archID,
		Method: method,
		A0:     beta.AtVec(0),
		A1:     beta.AtVec(1),
		B1:     beta.AtVec(2),
		A2:     beta.AtVec(3),
		B2:     beta.AtVec(4),
	}

	var ss float64
	for i := 0; i < n; i++ {
		r := fit.Eval(anglesDeg[i]) - values[i]
		ss += r * r
	}
	fit.ResidualRMS = math.Sqrt(ss / float64(n))
	return fit, nil
}
