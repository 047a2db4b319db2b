// Package harmonic implements the second-order trigonometric regression
// model used to describe a specimen's deflection pattern around the full
// rotation:
//
//	y(θ) ≈ a0 + a1·cos(θ) + b1·sin(θ) + a2·cos(2θ) + b2·sin(2θ)
//
// The package fits the model to per-angle means by least squares, reports
// harmonic amplitudes and the dominant-harmonic peak, and locates the
// extrema of a fitted curve.
package harmonic

import (
	"math"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// Fit holds the fitted model of one (arch, method) pair. A Fit is immutable;
// phase alignment produces a new rotated Fit.
type Fit struct {
	ArchID int
	Method string

	// A0 is the constant term; A1/B1 and A2/B2 are the cosine/sine
	// coefficients of the first and second harmonic.
	A0, A1, B1, A2, B2 float64

	// ResidualRMS is the root mean square residual at the fitted angles.
	ResidualRMS float64
}

// Eval evaluates the model at the given angle in degrees.
func (f Fit) Eval(angleDeg float64) float64 {
	theta := angleDeg * math.Pi / 180
	return f.A0 +
		f.A1*math.Cos(theta) + f.B1*math.Sin(theta) +
		f.A2*math.Cos(2*theta) + f.B2*math.Sin(2*theta)
}

// Amplitude returns √(a²+b²) of the given harmonic order (1 or 2).
func (f Fit) Amplitude(order int) float64 {
	switch order {
	case 1:
		return math.Hypot(f.A1, f.B1)
	case 2:
		return math.Hypot(f.A2, f.B2)
	default:
		return 0
	}
}

// Dominance identifies the stronger of the two harmonics and the angle of
// its nearest peak.
type Dominance struct {
	// Order is 1 for a single-peak pattern, 2 for a W-shaped pattern.
	Order int
	// Amplitude is the dominant harmonic's amplitude.
	Amplitude float64
	// PeakAngleDeg is the peak location of the dominant harmonic in
	// degrees, normalized to [0, 360).
	PeakAngleDeg float64
}

// Dominant selects the dominant harmonic. When both amplitudes fall below
// epsilon the phase is numerically meaningless and the specimen is reported
// as having no clear directional pattern instead of a spurious peak.
func (f Fit) Dominant(epsilon float64) (Dominance, error) {
	h1 := f.Amplitude(1)
	h2 := f.Amplitude(2)
	if h1 < epsilon && h2 < epsilon {
		return Dominance{}, apperrors.DegenerateFitError{
			ArchID: f.ArchID,
			Method: f.Method,
			H1:     h1,
			H2:     h2,
		}
	}

	if h2 > h1 {
		// The second harmonic peaks where 2θ matches its phase angle.
		phi := 0.5 * math.Atan2(f.B2, f.A2)
		return Dominance{Order: 2, Amplitude: h2, PeakAngleDeg: normalizeDeg(phi * 180 / math.Pi)}, nil
	}
	phi := math.Atan2(f.B1, f.A1)
	return Dominance{Order: 1, Amplitude: h1, PeakAngleDeg: normalizeDeg(phi * 180 / math.Pi)}, nil
}

// normalizeDeg maps an angle to [0, 360).
func normalizeDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
