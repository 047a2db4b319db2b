// Package align implements phase alignment: rotating each specimen's
// angular reference so the dominant-harmonic peak lands on a common
// reference angle before any cross-arch aggregation. Rotation is applied
// exactly on the fitted coefficients and as a plain angular shift on the
// angle-indexed summaries, so alignment is reversible: original angle =
// aligned angle − phase offset (mod 360).
package align

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

// Fit is a harmonic fit whose angular reference has been rotated.
type Fit struct {
	// Fit holds the rotated coefficients.
	harmonic.Fit
	// PhaseOffsetDeg is the applied rotation: aligned = original +
	// offset (mod 360).
	PhaseOffsetDeg float64
	// Dominance is the dominant harmonic of the fit before rotation; its
	// PeakAngleDeg is the original peak location.
	Dominance harmonic.Dominance
}

// Align rotates fit so its dominant-harmonic peak maps to referenceDeg.
// The second harmonic repeats every 180°, so the rotation is reduced to the
// nearest equivalent: aligning an already-aligned fit yields a zero offset.
//
// Degenerate fits (Dominant fails) and references outside [0, 360) are
// reported through the per-specimen error taxonomy.
func Align(fit harmonic.Fit, referenceDeg, epsilon float64) (Fit, error) {
	if referenceDeg < 0 || referenceDeg >= 360 {
		return Fit{}, apperrors.AlignmentError{
			ArchID:  fit.ArchID,
			Message: formatBadReference(referenceDeg),
		}
	}

	dom, err := fit.Dominant(epsilon)
	if err != nil {
		return Fit{}, err
	}

	period := 360.0
	if dom.Order == 2 {
		period = 180.0
	}
	offset := nearestRotation(referenceDeg-dom.PeakAngleDeg, period)

	return Fit{
		Fit:            Rotate(fit, offset),
		PhaseOffsetDeg: offset,
		Dominance:      dom,
	}, nil
}

// Rotate returns the fit of the rotated curve g(θ) = f(θ − offset), i.e.
// the original curve shifted so that feature angles move by +offset. The
// coefficients follow from the angle-sum identities; rotating by −offset
// restores the original coefficients exactly.
func Rotate(f harmonic.Fit, offsetDeg float64) harmonic.Fit {
	phi := -offsetDeg * math.Pi / 180

	cos1, sin1 := math.Cos(phi), math.Sin(phi)
	cos2, sin2 := math.Cos(2*phi), math.Sin(2*phi)

	return harmonic.Fit{
		ArchID:      f.ArchID,
		Method:      f.Method,
		A0:          f.A0,
		A1:          f.A1*cos1 + f.B1*sin1,
		B1:          f.B1*cos1 - f.A1*sin1,
		A2:          f.A2*cos2 + f.B2*sin2,
		B2:          f.B2*cos2 - f.A2*sin2,
		ResidualRMS: f.ResidualRMS,
	}
}

// Summaries returns new angle summaries with the rotation applied to their
// angular positions, sorted by aligned angle. The input records are not
// modified.
func Summaries(in []stats.AngleSummary, offsetDeg float64) []stats.AngleSummary {
	out := make([]stats.AngleSummary, len(in))
	for i, s := range in {
		s.AngleDeg = normalizeDeg(s.AngleDeg + offsetDeg)
		out[i] = s
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AngleDeg < out[j].AngleDeg })
	return out
}

// nearestRotation reduces delta to the equivalent rotation of smallest
// magnitude for a curve that repeats every period degrees, landing in
// (−period/2, period/2].
func nearestRotation(delta, period float64) float64 {
	delta = math.Mod(delta, period)
	if delta > period/2 {
		delta -= period
	}
	if delta <= -period/2 {
		delta += period
	}
	return delta
}

func normalizeDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func formatBadReference(ref float64) string {
	return fmt.Sprintf("reference angle %g° outside [0, 360)", ref)
}
