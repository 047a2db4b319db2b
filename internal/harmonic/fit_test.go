package harmonic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// gridAngles returns the standard 24-position measurement grid.
func gridAngles() []float64 {
	angles := make([]float64, 24)
	for i := range angles {
		angles[i] = float64(i) * 15
	}
	return angles
}

func sampleFit(f Fit, angles []float64) []float64 {
	values := make([]float64, len(angles))
	for i, a := range angles {
		values[i] = f.Eval(a)
	}
	return values
}

func TestFitSeries_RecoversKnownCoefficients(t *testing.T) {
	truth := Fit{A0: 450, A1: 12.5, B1: -3.2, A2: 7.1, B2: 4.4}
	angles := gridAngles()

	fit, err := FitSeries(3, "ASTM", angles, sampleFit(truth, angles))
	require.NoError(t, err)

	assert.Equal(t, 3, fit.ArchID)
	assert.Equal(t, "ASTM", fit.Method)
	assert.InDelta(t, truth.A0, fit.A0, 1e-9)
	assert.InDelta(t, truth.A1, fit.A1, 1e-9)
	assert.InDelta(t, truth.B1, fit.B1, 1e-9)
	assert.InDelta(t, truth.A2, fit.A2, 1e-9)
	assert.InDelta(t, truth.B2, fit.B2, 1e-9)
	assert.InDelta(t, 0, fit.ResidualRMS, 1e-9)
}

// TestFitSeries_RoundTrip verifies the fitted model reproduces the input
// means at the input angles within the fit residual.
func TestFitSeries_RoundTrip(t *testing.T) {
	angles := gridAngles()
	truth := Fit{A0: 100, A1: 5, B1: 2, A2: 1, B2: -0.5}
	values := sampleFit(truth, angles)
	// Deterministic non-harmonic perturbation so the residual is nonzero.
	for i := range values {
		values[i] += 0.3 * math.Cos(5*angles[i]*math.Pi/180)
	}

	fit, err := FitSeries(1, "AMO", angles, values)
	require.NoError(t, err)
	assert.Greater(t, fit.ResidualRMS, 0.0)

	tol := 3*fit.ResidualRMS + 1e-9
	for i, a := range angles {
		assert.InDelta(t, values[i], fit.Eval(a), tol, "angle %g", a)
	}
}

func TestFitSeries_InputValidation(t *testing.T) {
	_, err := FitSeries(1, "AMO", []float64{0, 15}, []float64{1})
	require.Error(t, err)

	_, err = FitSeries(1, "AMO", []float64{0, 90, 180, 270}, []float64{1, 2, 1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 5 points")
}

func TestAmplitude(t *testing.T) {
	f := Fit{A1: 3, B1: 4, A2: 5, B2: 12}
	assert.InDelta(t, 5, f.Amplitude(1), 1e-12)
	assert.InDelta(t, 13, f.Amplitude(2), 1e-12)
	assert.Zero(t, f.Amplitude(3))
}

func TestDominant_FirstOrder(t *testing.T) {
	f := Fit{ArchID: 2, Method: "AMO", A1: 3, B1: 4, A2: 0.1, B2: 0}
	d, err := f.Dominant(1e-9)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Order)
	assert.InDelta(t, 5, d.Amplitude, 1e-12)
	assert.InDelta(t, 53.1301, d.PeakAngleDeg, 1e-3)
}

func TestDominant_SecondOrder(t *testing.T) {
	f := Fit{A1: 0.01, B1: 0, A2: 0, B2: 10}
	d, err := f.Dominant(1e-9)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Order)
	assert.InDelta(t, 10, d.Amplitude, 1e-12)
	assert.InDelta(t, 45, d.PeakAngleDeg, 1e-9)
}

func TestDominant_PeakAngleNormalized(t *testing.T) {
	// atan2 lands in (-180, 180]; negative phases must wrap into [0, 360).
	f := Fit{A1: 3, B1: -4}
	d, err := f.Dominant(1e-9)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.PeakAngleDeg, 0.0)
	assert.Less(t, d.PeakAngleDeg, 360.0)
	assert.InDelta(t, 360-53.1301, d.PeakAngleDeg, 1e-3)
}

func TestDominant_Degenerate(t *testing.T) {
	f := Fit{ArchID: 9, Method: "ASTM", A0: 450, A1: 1e-12, B1: 0, A2: 0, B2: 1e-13}
	_, err := f.Dominant(1e-9)
	require.Error(t, err)

	var degenerate apperrors.DegenerateFitError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 9, degenerate.ArchID)
	assert.True(t, apperrors.IsRecoverable(err))
	assert.Contains(t, err.Error(), "no clear directional pattern")
}

func TestDominant_FlatMeanAloneIsDegenerate(t *testing.T) {
	// A large constant offset must not rescue a flat pattern.
	angles := gridAngles()
	values := make([]float64, len(angles))
	for i := range values {
		values[i] = 450.0
	}
	fit, err := FitSeries(1, "AMO", angles, values)
	require.NoError(t, err)

	_, err = fit.Dominant(1e-9)
	var degenerate apperrors.DegenerateFitError
	assert.ErrorAs(t, err, &degenerate)
}
