package report

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/align"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

func renderSettings(dir string) *config.Settings {
	s := &config.Settings{}
	s.Input.TrialsPerAngle = 5
	s.Input.AngleStepDeg = 15
	s.Input.Methods = []string{"AMO"}
	s.Analysis.ConfidenceLevel = 0.95
	s.Analysis.CIMethod = config.CIMethodStudentT
	s.Analysis.AmplitudeEpsilon = 1e-9
	s.Output.Dir = dir
	s.Output.Plots = true
	s.Output.PlotWidthCm = 10
	s.Output.PlotHeightCm = 8
	return s
}

func renderArch(id int, method string) pipeline.ArchResult {
	fit := harmonic.Fit{ArchID: id, Method: method, A0: 450, A1: 10}
	summaries := make([]stats.AngleSummary, 24)
	for i := range summaries {
		angle := float64(i) * 15
		mean := fit.Eval(angle)
		summaries[i] = stats.AngleSummary{
			ArchID: id, Method: method, AngleDeg: angle, N: 5,
			Mean: mean, StdDev: 0.2, SEM: 0.09,
			CILow: mean - 0.25, CIHigh: mean + 0.25,
		}
	}
	return pipeline.ArchResult{
		Pair:             dataset.Pair{ArchID: id, Method: method},
		Summaries:        summaries,
		AlignedSummaries: summaries,
		Fit:              fit,
		Aligned: align.Fit{
			Fit:       fit,
			Dominance: harmonic.Dominance{Order: 1, Amplitude: 10, PeakAngleDeg: 0},
		},
	}
}

func TestRender_WritesAllPlotFiles(t *testing.T) {
	dir := t.TempDir()
	arches := []pipeline.ArchResult{renderArch(1, "AMO"), renderArch(2, "AMO")}
	pooled := harmonic.Fit{Method: "AMO", A0: 450, A1: 10}
	peaks, valleys := pooled.Extrema(2)

	res := &pipeline.Result{
		Arches: arches,
		Groups: []pipeline.GroupSummary{{
			Method:    "AMO",
			ArchIDs:   []int{1, 2},
			PooledFit: pooled,
			Peaks:     peaks,
			Valleys:   valleys,
		}},
	}

	r := NewRenderer(renderSettings(dir), zerolog.Nop())
	paths, err := r.Render(res)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "Arch1_AMO.png"),
		filepath.Join(dir, "Arch1_AMO_shaded.png"),
		filepath.Join(dir, "Arch2_AMO.png"),
		filepath.Join(dir, "Arch2_AMO_shaded.png"),
		filepath.Join(dir, "Arches_AMO_All.png"),
	}
	sort.Strings(want)
	assert.Equal(t, want, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestRender_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "plots")
	r := NewRenderer(renderSettings(dir), zerolog.Nop())

	paths, err := r.Render(&pipeline.Result{})
	require.NoError(t, err)
	assert.Empty(t, paths)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInterp(t *testing.T) {
	xs := []float64{0, 10, 20}
	ys := []float64{1, 3, 2}

	assert.InDelta(t, 1, interp(xs, ys, -5), 1e-12)  // clamp low
	assert.InDelta(t, 2, interp(xs, ys, 50), 1e-12)  // clamp high
	assert.InDelta(t, 2, interp(xs, ys, 5), 1e-12)   // midpoint rising
	assert.InDelta(t, 2.5, interp(xs, ys, 15), 1e-12)
	assert.InDelta(t, 3, interp(xs, ys, 10), 1e-12) // exact grid point
}

func TestCurveRange(t *testing.T) {
	f := harmonic.Fit{A0: 100, A1: 10}
	lo, hi := curveRange(f)
	assert.Less(t, lo, 90.0)
	assert.Greater(t, hi, 110.0)
	assert.InDelta(t, 89, lo, 0.5)
	assert.InDelta(t, 111, hi, 0.5)
}
