package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

// Plot palette, matching the lab's report styling.
var (
	meanColor = color.RGBA{R: 0x6A, G: 0x5D, B: 0xC4, A: 0xFF}
	bandColor = color.RGBA{R: 0xE9, G: 0xE6, B: 0xF7, A: 0xFF}
	fitColor  = color.RGBA{R: 0x3B, G: 0x53, B: 0x87, A: 0xFF}
	refColor  = color.RGBA{R: 0xFD, G: 0xD7, B: 0x86, A: 0xFF}
)

// fitSamples is the dense sampling used when drawing fitted curves.
const fitSamples = 400

// Renderer writes plot files for a pipeline result.
type Renderer struct {
	settings *config.Settings
	log      zerolog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(settings *config.Settings, log zerolog.Logger) *Renderer {
	return &Renderer{settings: settings, log: log}
}

// Render writes every plot into the configured output directory and returns
// the written paths, sorted. Plot files are independent, so rendering fans
// out; the analysis itself has already happened.
func (r *Renderer) Render(res *pipeline.Result) ([]string, error) {
	dir := r.settings.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.WrapError(err, "create output dir %q", dir)
	}

	type job struct {
		path  string
		build func() (*plot.Plot, error)
	}
	var jobs []job

	for _, arch := range res.Arches {
		arch := arch
		jobs = append(jobs,
			job{
				path:  filepath.Join(dir, fmt.Sprintf("Arch%d_%s.png", arch.Pair.ArchID, arch.Pair.Method)),
				build: func() (*plot.Plot, error) { return r.archPlot(arch) },
			},
			job{
				path:  filepath.Join(dir, fmt.Sprintf("Arch%d_%s_shaded.png", arch.Pair.ArchID, arch.Pair.Method)),
				build: func() (*plot.Plot, error) { return r.shadedPlot(arch) },
			},
		)
	}
	for _, g := range res.Groups {
		g := g
		jobs = append(jobs, job{
			path:  filepath.Join(dir, fmt.Sprintf("Arches_%s_All.png", g.Method)),
			build: func() (*plot.Plot, error) { return r.overlayPlot(g, res.Arches) },
		})
	}

	var eg errgroup.Group
	eg.SetLimit(4)
	for _, j := range jobs {
		j := j
		eg.Go(func() error {
			p, err := j.build()
			if err != nil {
				return apperrors.WrapError(err, "build %q", j.path)
			}
			w := vg.Length(r.settings.Output.PlotWidthCm) * vg.Centimeter
			h := vg.Length(r.settings.Output.PlotHeightCm) * vg.Centimeter
			if err := p.Save(w, h, j.path); err != nil {
				return apperrors.WrapError(err, "save %q", j.path)
			}
			r.log.Debug().Str("path", j.path).Msg("plot written")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.path
	}
	sort.Strings(paths)
	return paths, nil
}

// newAxes builds a plot with the shared axis styling.
func newAxes(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Aligned Angle (°)"
	p.Y.Label.Text = "Deflection"
	p.X.Min, p.X.Max = 0, 360
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

// archPlot draws the aligned per-angle means with CI error bars and the
// fitted curve.
func (r *Renderer) archPlot(arch pipeline.ArchResult) (*plot.Plot, error) {
	p := newAxes(fmt.Sprintf("Arch %d - %s", arch.Pair.ArchID, arch.Pair.Method))

	points := ciPoints(arch.AlignedSummaries)
	bars, err := plotter.NewYErrorBars(points)
	if err != nil {
		return nil, err
	}
	bars.LineStyle.Color = meanColor

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = meanColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2.5)

	fitLine, err := plotter.NewLine(sampleCurve(arch.Aligned.Fit))
	if err != nil {
		return nil, err
	}
	fitLine.LineStyle.Color = fitColor
	fitLine.LineStyle.Width = vg.Points(2)

	p.Add(bars, scatter, fitLine)
	p.Legend.Add(fmt.Sprintf("Mean ±%.0f%% CI", r.settings.Analysis.ConfidenceLevel*100), scatter)
	p.Legend.Add("Harmonic Fit", fitLine)
	return p, nil
}

// shadedPlot draws the fitted curve with a shaded CI band interpolated from
// the per-angle intervals, plus the mean points connected by a light line.
func (r *Renderer) shadedPlot(arch pipeline.ArchResult) (*plot.Plot, error) {
	p := newAxes(fmt.Sprintf("Arch %d - %s", arch.Pair.ArchID, arch.Pair.Method))

	band, err := plotter.NewPolygon(ciBand(arch.Aligned.Fit, arch.AlignedSummaries))
	if err != nil {
		return nil, err
	}
	band.Color = bandColor
	band.LineStyle.Color = bandColor

	points := ciPoints(arch.AlignedSummaries)
	meanLine, err := plotter.NewLine(points)
	if err != nil {
		return nil, err
	}
	meanLine.LineStyle.Color = meanColor

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = meanColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)

	fitLine, err := plotter.NewLine(sampleCurve(arch.Aligned.Fit))
	if err != nil {
		return nil, err
	}
	fitLine.LineStyle.Color = fitColor
	fitLine.LineStyle.Width = vg.Points(2)

	p.Add(band, meanLine, scatter, fitLine)
	p.Legend.Add(fmt.Sprintf("%.0f%% CI", r.settings.Analysis.ConfidenceLevel*100), band)
	p.Legend.Add("Mean", scatter)
	p.Legend.Add("Harmonic Fit", fitLine)
	return p, nil
}

// overlayPlot draws every aligned arch of one method, the pooled fit, and
// vertical reference lines at the group extrema.
func (r *Renderer) overlayPlot(g pipeline.GroupSummary, arches []pipeline.ArchResult) (*plot.Plot, error) {
	p := newAxes(fmt.Sprintf("Arches %s Deflection", g.Method))

	i := 0
	for _, arch := range arches {
		if arch.Pair.Method != g.Method {
			continue
		}
		line, err := plotter.NewLine(ciPointsXYs(arch.AlignedSummaries))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Arch %d", arch.Pair.ArchID), line)
		i++
	}

	pooled, err := plotter.NewLine(sampleCurve(g.PooledFit))
	if err != nil {
		return nil, err
	}
	pooled.LineStyle.Color = fitColor
	pooled.LineStyle.Width = vg.Points(2.5)
	p.Add(pooled)
	p.Legend.Add("Pooled Fit", pooled)

	yMin, yMax := curveRange(g.PooledFit)
	extrema := append(append([]harmonic.Extremum{}, g.Peaks...), g.Valleys...)
	var labelXYs plotter.XYs
	var labelTexts []string
	for _, e := range extrema {
		ref, err := plotter.NewLine(plotter.XYs{
			{X: e.AngleDeg, Y: yMin},
			{X: e.AngleDeg, Y: yMax},
		})
		if err != nil {
			return nil, err
		}
		ref.LineStyle.Color = refColor
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)

		labelXYs = append(labelXYs, plotter.XY{X: e.AngleDeg, Y: yMax})
		labelTexts = append(labelTexts, fmt.Sprintf("%.1f° (%.2f)", e.AngleDeg, e.Value))
	}
	if len(labelXYs) > 0 {
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelTexts})
		if err != nil {
			return nil, err
		}
		p.Add(labels)
	}
	return p, nil
}

// ciPoints adapts angle summaries to the plotter interfaces, exposing the
// CI half-width as the symmetric Y error.
type ciPoints []stats.AngleSummary

func (c ciPoints) Len() int                    { return len(c) }
func (c ciPoints) XY(i int) (float64, float64) { return c[i].AngleDeg, c[i].Mean }
func (c ciPoints) YError(i int) (float64, float64) {
	h := c[i].CIHalfWidth()
	return h, h
}

func ciPointsXYs(summaries []stats.AngleSummary) plotter.XYs {
	xys := make(plotter.XYs, len(summaries))
	for i, s := range summaries {
		xys[i] = plotter.XY{X: s.AngleDeg, Y: s.Mean}
	}
	return xys
}

// sampleCurve evaluates a fit densely over the full rotation.
func sampleCurve(f harmonic.Fit) plotter.XYs {
	xys := make(plotter.XYs, fitSamples+1)
	for i := 0; i <= fitSamples; i++ {
		x := float64(i) * 360 / fitSamples
		xys[i] = plotter.XY{X: x, Y: f.Eval(x)}
	}
	return xys
}

// curveRange returns the sampled min and max of a fit with a small margin
// for reference lines and labels.
func curveRange(f harmonic.Fit) (yMin, yMax float64) {
	s := sampleCurve(f)
	yMin, yMax = s[0].Y, s[0].Y
	for _, xy := range s {
		if xy.Y < yMin {
			yMin = xy.Y
		}
		if xy.Y > yMax {
			yMax = xy.Y
		}
	}
	margin := (yMax - yMin) * 0.05
	if margin == 0 {
		margin = 1
	}
	return yMin - margin, yMax + margin
}

// ciBand builds the polygon outline of the CI band around the fitted curve:
// the upper edge left to right, then the lower edge back. Half-widths are
// linearly interpolated between the summary angles and clamped at the ends.
func ciBand(f harmonic.Fit, summaries []stats.AngleSummary) plotter.XYs {
	const bandSamples = 240
	xs := make([]float64, len(summaries))
	hs := make([]float64, len(summaries))
	for i, s := range summaries {
		xs[i] = s.AngleDeg
		hs[i] = s.CIHalfWidth()
	}

	outline := make(plotter.XYs, 0, 2*(bandSamples+1))
	for i := 0; i <= bandSamples; i++ {
		x := float64(i) * 360 / bandSamples
		outline = append(outline, plotter.XY{X: x, Y: f.Eval(x) + interp(xs, hs, x)})
	}
	for i := bandSamples; i >= 0; i-- {
		x := float64(i) * 360 / bandSamples
		outline = append(outline, plotter.XY{X: x, Y: f.Eval(x) - interp(xs, hs, x)})
	}
	return outline
}

// interp linearly interpolates ys over the sorted xs grid, clamping outside
// the grid range.
func interp(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := sort.SearchFloat64s(xs, x)
	// xs[i-1] < x <= xs[i]
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}
