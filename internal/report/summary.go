// Package report renders the pipeline outcome: a textual summary of
// per-arch fits and group peak/valley locations, and the plot files
// (error-bar, shaded-CI and group overlay charts).
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
)

// SummaryOptions control summary rendering.
type SummaryOptions struct {
	// ReferenceAngleDeg is echoed in the header so the aligned frame is
	// unambiguous.
	ReferenceAngleDeg float64
	// Colorize enables ANSI colors for terminals.
	Colorize bool
}

// writer wraps an io.Writer and keeps the first write error so the
// formatting code can stay linear.
type writer struct {
	w   io.Writer
	err error
}

func (p *writer) printf(format string, a ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, a...)
}

// WriteSummary writes the textual analysis summary: the aligned specimen
// table, one block per method group with pooled extrema and cross-arch
// spread, and the flagged specimens.
func WriteSummary(w io.Writer, res *pipeline.Result, opts SummaryOptions) error {
	heading := fmt.Sprint
	warn := fmt.Sprint
	if opts.Colorize {
		heading = color.New(color.FgCyan, color.Bold).Sprint
		warn = color.New(color.FgYellow).Sprint
	}

	p := &writer{w: w}
	p.printf("%s\n%s\n\n", heading("Deflection Analysis Summary"), heading("==========================="))

	p.printf("Aligned arches (reference %.1f°)\n", opts.ReferenceAngleDeg)
	p.printf("  arch  method  order  amplitude      peak°    offset°    fit rms\n")
	for _, arch := range res.Arches {
		p.printf("  %4d  %-6s  %5d  %9.3f  %9.3f  %9.3f  %9.3f\n",
			arch.Pair.ArchID,
			arch.Pair.Method,
			arch.Aligned.Dominance.Order,
			arch.Aligned.Dominance.Amplitude,
			arch.Aligned.Dominance.PeakAngleDeg,
			arch.Aligned.PhaseOffsetDeg,
			arch.Fit.ResidualRMS,
		)
	}

	for _, g := range res.Groups {
		p.printf("\n%s\n", heading(fmt.Sprintf("Method %s (arches %s)", g.Method, joinInts(g.ArchIDs))))
		p.printf("  pooled peaks:    %s\n", formatExtrema(g.Peaks))
		p.printf("  pooled valleys:  %s\n", formatExtrema(g.Valleys))
		p.printf("  peak spread:     %.1f° ± %.1f°, value %.2f ± %.2f\n",
			g.PeakSpread.AngleMeanDeg, g.PeakSpread.AngleStdDeg,
			g.PeakSpread.ValueMean, g.PeakSpread.ValueStd)
		p.printf("  valley spread:   %.1f° ± %.1f°, value %.2f ± %.2f\n",
			g.ValleySpread.AngleMeanDeg, g.ValleySpread.AngleStdDeg,
			g.ValleySpread.ValueMean, g.ValleySpread.ValueStd)
	}

	if len(res.Skipped) > 0 {
		p.printf("\n%s\n", warn("Flagged specimens"))
		for _, s := range res.Skipped {
			p.printf("  - %s\n", warn(s.Reason.Error()))
		}
	}

	return p.err
}

// formatExtrema renders extrema as "47.0° (512.30)" pairs.
func formatExtrema(ex []harmonic.Extremum) string {
	if len(ex) == 0 {
		return "none"
	}
	parts := make([]string, len(ex))
	for i, e := range ex {
		parts[i] = fmt.Sprintf("%.1f° (%.2f)", e.AngleDeg, e.Value)
	}
	return strings.Join(parts, "  ")
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
