package pipeline

import (
	"gonum.org/v1/gonum/stat"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

// groupExtrema is the number of peaks and valleys reported per group; a
// second-order harmonic pattern has at most two of each.
const groupExtrema = 2

// ExtremumSpread describes where one kind of extremum lands across the
// aligned arches of a method.
type ExtremumSpread struct {
	// AngleMeanDeg and AngleStdDeg are the circular mean and circular
	// standard deviation of the per-arch extremum angles.
	AngleMeanDeg float64
	AngleStdDeg  float64
	// ValueMean and ValueStd aggregate the fitted deflection at those
	// extrema.
	ValueMean float64
	ValueStd  float64
}

// GroupSummary aggregates all aligned arches of one method.
type GroupSummary struct {
	Method string
	// ArchIDs lists the arches that contributed, in order.
	ArchIDs []int
	// PooledFit is the harmonic fit over the aligned angle/mean points of
	// every contributing arch at once.
	PooledFit harmonic.Fit
	// Peaks and Valleys are the pooled fit's extrema, strongest first.
	Peaks   []harmonic.Extremum
	Valleys []harmonic.Extremum
	// PeakSpread and ValleySpread give the cross-arch variability of each
	// arch's own primary extremum in the aligned frame.
	PeakSpread   ExtremumSpread
	ValleySpread ExtremumSpread
}

// groupByMethod builds one GroupSummary per configured method that kept at
// least one arch.
func (r *Runner) groupByMethod(arches []ArchResult) ([]GroupSummary, error) {
	var groups []GroupSummary
	for _, method := range r.settings.Input.Methods {
		if r.methodFilter != "" && method != r.methodFilter {
			continue
		}
		var members []ArchResult
		for _, a := range arches {
			if a.Pair.Method == method {
				members = append(members, a)
			}
		}
		if len(members) == 0 {
			continue
		}
		g, err := r.summarizeGroup(method, members)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// summarizeGroup pools the aligned per-angle means of all member arches
// into one fit and derives the group extrema, mirroring a global fit over
// the concatenated aligned series.
func (r *Runner) summarizeGroup(method string, members []ArchResult) (GroupSummary, error) {
	var angles, means []float64
	ids := make([]int, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Pair.ArchID)
		for _, s := range m.AlignedSummaries {
			angles = append(angles, s.AngleDeg)
			means = append(means, s.Mean)
		}
	}

	pooled, err := harmonic.FitSeries(0, method, angles, means)
	if err != nil {
		return GroupSummary{}, err
	}
	peaks, valleys := pooled.Extrema(groupExtrema)

	return GroupSummary{
		Method:       method,
		ArchIDs:      ids,
		PooledFit:    pooled,
		Peaks:        peaks,
		Valleys:      valleys,
		PeakSpread:   spreadOf(members, false),
		ValleySpread: spreadOf(members, true),
	}, nil
}

// spreadOf collects each member's primary extremum (of its aligned fitted
// curve) and reduces the angles circularly and the values linearly.
func spreadOf(members []ArchResult, valley bool) ExtremumSpread {
	var angles, values []float64
	for _, m := range members {
		peaks, valleys := m.Aligned.Fit.Extrema(1)
		pick := peaks
		if valley {
			pick = valleys
		}
		if len(pick) == 0 {
			continue
		}
		angles = append(angles, pick[0].AngleDeg)
		values = append(values, pick[0].Value)
	}
	if len(angles) == 0 {
		return ExtremumSpread{}
	}

	angleMean, angleStd := stats.CircularMeanStd(angles)
	valueMean, valueStd := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		valueStd = 0
	}
	return ExtremumSpread{
		AngleMeanDeg: angleMean,
		AngleStdDeg:  angleStd,
		ValueMean:    valueMean,
		ValueStd:     valueStd,
	}
}
