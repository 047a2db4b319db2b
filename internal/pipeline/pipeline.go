// Package pipeline drives the four analysis stages per (arch, method) pair:
// trial aggregation, harmonic fitting, phase alignment, and group
// aggregation. Specimen-level failures (missing trials, degenerate fits,
// alignment inconsistencies) flag that pair and the batch continues; only
// malformed input or configuration aborts a run.
package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/align"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

// ArchResult is the complete per-specimen outcome of one (arch, method)
// pair that made it through every stage.
type ArchResult struct {
	Pair dataset.Pair
	// Summaries are the per-angle aggregates in the measured frame.
	Summaries []stats.AngleSummary
	// AlignedSummaries are the same records in the aligned frame, sorted
	// by aligned angle.
	AlignedSummaries []stats.AngleSummary
	// Fit is the harmonic fit in the measured frame.
	Fit harmonic.Fit
	// Aligned is the rotated fit plus its phase offset and dominance.
	Aligned align.Fit
}

// Skip records one flagged (arch, method) pair and why it was excluded.
type Skip struct {
	Pair   dataset.Pair
	Reason error
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	// StartedAt is when the analysis began.
	StartedAt time.Time
	// Arches holds every successful pair, ordered by arch id then method.
	Arches []ArchResult
	// Groups holds one GroupSummary per method that kept at least one
	// arch, in configured method order.
	Groups []GroupSummary
	// Skipped lists flagged pairs in encounter order.
	Skipped []Skip
}

// Runner executes the pipeline with fixed settings.
type Runner struct {
	settings *config.Settings
	log      zerolog.Logger

	// methodFilter restricts the run to one method label when non-empty.
	methodFilter string
}

// Option configures a Runner.
type Option func(*Runner)

// WithMethodFilter restricts the run to a single measurement method.
func WithMethodFilter(method string) Option {
	return func(r *Runner) { r.methodFilter = method }
}

// New creates a Runner.
func New(settings *config.Settings, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{settings: settings, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full pipeline over the dataset. The dataset is read-only
// throughout; every stage produces new records.
func (r *Runner) Run(d *dataset.Dataset) (*Result, error) {
	res := &Result{StartedAt: time.Now()}

	ci := stats.CIConfig{
		Level:  r.settings.Analysis.ConfidenceLevel,
		Method: r.settings.Analysis.CIMethod,
	}

	for _, pair := range d.Pairs() {
		if r.methodFilter != "" && pair.Method != r.methodFilter {
			continue
		}

		arch, err := r.runPair(d, pair, ci)
		if err != nil {
			if apperrors.IsRecoverable(err) {
				r.log.Warn().
					Int("arch", pair.ArchID).
					Str("method", pair.Method).
					Err(err).
					Msg("specimen flagged, skipping")
				res.Skipped = append(res.Skipped, Skip{Pair: pair, Reason: err})
				continue
			}
			return nil, err
		}
		res.Arches = append(res.Arches, arch)

		r.log.Debug().
			Int("arch", pair.ArchID).
			Str("method", pair.Method).
			Int("dominant_order", arch.Aligned.Dominance.Order).
			Float64("peak_deg", arch.Aligned.Dominance.PeakAngleDeg).
			Float64("offset_deg", arch.Aligned.PhaseOffsetDeg).
			Msg("specimen aligned")
	}

	groups, err := r.groupByMethod(res.Arches)
	if err != nil {
		return nil, err
	}
	res.Groups = groups
	return res, nil
}

// runPair runs aggregation, fitting and alignment for one pair.
func (r *Runner) runPair(d *dataset.Dataset, pair dataset.Pair, ci stats.CIConfig) (ArchResult, error) {
	if err := r.checkGrid(d, pair); err != nil {
		return ArchResult{}, err
	}

	summaries, err := stats.Aggregate(d, pair, r.settings.Input.TrialsPerAngle, ci)
	if err != nil {
		return ArchResult{}, err
	}

	angles := make([]float64, len(summaries))
	means := make([]float64, len(summaries))
	for i, s := range summaries {
		angles[i] = s.AngleDeg
		means[i] = s.Mean
	}

	fit, err := harmonic.FitSeries(pair.ArchID, pair.Method, angles, means)
	if err != nil {
		return ArchResult{}, err
	}

	aligned, err := align.Align(fit, r.settings.Analysis.ReferenceAngleDeg, r.settings.Analysis.AmplitudeEpsilon)
	if err != nil {
		return ArchResult{}, err
	}

	return ArchResult{
		Pair:             pair,
		Summaries:        summaries,
		AlignedSummaries: align.Summaries(summaries, aligned.PhaseOffsetDeg),
		Fit:              fit,
		Aligned:          aligned,
	}, nil
}

// checkGrid verifies the pair covers the full angular grid. A missing angle
// is reported as missing trial data at that position.
func (r *Runner) checkGrid(d *dataset.Dataset, pair dataset.Pair) error {
	angles := d.Angles(pair)
	if len(angles) == r.settings.AngleCount() {
		return nil
	}

	present := make(map[float64]struct{}, len(angles))
	for _, a := range angles {
		present[a] = struct{}{}
	}
	step := r.settings.Input.AngleStepDeg
	for i := 0; i < r.settings.AngleCount(); i++ {
		a := float64(i) * step
		if _, ok := present[a]; !ok {
			return apperrors.MissingTrialDataError{
				ArchID:   pair.ArchID,
				Method:   pair.Method,
				AngleDeg: a,
				Got:      0,
				Want:     r.settings.Input.TrialsPerAngle,
			}
		}
	}
	return nil
}
