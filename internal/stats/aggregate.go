// Package stats implements the aggregation stage: it reduces the repeated
// trials at each angular position to a mean, sample standard deviation and
// confidence interval, and provides the circular statistics used for
// cross-arch variability of extremum angles.
package stats

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// AngleSummary is the aggregate of all trials at one angular position of one
// (arch, method) pair. Summaries are derived records; the raw trials stay
// untouched.
type AngleSummary struct {
	ArchID   int
	Method   string
	AngleDeg float64
	// N is the number of trials that contributed.
	N int
	// Mean is the arithmetic mean of the trial deflections.
	Mean float64
	// StdDev is the sample standard deviation (n−1 divisor).
	StdDev float64
	// SEM is the standard error of the mean.
	SEM float64
	// CILow and CIHigh bound the two-sided confidence interval.
	CILow  float64
	CIHigh float64
}

// CIHalfWidth returns the half-width of the confidence interval.
func (s AngleSummary) CIHalfWidth() float64 { return (s.CIHigh - s.CILow) / 2 }

// CIConfig selects how the confidence interval quantile is computed.
type CIConfig struct {
	// Level is the two-sided confidence level, e.g. 0.95.
	Level float64
	// Method is config.CIMethodStudentT or config.CIMethodNormal.
	Method string
}

// quantile returns the positive critical value for the configured two-sided
// interval with n observations.
func (c CIConfig) quantile(n int) float64 {
	p := 0.5 + c.Level/2
	if c.Method == config.CIMethodNormal {
		return distuv.UnitNormal.Quantile(p)
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	return t.Quantile(p)
}

// Summarize reduces the trial values at one angle. It requires at least two
// values (the CI is undefined below that) and exactly `want` values when
// want is positive; violations are reported as MissingTrialDataError so the
// pipeline can flag the arch and continue.
func Summarize(p dataset.Pair, angleDeg float64, values []float64, want int, cfg CIConfig) (AngleSummary, error) {
	n := len(values)
	if n < 2 || (want > 0 && n != want) {
		return AngleSummary{}, apperrors.MissingTrialDataError{
			ArchID:   p.ArchID,
			Method:   p.Method,
			AngleDeg: angleDeg,
			Got:      n,
			Want:     want,
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	sem := stat.StdErr(std, float64(n))
	half := sem * cfg.quantile(n)

	return AngleSummary{
		ArchID:   p.ArchID,
		Method:   p.Method,
		AngleDeg: angleDeg,
		N:        n,
		Mean:     mean,
		StdDev:   std,
		SEM:      sem,
		CILow:    mean - half,
		CIHigh:   mean + half,
	}, nil
}

// Aggregate summarizes every angular position of one (arch, method) pair,
// ordered by angle. The first incomplete angle fails the whole pair: a
// specimen with a bad angle cannot be fitted and is flagged upstream.
func Aggregate(d *dataset.Dataset, p dataset.Pair, want int, cfg CIConfig) ([]AngleSummary, error) {
	groups := d.Group(p)
	angles := d.Angles(p)

	summaries := make([]AngleSummary, 0, len(angles))
	for _, angle := range angles {
		s, err := Summarize(p, angle, groups[angle], want, cfg)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
