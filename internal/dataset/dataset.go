// Package dataset holds the immutable raw input of the pipeline: individual
// deflection trials keyed by specimen, measurement method and angular
// position, loaded once from the long-format CSV the measurement export
// produces.
package dataset

import (
	"math"
	"sort"
)

// Trial is one raw deflection reading. Trials are immutable once loaded;
// every downstream stage derives new records instead of mutating these.
type Trial struct {
	// ArchID identifies the physical specimen (1-based).
	ArchID int
	// Method is the measurement method label, e.g. "AMO" or "ASTM".
	Method string
	// AngleDeg is the angular position in degrees within [0, 360).
	AngleDeg float64
	// TrialIndex is the 1-based repeat number at this angle.
	TrialIndex int
	// Deflection is the measured deflection value.
	Deflection float64
}

// Pair identifies one analysis unit: all trials of one specimen measured
// with one method.
type Pair struct {
	ArchID int
	Method string
}

// Dataset is an indexed, read-only collection of trials.
type Dataset struct {
	trials []Trial
	byPair map[Pair][]Trial
}

// New indexes the given trials. The slice is not copied; callers hand over
// ownership.
func New(trials []Trial) *Dataset {
	d := &Dataset{
		trials: trials,
		byPair: make(map[Pair][]Trial),
	}
	for _, tr := range trials {
		p := Pair{ArchID: tr.ArchID, Method: tr.Method}
		d.byPair[p] = append(d.byPair[p], tr)
	}
	return d
}

// Len returns the total number of trials.
func (d *Dataset) Len() int { return len(d.trials) }

// Pairs returns every (arch, method) pair present, ordered by arch id and
// then method so pipeline output is deterministic.
func (d *Dataset) Pairs() []Pair {
	pairs := make([]Pair, 0, len(d.byPair))
	for p := range d.byPair {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ArchID != pairs[j].ArchID {
			return pairs[i].ArchID < pairs[j].ArchID
		}
		return pairs[i].Method < pairs[j].Method
	})
	return pairs
}

// Trials returns the trials of one pair in load order.
func (d *Dataset) Trials(p Pair) []Trial { return d.byPair[p] }

// Group returns the deflection values of one pair grouped per angle, each
// group ordered by trial index.
func (d *Dataset) Group(p Pair) map[float64][]float64 {
	trials := append([]Trial(nil), d.byPair[p]...)
	sort.Slice(trials, func(i, j int) bool {
		if trials[i].AngleDeg != trials[j].AngleDeg {
			return trials[i].AngleDeg < trials[j].AngleDeg
		}
		return trials[i].TrialIndex < trials[j].TrialIndex
	})
	groups := make(map[float64][]float64)
	for _, tr := range trials {
		groups[tr.AngleDeg] = append(groups[tr.AngleDeg], tr.Deflection)
	}
	return groups
}

// Angles returns the sorted distinct angular positions of one pair.
func (d *Dataset) Angles(p Pair) []float64 {
	seen := make(map[float64]struct{})
	for _, tr := range d.byPair[p] {
		seen[tr.AngleDeg] = struct{}{}
	}
	angles := make([]float64, 0, len(seen))
	for a := range seen {
		angles = append(angles, a)
	}
	sort.Float64s(angles)
	return angles
}

// onGrid reports whether angle sits on a grid with the given step within
// floating-point tolerance.
func onGrid(angle, step float64) bool {
	r := math.Mod(angle, step)
	return math.Abs(r) < 1e-9 || math.Abs(r-step) < 1e-9
}
