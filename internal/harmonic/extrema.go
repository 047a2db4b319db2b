package harmonic

import (
	"math"
	"sort"
)

// Extremum is one local peak or valley of a fitted curve.
type Extremum struct {
	// AngleDeg is the extremum location in [0, 360).
	AngleDeg float64
	// Value is the fitted deflection there.
	Value float64
}

// extremaSamples is the dense evaluation resolution for extremum scans,
// 0.3° per sample over the full rotation.
const extremaSamples = 1200

// minSeparationDeg keeps detected extrema of the same kind at least this far
// apart; a second-order harmonic cannot produce two peaks closer than 60°
// that are both real.
const minSeparationDeg = 60.0

// Extrema locates the peaks and valleys of the fitted curve by dense
// evaluation over the full rotation, returning at most maxEach of each kind,
// strongest first by fitted value.
func (f Fit) Extrema(maxEach int) (peaks, valleys []Extremum) {
	y := make([]float64, extremaSamples)
	for i := range y {
		y[i] = f.Eval(sampleAngle(i))
	}

	minSep := int(minSeparationDeg / 360 * extremaSamples)
	peaks = pickExtrema(y, localMaxima(y, minSep), maxEach, false)

	neg := make([]float64, len(y))
	for i, v := range y {
		neg[i] = -v
	}
	valleys = pickExtrema(y, localMaxima(neg, minSep), maxEach, true)
	return peaks, valleys
}

func sampleAngle(i int) float64 {
	return float64(i) * 360 / extremaSamples
}

// localMaxima returns indexes of circular local maxima of y, suppressing any
// candidate within minSep samples (circular distance) of a higher one.
func localMaxima(y []float64, minSep int) []int {
	n := len(y)
	var candidates []int
	for i := 0; i < n; i++ {
		prev := y[(i+n-1)%n]
		next := y[(i+1)%n]
		if y[i] > prev && y[i] >= next {
			candidates = append(candidates, i)
		}
	}

	// Highest first, then greedy suppression.
	sort.Slice(candidates, func(a, b int) bool { return y[candidates[a]] > y[candidates[b]] })
	var kept []int
	for _, c := range candidates {
		ok := true
		for _, k := range kept {
			d := int(math.Abs(float64(c - k)))
			if d > n/2 {
				d = n - d
			}
			if d < minSep {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	sort.Ints(kept)
	return kept
}

// pickExtrema maps sample indexes to Extrema and keeps the strongest maxEach
// (lowest values when valley is set).
func pickExtrema(y []float64, idx []int, maxEach int, valley bool) []Extremum {
	out := make([]Extremum, 0, len(idx))
	for _, i := range idx {
		out = append(out, Extremum{AngleDeg: sampleAngle(i), Value: y[i]})
	}
	sort.Slice(out, func(a, b int) bool {
		if valley {
			return out[a].Value < out[b].Value
		}
		return out[a].Value > out[b].Value
	})
	if maxEach > 0 && len(out) > maxEach {
		out = out[:maxEach]
	}
	return out
}
