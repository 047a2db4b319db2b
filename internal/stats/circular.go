package stats

import "math"

// CircularMeanStd returns the circular mean and circular standard deviation
// of the given angles, both in degrees. Plain arithmetic means are wrong for
// angles near the 0/360 wrap, so the mean direction comes from the resultant
// vector and the dispersion from its length (std = √(−2·ln R)).
//
// The mean is normalized to [0, 360). An empty input returns (0, 0); a
// fully dispersed input (R ≈ 0) returns a very large std rather than ±Inf.
func CircularMeanStd(anglesDeg []float64) (meanDeg, stdDeg float64) {
	if len(anglesDeg) == 0 {
		return 0, 0
	}

	var sumSin, sumCos float64
	for _, a := range anglesDeg {
		rad := a * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}
	n := float64(len(anglesDeg))
	r := math.Hypot(sumSin, sumCos) / n

	meanDeg = math.Atan2(sumSin, sumCos) * 180 / math.Pi
	meanDeg = math.Mod(meanDeg+360, 360)

	const minResultant = 1e-12
	if r < minResultant {
		r = minResultant
	}
	if r > 1 {
		r = 1 // guard against rounding just above 1
	}
	stdDeg = math.Sqrt(-2*math.Log(r)) * 180 / math.Pi
	return meanDeg, stdDeg
}
