package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// CalculateSampleStd computes the standard deviation with an n-1 denominator.
// Fewer than two values yield 0.
func CalculateSampleStd(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}

	mean, _ := CalculateMeanStd(data)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return math.Sqrt(varianceSum / float64(len(data)-1))
}

// -----------------------------------------------------------------------------

// SimpleMovingAverage returns the trailing mean over window for every index.
// The first window-1 entries are nil.
func SimpleMovingAverage(data []float64, window int) []*float64 {
	out := make([]*float64, len(data))
	if window <= 0 {
		return out
	}

	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= window {
			sum -= data[i-window]
		}
		if i >= window-1 {
			avg := sum / float64(window)
			out[i] = &avg
		}
	}
	return out
}
