package core

import "math"

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates the fractional change from previous to current.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// PercentReturns computes day-over-day fractional returns.
// The undefined first value is dropped, as is any step from a zero price.
func PercentReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, CalculateChangePercent(prices[i], prices[i-1]))
	}
	return returns
}

// -----------------------------------------------------------------------------

// MeanAbsoluteError and RootMeanSquaredError compare aligned slices.
func MeanAbsoluteError(actual, predicted []float64) float64 {
	n := minLen(actual, predicted)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(n)
}

func RootMeanSquaredError(actual, predicted []float64) float64 {
	n := minLen(actual, predicted)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func minLen(a, b []float64) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
