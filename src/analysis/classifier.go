package analysis

import (
	"math"
	"strings"

	"stock-insight/src/analysis/core"
)

// Labels shown to the user.
const (
	TrendUp      = "Uptrend 📈"
	TrendDown    = "Downtrend 📉"
	TrendStable  = "Stable ➖"
	RiskLow      = "Low Risk 🟢"
	RiskMedium   = "Medium Risk 🟡"
	RiskHigh     = "High Risk 🔴"
	Insufficient = "Insufficient Data"
)

const (
	TrendWindow          = 10
	trendThresholdPct    = 2.0
	riskHighThresholdPct = 2.0
	riskMedThresholdPct  = 1.0
)

// Insight sentences.
const (
	InsightUpLow    = "Steady upward momentum with calm price swings. The trend looks healthy."
	InsightUpHigh   = "Prices are climbing but swinging hard. Gains may prove fragile."
	InsightDownHigh = "Prices are falling with large swings. Caution is warranted."
	InsightDownLow  = "A gradual, orderly decline. Watch for either a reversal or further weakness."
	InsightDefault  = "No strong directional signal. The stock is moving without a clear trend."
)

// -----------------------------------------------------------------------------

// ClassifyTrend labels the change between the first and last of the latest
// TrendWindow closes. It also returns that change in percent.
func ClassifyTrend(closes []float64) (string, float64) {
	window := closes
	if len(window) > TrendWindow {
		window = window[len(window)-TrendWindow:]
	}
	if len(window) < 2 {
		return Insufficient, 0
	}

	first, last := window[0], window[len(window)-1]
	if first == 0 {
		return Insufficient, 0
	}

	pct := core.CalculateChangePercent(last, first) * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return Insufficient, 0
	}
	switch {
	case pct > trendThresholdPct:
		return TrendUp, pct
	case pct < -trendThresholdPct:
		return TrendDown, pct
	default:
		return TrendStable, pct
	}
}

// -----------------------------------------------------------------------------

// CalculateRisk labels the sample standard deviation of daily returns over
// the whole series. It also returns that deviation in percent.
func CalculateRisk(closes []float64) (string, float64) {
	returns := core.PercentReturns(closes)
	if len(returns) == 0 {
		return Insufficient, 0
	}

	// NaN here means a corrupt price, never a short series.
	vol := core.CalculateSampleStd(returns) * 100
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return Insufficient, 0
	}
	switch {
	case vol > riskHighThresholdPct:
		return RiskHigh, vol
	case vol > riskMedThresholdPct:
		return RiskMedium, vol
	default:
		return RiskLow, vol
	}
}

// -----------------------------------------------------------------------------

// GetInsight picks the narrative for a trend/risk pair.
func GetInsight(trend, risk string) string {
	up := strings.HasPrefix(trend, "Uptrend")
	down := strings.HasPrefix(trend, "Downtrend")
	low := strings.HasPrefix(risk, "Low")
	high := strings.HasPrefix(risk, "High")

	switch {
	case up && low:
		return InsightUpLow
	case up && high:
		return InsightUpHigh
	case down && high:
		return InsightDownHigh
	case down && low:
		return InsightDownLow
	default:
		return InsightDefault
	}
}
