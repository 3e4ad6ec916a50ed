package models

import "time"

// MAnalysisResult is everything the dashboard renders for one run.
type MAnalysisResult struct {
	ID                 string             `json:"id"`
	SessionID          string             `json:"session_id"`
	Ticker             string             `json:"ticker"`
	Start              string             `json:"start"`
	End                string             `json:"end"`
	Source             string             `json:"source"`
	Trend              string             `json:"trend"`
	Risk               string             `json:"risk"`
	Insight            string             `json:"insight"`
	TrendChangePercent float64            `json:"trend_change_percent"`
	VolatilityPercent  float64            `json:"volatility_percent"`
	Rows               int                `json:"rows"`
	LastClose          float64            `json:"last_close"`
	PredictionEnabled  bool               `json:"prediction_enabled"`
	Table              []MPredictionRow   `json:"table"`
	Chart              MChartSeries       `json:"chart"`
	ModelMetrics       *MModelMetrics     `json:"model_metrics,omitempty"`
	Coverage           MCoverage          `json:"coverage"`
	Metrics            MProcessingMetrics `json:"processing_metrics"`
	Warnings           []string           `json:"warnings"`
	CreatedAt          time.Time          `json:"created_at"`
}

// -----------------------------------------------------------------------------

// MPredictionRow is one line of the "last N rows" table.
type MPredictionRow struct {
	Date      string   `json:"date"`
	Close     float64  `json:"close"`
	Predicted *float64 `json:"predicted_close"`
}

// -----------------------------------------------------------------------------

// MChartSeries holds aligned columns for the actual vs predicted chart.
// Predicted is nil-filled when no model is loaded; Derived is the moving average.
type MChartSeries struct {
	Dates     []string   `json:"dates"`
	Close     []float64  `json:"close"`
	Predicted []*float64 `json:"predicted"`
	Derived   []*float64 `json:"derived"`
	Label     string     `json:"derived_label"`
}

// -----------------------------------------------------------------------------

// MModelMetrics are in-sample errors of the predictor over the fetched range.
type MModelMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	Rows int     `json:"rows"`
}

// -----------------------------------------------------------------------------

// MCoverage compares the fetched bars with the exchange calendar.
type MCoverage struct {
	Exchange         string  `json:"exchange"`
	ExpectedSessions int     `json:"expected_sessions"`
	ActualSessions   int     `json:"actual_sessions"`
	Percent          float64 `json:"percent"`
	MarketOpen       bool    `json:"market_open"`
}
