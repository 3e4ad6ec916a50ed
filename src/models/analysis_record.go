package models

import "time"

// MAnalysisRecord is the journaled summary of a completed analysis.
type MAnalysisRecord struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	Ticker             string    `json:"ticker"`
	Start              string    `json:"start"`
	End                string    `json:"end"`
	Source             string    `json:"source"`
	Origin             string    `json:"origin"`
	Trend              string    `json:"trend"`
	Risk               string    `json:"risk"`
	Insight            string    `json:"insight"`
	TrendChangePercent float64   `json:"trend_change_percent"`
	VolatilityPercent  float64   `json:"volatility_percent"`
	Rows               int       `json:"rows"`
	LastClose          float64   `json:"last_close"`
	CreatedAt          time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

// MTickerSummary aggregates the journal per ticker.
type MTickerSummary struct {
	Ticker       string    `json:"ticker"`
	Analyses     int       `json:"analyses"`
	FirstSeen    time.Time `json:"first_seen"`
	LastAnalyzed time.Time `json:"last_analyzed"`
}

// -----------------------------------------------------------------------------

// NewAnalysisRecord flattens a result for storage.
func NewAnalysisRecord(r *MAnalysisResult, origin string) MAnalysisRecord {
	return MAnalysisRecord{
		ID:                 r.ID,
		SessionID:          r.SessionID,
		Ticker:             r.Ticker,
		Start:              r.Start,
		End:                r.End,
		Source:             r.Source,
		Origin:             origin,
		Trend:              r.Trend,
		Risk:               r.Risk,
		Insight:            r.Insight,
		TrendChangePercent: r.TrendChangePercent,
		VolatilityPercent:  r.VolatilityPercent,
		Rows:               r.Rows,
		LastClose:          r.LastClose,
		CreatedAt:          r.CreatedAt,
	}
}
