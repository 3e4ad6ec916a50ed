package models

// MProcessingMetrics records how long each pipeline stage took.
type MProcessingMetrics struct {
	FetchSeconds    float64 `json:"fetch_seconds"`
	AnalysisSeconds float64 `json:"analysis_seconds"`
	CacheHit        bool    `json:"cache_hit"`
}
