package models

// Request origins.
const (
	OriginHTTP      = "http"
	OriginGRPC      = "grpc"
	OriginWatchlist = "watchlist"
)

// MAnalysisRequest is the user input for one analysis run.
type MAnalysisRequest struct {
	Ticker    string `json:"ticker" form:"ticker"`
	Start     string `json:"start" form:"start"` // YYYY-MM-DD
	End       string `json:"end" form:"end"`     // YYYY-MM-DD, exclusive
	SessionID string `json:"session_id" form:"session_id"`
	Origin    string `json:"-"`
}
