package interfaces

import (
	"context"

	"stock-insight/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the analysis journal.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize(ctx context.Context) error

	// SaveAnalysis journals a completed analysis and bumps its ticker counter.
	SaveAnalysis(ctx context.Context, record models.MAnalysisRecord) error

	// RecentAnalyses lists the newest records, optionally for one ticker.
	RecentAnalyses(ctx context.Context, ticker string, limit int) ([]models.MAnalysisRecord, error)

	// ListTickers summarises analysed tickers, most recent first.
	ListTickers(ctx context.Context) ([]models.MTickerSummary, error)

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// Close the database connection
	Close() error
}
