package interfaces

import (
	"context"

	"stock-insight/src/models"
)

// -----------------------------------------------------------------------------
// IAnalyzer runs the fetch, classify and predict pipeline for one request.
// -----------------------------------------------------------------------------

type IAnalyzer interface {

	// Run validates req, fetches the series and returns the full result.
	Run(ctx context.Context, req models.MAnalysisRequest) (*models.MAnalysisResult, error)

	// Status summarises the running service.
	Status() models.MServiceStatus
}
