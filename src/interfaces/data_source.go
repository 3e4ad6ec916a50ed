package interfaces

import (
	"context"
	"time"

	"stock-insight/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for fetching daily price series from external sources.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// FetchSeries returns daily bars for ticker in [start, end).
	// An unknown ticker or empty range yields a series with no bars and a nil error.
	FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error)
}
