package interfaces

import (
	"context"

	"stock-insight/src/models"
)

// -----------------------------------------------------------------------------
// IEventPublisher forwards analysis events to an external queue.
// -----------------------------------------------------------------------------

type IEventPublisher interface {
	Publish(ctx context.Context, event models.MAnalysisEvent) error
	Close() error
}
