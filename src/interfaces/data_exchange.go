package interfaces

import "stock-insight/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes completed analyses to live listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast queues an analysis event for every subscribed client.
	Broadcast(event models.MAnalysisEvent)

	// Start the server
	Start() error

	// Stop the server gracefully
	Stop() error
}
