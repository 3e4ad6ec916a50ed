package models

// -----------------------------------------------------------------------------
// Push messages for websocket clients and the event queue
// -----------------------------------------------------------------------------

const (
	EventTypeAnalysis = "ANALYSIS"
	EventTypeInitial  = "INITIAL"
)

type MAnalysisEvent struct {
	Type   string          `json:"type"`
	Record MAnalysisRecord `json:"record"`
}

// -----------------------------------------------------------------------------

// MInitialEvents is sent once to a freshly connected client.
type MInitialEvents struct {
	Type   string           `json:"type"`
	Events []MAnalysisEvent `json:"events"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}
