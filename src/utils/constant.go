package utils

// Buffer sizes shared by the server and the session cache.
const (
	RecentEventsCapacity = 50
	ClientSendBuffer     = 256
	BroadcastBuffer      = 256
)
