package models

// MServiceStatus is reported by /api/health and the gRPC Status call.
type MServiceStatus struct {
	Name          string  `json:"name"`
	Source        string  `json:"source"`
	ModelLoaded   bool    `json:"model_loaded"`
	ModelName     string  `json:"model_name,omitempty"`
	Sessions      int     `json:"sessions"`
	MemoryMB      float64 `json:"memory_mb"`
	MaxMemoryMB   int     `json:"max_memory_mb"`
	Analyses      int64   `json:"analyses"`
	Failures      int64   `json:"failures"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
