package helpers

import "runtime"

// GetRecommendedMemoryLimit returns the session cache ceiling in MB:
// a quarter of physical memory, at least 128MB, 256MB when unknown.
func GetRecommendedMemoryLimit() int {
	totalMB := GetTotalSystemMemoryMB()
	if totalMB == 0 {
		return 256
	}

	limit := totalMB / 4
	if limit < 128 {
		if totalMB < 128 {
			return totalMB
		}
		return 128
	}
	return limit
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB reports the Go heap in use.
func GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}
