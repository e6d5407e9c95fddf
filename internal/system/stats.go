// Package system reports host resource usage for the /info endpoint.
package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time snapshot of host and process resource usage.
type Stats struct {
	CPUCount       int     `json:"cpu_count"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryTotalMB  uint64  `json:"memory_total_mb"`
	MemoryUsedMB   uint64  `json:"memory_used_mb"`
	MemoryPercent  float64 `json:"memory_percent"`
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
}

// Snapshot collects current host stats. Collection failures leave the
// corresponding fields zero rather than failing the endpoint.
func Snapshot(ctx context.Context) Stats {
	stats := Stats{
		CPUCount:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.HeapAllocBytes = ms.HeapAlloc

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryTotalMB = vm.Total / (1 << 20)
		stats.MemoryUsedMB = vm.Used / (1 << 20)
		stats.MemoryPercent = vm.UsedPercent
	}

	return stats
}
