package cache

import "github.com/shirou/gopsutil/v4/mem"

// PressureMonitor reports memory usage as a percentage. Injected so that
// eviction policy is testable without real memory pressure.
type PressureMonitor interface {
	UsedPercent() (float64, error)
}

// SystemMonitor reads system memory usage via gopsutil.
type SystemMonitor struct{}

func (SystemMonitor) UsedPercent() (float64, error) {
	stats, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stats.UsedPercent, nil
}
