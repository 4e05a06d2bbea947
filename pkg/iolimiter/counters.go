package iolimiter

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// SystemCounterReader reads kernel-level disk IO counters via gopsutil,
// summing read and write bytes across every reported device. A per-volume
// mapping from working directory to block device is platform-specific and
// not exposed uniformly by gopsutil; summing across all devices is a
// coarser but portable proxy for "disk throughput on the working volume",
// adequate for a hysteresis signal that only needs to distinguish "busy"
// from "idle".
type SystemCounterReader struct{}

// NewSystemCounterReader returns a CounterReader backed by gopsutil.
func NewSystemCounterReader() *SystemCounterReader {
	return &SystemCounterReader{}
}

// TotalBytes returns the sum of ReadBytes and WriteBytes across every disk
// IO counter gopsutil reports.
func (SystemCounterReader) TotalBytes() (uint64, error) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, fmt.Errorf("read io counters: %w", err)
	}

	var total uint64
	for _, c := range counters {
		total += c.ReadBytes + c.WriteBytes
	}

	return total, nil
}
