package core

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// sessionCounter is implemented by session stores that can report their size.
type sessionCounter interface {
	Len() int
}

// SystemStatus is the aggregate status served to administrators.
type SystemStatus struct {
	Sessions struct {
		Backend string `json:"backend"`
		// Active is -1 when the backend cannot count bindings.
		Active int `json:"active"`
	} `json:"sessions"`
	Principals struct {
		Registered int `json:"registered"`
		Capacity   int `json:"capacity"`
	} `json:"principals"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus aggregates the current status. Every field is best-effort.
func CollectSystemStatus(cfg Config, sessions SessionStore, principals PrincipalContext, startedAt time.Time) SystemStatus {
	var st SystemStatus

	st.Sessions.Backend = cfg.SessionBackend
	st.Sessions.Active = -1
	if counter, ok := sessions.(sessionCounter); ok {
		st.Sessions.Active = counter.Len()
	}

	if counter, ok := principals.(interface{ Len() int }); ok {
		st.Principals.Registered = counter.Len()
	}
	st.Principals.Capacity = cfg.PrincipalCacheSize

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
