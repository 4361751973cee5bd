package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CPUPercent       float64 `json:"cpu_percent"`
	RAMPercent       float64 `json:"ram_percent"`
	TransactionCount int     `json:"transaction_count"`
	DatabaseSizeMB   float64 `json:"database_size_mb"`
	WALSizeMB        float64 `json:"wal_size_mb"`
}

// handleSystemStatus returns process and database health metrics.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := s.getSystemStats()

	count, err := s.repo.CountTransactions()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to count transactions")
	}

	response := SystemStatusResponse{
		Status:           "running",
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		CPUPercent:       cpuPercent,
		RAMPercent:       ramPercent,
		TransactionCount: count,
	}

	if stats, err := s.db.GetStats(); err == nil {
		response.DatabaseSizeMB = float64(stats.SizeBytes) / 1024 / 1024
		response.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
	} else {
		s.log.Warn().Err(err).Msg("Failed to get database stats")
	}

	s.writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages. A 100ms sampling
// interval keeps the status endpoint responsive.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
