package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/substrate/internal/config"
	"github.com/aristath/substrate/internal/database"
	"github.com/aristath/substrate/internal/modules/region"
	"github.com/aristath/substrate/internal/network"
	"github.com/aristath/substrate/internal/ticker"
)

// SystemHandlers serves process and engine monitoring endpoints.
type SystemHandlers struct {
	log      zerolog.Logger
	cfg      *config.Config
	ledgerDB *database.DB
	cacheDB  *database.DB
	regions  *region.Service
	hub      *network.Hub
	ticker   *ticker.Ticker
	started  time.Time
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(
	log zerolog.Logger,
	cfg *config.Config,
	ledgerDB *database.DB,
	cacheDB *database.DB,
	regions *region.Service,
	hub *network.Hub,
	tk *ticker.Ticker,
) *SystemHandlers {
	return &SystemHandlers{
		log:      log.With().Str("handler", "system").Logger(),
		cfg:      cfg,
		ledgerDB: ledgerDB,
		cacheDB:  cacheDB,
		regions:  regions,
		hub:      hub,
		ticker:   tk,
		started:  time.Now(),
	}
}

// HandleSystemStatus returns process health: CPU, memory, uptime and
// connected stream clients
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}
	var ticks int64
	if h.ticker != nil {
		ticks = h.ticker.Ticks()
	}

	h.writeJSON(w, map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"cpu_percent":    cpuPercent,
		"ram_percent":    ramPercent,
		"regions":        len(h.regions.List()),
		"stream_clients": clients,
		"ticks":          ticks,
		"tick_interval":  h.cfg.TickInterval,
		"sim_dt":         h.cfg.SimDT,
	})
}

// HandleEngineStats returns aggregate simulation statistics across regions:
// component sizes and the purity distribution
// GET /api/system/stats
func (h *SystemHandlers) HandleEngineStats(w http.ResponseWriter, r *http.Request) {
	var purities []float64
	registers := 0
	components := 0
	largest := 0

	for _, info := range h.regions.List() {
		reg, err := h.regions.Get(info.ID)
		if err != nil {
			continue
		}
		reg.Lock()
		registers += len(reg.Computer.Registers())
		for _, comp := range reg.Computer.Components() {
			components++
			purities = append(purities, comp.Purity)
			if len(comp.Members) > largest {
				largest = len(comp.Members)
			}
		}
		reg.Unlock()
	}

	stats := map[string]interface{}{
		"regions":           len(h.regions.List()),
		"registers":         registers,
		"components":        components,
		"largest_component": largest,
	}
	if len(purities) > 0 {
		mean, std := stat.MeanStdDev(purities, nil)
		stats["purity_mean"] = mean
		if len(purities) > 1 {
			stats["purity_stddev"] = std
		}
		stats["purity_min"] = minFloat(purities)
	}

	h.writeJSON(w, stats)
}

// HandleDatabaseStats returns file and page statistics for both databases
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	response := make(map[string]interface{})
	for _, db := range []*database.DB{h.ledgerDB, h.cacheDB} {
		if db == nil {
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			response[db.Name()] = map[string]string{"error": err.Error()}
			continue
		}
		response[db.Name()] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
			"freelist_count": stats.FreelistCount,
			"profile":        string(db.Profile()),
		}
	}

	h.writeJSON(w, response)
}

// getSystemStats calculates CPU and RAM usage percentages. A 100ms sampling
// window keeps the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func minFloat(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
