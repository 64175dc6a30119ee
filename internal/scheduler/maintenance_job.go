package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/database"
)

// MaintenanceJob keeps the SQLite files healthy: WAL checkpoints on both
// databases, an integrity check, and a VACUUM of the rebuildable cache.
// The ledger is append-only and is never vacuumed.
type MaintenanceJob struct {
	ledgerDB *database.DB
	cacheDB  *database.DB
	log      zerolog.Logger
}

// NewMaintenanceJob creates a database maintenance job.
func NewMaintenanceJob(ledgerDB, cacheDB *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		ledgerDB: ledgerDB,
		cacheDB:  cacheDB,
		log:      log.With().Str("job", "db-maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler.
func (j *MaintenanceJob) Name() string {
	return "db-maintenance"
}

// Run executes one maintenance pass.
func (j *MaintenanceJob) Run() error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, db := range []*database.DB{j.ledgerDB, j.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check failed for %s: %w", db.Name(), err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	// Snapshot payloads churn on every save, so the cache fragments fast
	if j.cacheDB != nil {
		if err := j.cacheDB.Vacuum(); err != nil {
			j.log.Warn().Err(err).Msg("Cache vacuum failed")
		} else if stats, err := j.cacheDB.GetStats(); err == nil {
			j.log.Debug().
				Int64("size_bytes", stats.SizeBytes).
				Int64("freelist_count", stats.FreelistCount).
				Msg("Cache vacuumed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(start)).
		Msg("Database maintenance completed")

	return nil
}
