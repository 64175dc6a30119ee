package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/modules/region"
)

// SnapshotJob persists every region's engine state to the cache database so
// a restart can resume from the last snapshot instead of vacuum.
type SnapshotJob struct {
	regions *region.Service
	log     zerolog.Logger
}

// NewSnapshotJob creates the snapshot job.
func NewSnapshotJob(regions *region.Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		regions: regions,
		log:     log.With().Str("job", "snapshot").Logger(),
	}
}

// Name implements Job.
func (j *SnapshotJob) Name() string { return "snapshot" }

// Run implements Job. Per-region failures are logged inside SaveAll.
func (j *SnapshotJob) Run() error {
	j.regions.SaveAll()
	return nil
}
