package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/modules/region"
)

// AuditJob sweeps every region for accumulated numeric drift. Violating
// components are repaired in place and reported.
type AuditJob struct {
	regions *region.Service
	log     zerolog.Logger
}

// NewAuditJob creates the drift audit job.
func NewAuditJob(regions *region.Service, log zerolog.Logger) *AuditJob {
	return &AuditJob{
		regions: regions,
		log:     log.With().Str("job", "audit").Logger(),
	}
}

// Name implements Job.
func (j *AuditJob) Name() string { return "drift-audit" }

// Run implements Job.
func (j *AuditJob) Run() error {
	reports := j.regions.AuditAll()
	for regionID, violations := range reports {
		for _, v := range violations {
			j.log.Warn().
				Str("region", regionID).
				Int("component", v.ComponentID).
				Float64("hermitian_dev", v.HermitianDev).
				Float64("trace_dev", v.TraceDev).
				Float64("min_eigenvalue", v.MinEigenvalue).
				Msg("numeric drift repaired")
		}
	}
	return nil
}
